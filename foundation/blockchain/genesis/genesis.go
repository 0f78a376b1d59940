// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
	"time"
)

// DefaultPrevHash is the previous hash recorded in block 1 when the genesis
// file doesn't provide one.
const DefaultPrevHash = "0xfeedcafe"

// Genesis represents the genesis file.
type Genesis struct {
	Date     time.Time        `json:"date"`
	PrevHash string           `json:"prev_hash"` // Sentinel used as the previous hash of block 1.
	Balances map[string]int64 `json:"balances"`  // Out of protocol allocations credited when block 1 commits.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	if genesis.PrevHash == "" {
		genesis.PrevHash = DefaultPrevHash
	}

	for account, balance := range genesis.Balances {
		if balance < 0 {
			return Genesis{}, errors.New("genesis balance for " + account + " is negative")
		}
	}

	return genesis, nil
}

// Accounts returns the seed accounts in sorted order so allocations are
// always applied the same way.
func (g Genesis) Accounts() []string {
	accounts := make([]string, 0, len(g.Balances))
	for account := range g.Balances {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	return accounts
}
