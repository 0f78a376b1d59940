// Package database handles the ledger state for the blockchain: the balance
// of every account and the history of changes each block made to them.
package database

import (
	"maps"
	"slices"
	"sync"

	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/genesis"
)

// Database manages data related to accounts who have transacted on the
// blockchain. The state is a pure function of the committed blocks.
type Database struct {
	mu sync.RWMutex

	genesis  genesis.Genesis
	balances map[AccountID]int64
	history  map[AccountID][]Change
}

// New constructs an empty ledger. Genesis balances are credited when
// block 1 is committed.
func New(genesis genesis.Genesis) *Database {
	return &Database{
		genesis:  genesis,
		balances: make(map[AccountID]int64),
		history:  make(map[AccountID][]Change),
	}
}

// =============================================================================

// IsTransferValid checks the transaction against the balances snapshot. On
// success the snapshot is updated with the effect of the transaction so the
// next check in the same batch sees it.
func IsTransferValid(tx Tx, balances map[AccountID]int64) bool {
	senderBalance, exists := balances[tx.Sender]
	if !exists {
		return false
	}

	if tx.Amount < 0 || senderBalance < tx.Amount {
		return false
	}

	balances[tx.Sender] -= tx.Amount
	balances[tx.Recipient] += tx.Amount

	return true
}

// ValidateBatch returns the transactions, in their original order, that can
// be applied one after the other starting from the current balances. The
// ledger itself is not changed.
func (db *Database) ValidateBatch(trans []Tx) []Tx {
	balances := db.CopyBalances()

	valid := make([]Tx, 0, len(trans))
	for _, tx := range trans {
		if IsTransferValid(tx, balances) {
			valid = append(valid, tx)
		}
	}

	return valid
}

// CommitBlock applies every transaction in the block to the balances and
// records the history of changes under the block number. The caller must
// have validated the transactions, nothing is checked here. Committing
// block 1 also credits the genesis allocations.
func (db *Database) CommitBlock(block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	number := block.Number()

	for _, tx := range block.trans {
		db.applyChange(tx.Sender, number, -tx.Amount)
		db.applyChange(tx.Recipient, number, tx.Amount)
	}

	if number == 1 {
		for _, account := range db.genesis.Accounts() {
			db.applyChange(AccountID(account), number, db.genesis.Balances[account])
		}
	}
}

// applyChange updates the balance and folds the delta into the history
// entry for the block, creating it if needed.
func (db *Database) applyChange(accountID AccountID, number uint64, delta int64) {
	db.balances[accountID] += delta

	changes := db.history[accountID]
	if n := len(changes); n > 0 && changes[n-1].BlockNumber == number {
		changes[n-1].Delta += delta
		return
	}

	db.history[accountID] = append(changes, Change{BlockNumber: number, Delta: delta})
}

// =============================================================================

// CopyBalances makes a copy of the current balances in the ledger.
func (db *Database) CopyBalances() map[AccountID]int64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return maps.Clone(db.balances)
}

// Balance returns the balance for the specified account.
func (db *Database) Balance(accountID AccountID) (int64, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	balance, exists := db.balances[accountID]
	return balance, exists
}

// History returns the ordered set of balance changes for the account.
func (db *Database) History(accountID AccountID) []Change {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return slices.Clone(db.history[accountID])
}

// CopyHistory makes a copy of the history for every account.
func (db *Database) CopyHistory() map[AccountID][]Change {
	db.mu.RLock()
	defer db.mu.RUnlock()

	history := make(map[AccountID][]Change, len(db.history))
	for accountID, changes := range db.history {
		history[accountID] = slices.Clone(changes)
	}
	return history
}
