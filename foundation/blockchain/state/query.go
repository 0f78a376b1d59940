package state

import (
	"errors"

	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"
)

// QueryLastest represents to query the latest block in the chain.
const QueryLastest = ^uint64(0) >> 1

// ErrNotFound is returned when the account has never been touched by a
// committed block.
var ErrNotFound = errors.New("not found")

// =============================================================================

// QueryBalance returns the balance of the specified account.
func (s *State) QueryBalance(account database.AccountID) (int64, error) {
	balance, exists := s.db.Balance(account)
	if !exists {
		return 0, ErrNotFound
	}

	return balance, nil
}

// QueryHistory returns the ordered balance changes of the specified account.
func (s *State) QueryHistory(account database.AccountID) ([]database.Change, error) {
	history := s.db.History(account)
	if len(history) == 0 {
		return nil, ErrNotFound
	}

	return history, nil
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlocksByNumber returns the set of blocks based on block numbers.
// Numbers outside of the chain are ignored.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.latestBlock().Number()

	if from == QueryLastest {
		from = latest
		to = from
	}
	if to == QueryLastest || to > latest {
		to = latest
	}
	if from == 0 {
		from = 1
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		out = append(out, s.chain[i-1])
	}

	return out
}
