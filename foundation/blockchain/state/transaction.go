package state

import "github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"

// UpsertWalletTransaction accepts a transaction from a wallet for inclusion.
// It reports false when the same transaction is already pending. A new
// transaction is shared with the known peers.
func (s *State) UpsertWalletTransaction(tx database.Tx) bool {
	s.mu.Lock()
	added := s.mempool.Upsert(tx)
	s.mu.Unlock()

	if !added {
		s.evHandler("state: UpsertWalletTransaction: duplicate: tx[%s]", tx)
		return false
	}

	s.evHandler("state: UpsertWalletTransaction: pending: tx[%s]", tx)
	s.signalShareTx(tx)

	return true
}

// UpsertNodeTransaction accepts a transaction shared by a peer for inclusion.
// These are not shared again since every peer received them from the origin.
func (s *State) UpsertNodeTransaction(tx database.Tx) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mempool.Upsert(tx)
}
