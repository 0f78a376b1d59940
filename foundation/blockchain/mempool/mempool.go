// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sort"
	"sync"

	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"
)

// Mempool represents a cache of pending transactions. A transaction is keyed
// by its sender, recipient and amount so the same transfer is never pending
// twice.
type Mempool struct {
	mu   sync.RWMutex
	pool map[database.Tx]struct{}
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[database.Tx]struct{}),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds a transaction to the mempool. It reports false when an equal
// transaction is already pending, which leaves the pool unchanged.
func (mp *Mempool) Upsert(tx database.Tx) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[tx]; exists {
		return false
	}

	mp.pool[tx] = struct{}{}

	return true
}

// Delete removes the transactions from the mempool.
func (mp *Mempool) Delete(txs ...database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, tx := range txs {
		delete(mp.pool, tx)
	}
}

// PickOrdered returns a snapshot of the pool sorted by sender, recipient
// and amount. Every node draining the same pending set gets the same list.
func (mp *Mempool) PickOrdered() []database.Tx {
	mp.mu.RLock()
	txs := make([]database.Tx, 0, len(mp.pool))
	for tx := range mp.pool {
		txs = append(txs, tx)
	}
	mp.mu.RUnlock()

	sort.Sort(byOrder(txs))

	return txs
}
