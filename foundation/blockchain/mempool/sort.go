package mempool

import "github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"

// byOrder provides sorting support by the natural transaction order.
type byOrder []database.Tx

// Len returns the number of transactions in the list.
func (bo byOrder) Len() int {
	return len(bo)
}

// Less sorts by sender, then recipient, then amount in ascending order.
func (bo byOrder) Less(i, j int) bool {
	return bo[i].Less(bo[j])
}

// Swap moves transactions in the order of the sort.
func (bo byOrder) Swap(i, j int) {
	bo[i], bo[j] = bo[j], bo[i]
}
