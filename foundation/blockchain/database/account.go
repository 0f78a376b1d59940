package database

// AccountID represents the name of an account on the ledger. Nothing binds
// an account id to the party submitting a transaction that spends from it.
type AccountID string

// Change represents the net effect a single block had on an account balance.
type Change struct {
	BlockNumber uint64 `json:"block_number"`
	Delta       int64  `json:"delta"`
}
