package public

import "github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"

type balance struct {
	Account database.AccountID `json:"account"`
	Balance int64              `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Balances    []balance `json:"balances"`
}

type history struct {
	Account database.AccountID `json:"account"`
	Changes []database.Change  `json:"changes"`
}

type submitted struct {
	Status string `json:"status"`
}
