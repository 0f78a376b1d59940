// Package public maintains the group of handlers for public access.
package public

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/a-raghavan/blockchain-consortium/business/web/errs"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/state"
	"github.com/a-raghavan/blockchain-consortium/foundation/events"
	"github.com/a-raghavan/blockchain-consortium/foundation/validate"
	"github.com/a-raghavan/blockchain-consortium/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds new user transactions to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx database.Tx
	if err := web.Decode(r, &tx); err != nil {
		if validate.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	h.Log.Infow("add user tran", "traceid", v.TraceID, "sender", tx.Sender, "recipient", tx.Recipient, "amount", tx.Amount)

	resp := submitted{
		Status: "transaction added to mempool",
	}
	if !h.State.UpsertWalletTransaction(tx) {
		resp.Status = "transaction already pending"
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txs := h.State.RetrieveMempool()
	return web.Respond(ctx, w, txs, http.StatusOK)
}

// Accounts returns the current balances for all accounts or the one
// specified.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account := database.AccountID(web.Param(r, "account"))

	var bals []balance
	switch account {
	case "":
		for account, amount := range h.State.RetrieveBalances() {
			bals = append(bals, balance{Account: account, Balance: amount})
		}
		slices.SortFunc(bals, func(a, b balance) int {
			return cmp.Compare(a.Account, b.Account)
		})

	default:
		amount, err := h.State.QueryBalance(account)
		if err != nil {
			return errs.NewTrusted(fmt.Errorf("account %q: %w", account, err), http.StatusNotFound)
		}
		bals = []balance{{Account: account, Balance: amount}}
	}

	resp := balances{
		LatestBlock: h.State.RetrieveLatestBlock().Hash(),
		Uncommitted: h.State.QueryMempoolLength(),
		Balances:    bals,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// History returns the ordered balance changes of the specified account or
// of every account.
func (h Handlers) History(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account := database.AccountID(web.Param(r, "account"))

	if account == "" {
		all := h.State.RetrieveHistory()

		resp := make([]history, 0, len(all))
		for account, changes := range all {
			resp = append(resp, history{Account: account, Changes: changes})
		}
		slices.SortFunc(resp, func(a, b history) int {
			return cmp.Compare(a.Account, b.Account)
		})

		return web.Respond(ctx, w, resp, http.StatusOK)
	}

	changes, err := h.State.QueryHistory(account)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("account %q: %w", account, err), http.StatusNotFound)
	}

	resp := history{
		Account: account,
		Changes: changes,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BlocksByNumber returns all the blocks based on the specified to/from values.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, to, err := blockRange(r)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	blocks := h.State.QueryBlocksByNumber(from, to)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blockData := make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		blockData[i] = database.NewBlockData(block)
	}

	return web.Respond(ctx, w, blockData, http.StatusOK)
}

// =============================================================================

// blockRange reads the from and to parameters. The value latest selects the
// latest block.
func blockRange(r *http.Request) (uint64, uint64, error) {
	fromStr := web.Param(r, "from")
	if fromStr == "latest" || fromStr == "" {
		fromStr = fmt.Sprintf("%d", state.QueryLastest)
	}

	toStr := web.Param(r, "to")
	if toStr == "latest" || toStr == "" {
		toStr = fmt.Sprintf("%d", state.QueryLastest)
	}

	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	to, err := strconv.ParseUint(toStr, 10, 64)
	if err != nil {
		return 0, 0, err
	}

	if from > to {
		return 0, 0, errors.New("from greater than to")
	}

	return from, to, nil
}
