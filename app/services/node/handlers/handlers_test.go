package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/a-raghavan/blockchain-consortium/app/services/node/handlers"
	"github.com/a-raghavan/blockchain-consortium/business/web/errs"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/genesis"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/peer"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/state"
	"github.com/a-raghavan/blockchain-consortium/foundation/events"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type handlerTests struct {
	state   *state.State
	public  http.Handler
	private http.Handler
}

func newHandlerTests(t *testing.T) handlerTests {
	st, err := state.New(state.Config{
		Host: "node1",
		Genesis: genesis.Genesis{
			PrevHash: genesis.DefaultPrevHash,
			Balances: map[string]int64{"A": 10000},
		},
		KnownPeers: peer.NewPeerSet("node0", "node1"),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		Evts:     events.New(),
	}

	return handlerTests{
		state:   st,
		public:  handlers.PublicMux(cfg),
		private: handlers.PrivateMux(cfg),
	}
}

func call(h http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func Test_ProposeBlock(t *testing.T) {
	ht := newHandlerTests(t)

	block := database.NewBlock(1, nil, genesis.DefaultPrevHash, "node0")
	blockJSON, err := block.Encode()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to encode the block: %v", failed, err)
	}

	type table struct {
		name   string
		body   string
		status int
	}

	tt := []table{
		{name: "malformed", body: `{"number":`, status: http.StatusBadRequest},
		{name: "missing", body: `{"number":1,"transactions":[],"previous_hash":"0xfeedcafe","miner":"node0"}`, status: http.StatusBadRequest},
		{name: "accepted", body: string(blockJSON), status: http.StatusOK},
		{name: "again", body: string(blockJSON), status: http.StatusNotAcceptable},
	}

	t.Log("Given the need to take blocks proposed by peers.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				w := call(ht.private, http.MethodPost, "/v1/node/block/propose", tst.body)
				if w.Code != tst.status {
					t.Logf("\t%s\tTest %d:\tgot: %d %s", failed, testID, w.Code, w.Body.String())
					t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, tst.status)
					t.Fatalf("\t%s\tTest %d:\tShould get back the right status.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right status.", success, testID)
			}

			t.Run(tst.name, f)
		}

		var er errs.Response
		w := call(ht.private, http.MethodPost, "/v1/node/block/propose", string(blockJSON))
		if err := json.NewDecoder(w.Body).Decode(&er); err != nil || !strings.Contains(er.Error, state.ErrPrevHashMismatch.Error()) {
			t.Fatalf("\t%s\tShould get back the rejection reason: %v %q", failed, err, er.Error)
		}
		t.Logf("\t%s\tShould get back the rejection reason.", success)

		w = call(ht.private, http.MethodGet, "/v1/node/status", "")
		var status peer.PeerStatus
		if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the status: %v", failed, err)
		}
		if status.LatestBlockNumber != 1 || status.LatestBlockHash != block.Hash() {
			t.Fatalf("\t%s\tShould report the accepted block: %+v", failed, status)
		}
		if len(status.KnownPeers) != 1 || status.KnownPeers[0].Host != "node0" {
			t.Fatalf("\t%s\tShould report the other nodes: %+v", failed, status.KnownPeers)
		}
		t.Logf("\t%s\tShould report the accepted block.", success)

		w = call(ht.private, http.MethodGet, "/v1/node/block/list/1/latest", "")
		var blocks []database.BlockData
		if err := json.NewDecoder(w.Body).Decode(&blocks); err != nil || len(blocks) != 1 || blocks[0].Hash != block.Hash() {
			t.Fatalf("\t%s\tShould list the accepted block: %v %v", failed, err, blocks)
		}
		t.Logf("\t%s\tShould list the accepted block.", success)

		w = call(ht.private, http.MethodGet, "/v1/node/block/list/2/latest", "")
		if w.Code != http.StatusNoContent {
			t.Fatalf("\t%s\tShould get no content past the latest block: %d", failed, w.Code)
		}
		t.Logf("\t%s\tShould get no content past the latest block.", success)

		w = call(ht.private, http.MethodGet, "/v1/node/block/list/3/1", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould reject a reversed range: %d", failed, w.Code)
		}
		t.Logf("\t%s\tShould reject a reversed range.", success)
	}
}

func Test_SubmitAndQuery(t *testing.T) {
	ht := newHandlerTests(t)

	t.Log("Given the need to submit transactions and read the ledger.")
	{
		const tx = `{"sender":"A","recipient":"B","amount":5}`

		var resp struct {
			Status string `json:"status"`
		}

		w := call(ht.public, http.MethodPost, "/v1/tx/submit", tx)
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || w.Code != http.StatusOK || resp.Status != "transaction added to mempool" {
			t.Fatalf("\t%s\tShould add the transaction: %d %v %q", failed, w.Code, err, resp.Status)
		}
		t.Logf("\t%s\tShould add the transaction.", success)

		w = call(ht.public, http.MethodPost, "/v1/tx/submit", tx)
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Status != "transaction already pending" {
			t.Fatalf("\t%s\tShould report the duplicate: %v %q", failed, err, resp.Status)
		}
		t.Logf("\t%s\tShould report the duplicate.", success)

		w = call(ht.public, http.MethodPost, "/v1/tx/submit", `{"sender":"A","recipient":"B"}`)
		var er errs.Response
		if err := json.NewDecoder(w.Body).Decode(&er); err != nil || w.Code != http.StatusBadRequest || er.Fields["amount"] == "" {
			t.Fatalf("\t%s\tShould report the missing field: %d %v %+v", failed, w.Code, err, er)
		}
		t.Logf("\t%s\tShould report the missing field.", success)

		w = call(ht.public, http.MethodGet, "/v1/tx/uncommitted/list", "")
		var pending []database.Tx
		if err := json.NewDecoder(w.Body).Decode(&pending); err != nil || len(pending) != 1 {
			t.Fatalf("\t%s\tShould list the pending transaction: %v %v", failed, err, pending)
		}
		t.Logf("\t%s\tShould list the pending transaction.", success)

		w = call(ht.public, http.MethodGet, "/v1/accounts/list/A", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("\t%s\tShould not know the account before block 1: %d", failed, w.Code)
		}
		t.Logf("\t%s\tShould not know the account before block 1.", success)

		block := database.NewBlock(1, nil, genesis.DefaultPrevHash, "node0")
		if err := ht.state.ProcessProposedBlock(block, block.Hash()); err != nil {
			t.Fatalf("\t%s\tShould accept the genesis block: %v", failed, err)
		}

		w = call(ht.public, http.MethodGet, "/v1/accounts/list", "")
		var bals struct {
			LatestBlock string `json:"latest_block"`
			Uncommitted int    `json:"uncommitted"`
			Balances    []struct {
				Account string `json:"account"`
				Balance int64  `json:"balance"`
			} `json:"balances"`
		}
		if err := json.NewDecoder(w.Body).Decode(&bals); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the balances: %v", failed, err)
		}
		if bals.LatestBlock != block.Hash() || bals.Uncommitted != 1 || len(bals.Balances) != 1 || bals.Balances[0].Balance != 10000 {
			t.Fatalf("\t%s\tShould get back the genesis balances: %+v", failed, bals)
		}
		t.Logf("\t%s\tShould get back the genesis balances.", success)

		w = call(ht.public, http.MethodGet, "/v1/accounts/history/A", "")
		var hist struct {
			Changes []database.Change `json:"changes"`
		}
		if err := json.NewDecoder(w.Body).Decode(&hist); err != nil || len(hist.Changes) != 1 || hist.Changes[0].Delta != 10000 {
			t.Fatalf("\t%s\tShould get back the account history: %v %+v", failed, err, hist)
		}
		t.Logf("\t%s\tShould get back the account history.", success)

		w = call(ht.public, http.MethodGet, "/v1/accounts/history", "")
		var all []struct {
			Account string            `json:"account"`
			Changes []database.Change `json:"changes"`
		}
		if err := json.NewDecoder(w.Body).Decode(&all); err != nil || len(all) != 1 || all[0].Account != "A" {
			t.Fatalf("\t%s\tShould get back the history of every account: %v %+v", failed, err, all)
		}
		t.Logf("\t%s\tShould get back the history of every account.", success)

		w = call(ht.public, http.MethodGet, "/v1/accounts/history/Z", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("\t%s\tShould not find an unknown account: %d", failed, w.Code)
		}
		t.Logf("\t%s\tShould not find an unknown account.", success)
	}
}
