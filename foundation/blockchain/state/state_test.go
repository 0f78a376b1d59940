package state_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/genesis"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/peer"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/state"

	"github.com/dimfeld/httptreemux/v5"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newGenesis() genesis.Genesis {
	return genesis.Genesis{
		PrevHash: genesis.DefaultPrevHash,
		Balances: map[string]int64{"A": 10000},
	}
}

func newState(t *testing.T, host string, nodes ...string) *state.State {
	t.Helper()

	st, err := state.New(state.Config{
		Host:       host,
		Genesis:    newGenesis(),
		KnownPeers: peer.NewPeerSet(nodes...),
		EvHandler:  func(v string, args ...any) {},
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	return st
}

func tx(sender string, recipient string, amount int64) database.Tx {
	return database.NewTx(database.AccountID(sender), database.AccountID(recipient), amount)
}

// =============================================================================

func Test_New(t *testing.T) {
	t.Log("Given the need to only run nodes that take part in the election.")
	{
		_, err := state.New(state.Config{
			Host:       "3",
			Genesis:    newGenesis(),
			KnownPeers: peer.NewPeerSet("0", "1", "2"),
		})
		if err == nil {
			t.Fatalf("\t%s\tShould not be able to start a node outside the known peers.", failed)
		}
		t.Logf("\t%s\tShould not be able to start a node outside the known peers.", success)

		st, err := state.New(state.Config{
			Host:       "1",
			Genesis:    newGenesis(),
			KnownPeers: peer.NewPeerSet("0", "1", "2"),
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to start a node inside the known peers: %v", failed, err)
		}
		if got := st.RetrieveKnownPeers(); len(got) != 2 {
			t.Fatalf("\t%s\tShould exclude the node itself from the peers: %v", failed, got)
		}
		t.Logf("\t%s\tShould be able to start a node inside the known peers.", success)
	}
}

func Test_ProcessProposedBlock(t *testing.T) {
	genesisBlock := database.NewBlock(1, nil, genesis.DefaultPrevHash, "0")

	type table struct {
		name  string
		block database.Block
		hash  string
		err   error
	}

	tt := []table{
		{
			name:  "hash",
			block: database.NewBlock(2, nil, genesisBlock.Hash(), "1"),
			hash:  "0xdeadbeef",
			err:   state.ErrHashMismatch,
		},
		{
			name:  "prevhash",
			block: database.NewBlock(2, nil, "0xcafe", "1"),
			err:   state.ErrPrevHashMismatch,
		},
		{
			name:  "transactions",
			block: database.NewBlock(2, []database.Tx{tx("A", "B", 20000)}, genesisBlock.Hash(), "1"),
			err:   state.ErrInvalidTransactions,
		},
		{
			name:  "order",
			block: database.NewBlock(2, []database.Tx{tx("B", "C", 10), tx("A", "B", 100)}, genesisBlock.Hash(), "1"),
			err:   state.ErrInvalidTransactions,
		},
		{
			name:  "number",
			block: database.NewBlock(3, nil, genesisBlock.Hash(), "1"),
			err:   state.ErrBlockNumber,
		},
		{
			name:  "miner",
			block: database.NewBlock(2, nil, genesisBlock.Hash(), "0"),
			err:   state.ErrWrongMiner,
		},
		{
			name:  "skipped",
			block: database.NewBlock(2, nil, genesisBlock.Hash(), "2"),
			err:   state.ErrWrongMiner,
		},
		{
			name:  "unknown",
			block: database.NewBlock(2, nil, genesisBlock.Hash(), "9"),
			err:   state.ErrWrongMiner,
		},
		{
			name:  "valid",
			block: database.NewBlock(2, []database.Tx{tx("A", "B", 100), tx("B", "C", 10)}, genesisBlock.Hash(), "1"),
		},
	}

	t.Log("Given the need to only accept blocks that follow the rules.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				st := newState(t, "2", "0", "1", "2")

				if err := st.ProcessProposedBlock(genesisBlock, genesisBlock.Hash()); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould accept the genesis block: %v", failed, testID, err)
				}

				if got := st.RetrieveBalances(); got["A"] != 10000 {
					t.Fatalf("\t%s\tTest %d:\tShould credit the genesis balances: %v", failed, testID, got)
				}

				hash := tst.hash
				if hash == "" {
					hash = tst.block.Hash()
				}

				before := st.RetrieveBalances()

				err := st.ProcessProposedBlock(tst.block, hash)
				if !errors.Is(err, tst.err) {
					t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
					t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.err)
					t.Fatalf("\t%s\tTest %d:\tShould get back the right decision.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right decision.", success, testID)

				latest := st.RetrieveLatestBlock()

				switch tst.err {
				case nil:
					if latest.Hash() != tst.block.Hash() {
						t.Fatalf("\t%s\tTest %d:\tShould have the block at the tip.", failed, testID)
					}
					balances := st.RetrieveBalances()
					if balances["A"] != 9900 || balances["B"] != 90 || balances["C"] != 10 {
						t.Fatalf("\t%s\tTest %d:\tShould apply the block: %v", failed, testID, balances)
					}
					t.Logf("\t%s\tTest %d:\tShould apply the block.", success, testID)

				default:
					if latest.Hash() != genesisBlock.Hash() || len(st.RetrieveChain()) != 1 {
						t.Fatalf("\t%s\tTest %d:\tShould leave the chain unchanged.", failed, testID)
					}
					balances := st.RetrieveBalances()
					if len(balances) != len(before) || balances["A"] != before["A"] {
						t.Fatalf("\t%s\tTest %d:\tShould leave the balances unchanged: %v", failed, testID, balances)
					}
					t.Logf("\t%s\tTest %d:\tShould leave the node unchanged.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_ProcessProposedGenesis(t *testing.T) {
	t.Log("Given the need to validate the first block against the genesis.")
	{
		st := newState(t, "1", "0", "1", "2")

		block := database.NewBlock(1, nil, "0xcafe", "0")
		if err := st.ProcessProposedBlock(block, block.Hash()); !errors.Is(err, state.ErrPrevHashMismatch) {
			t.Fatalf("\t%s\tShould reject a first block not built on the genesis: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a first block not built on the genesis.", success)

		block = database.NewBlock(1, nil, genesis.DefaultPrevHash, "1")
		if err := st.ProcessProposedBlock(block, block.Hash()); !errors.Is(err, state.ErrWrongMiner) {
			t.Fatalf("\t%s\tShould reject a first block not mined by the first miner: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a first block not mined by the first miner.", success)

		if _, err := st.QueryBalance("A"); !errors.Is(err, state.ErrNotFound) {
			t.Fatalf("\t%s\tShould not credit the genesis balances before block 1: %v", failed, err)
		}
		t.Logf("\t%s\tShould not credit the genesis balances before block 1.", success)
	}
}

func Test_MineNewBlock(t *testing.T) {
	t.Log("Given the need to mine blocks in turn.")
	{
		ctx := context.Background()

		st0 := newState(t, "0", "0", "1")
		st1 := newState(t, "1", "0", "1")

		if _, err := st1.MineNewBlock(ctx); !errors.Is(err, state.ErrNotSelected) {
			t.Fatalf("\t%s\tShould not mine the first block when not the first miner: %v", failed, err)
		}
		t.Logf("\t%s\tShould not mine the first block when not the first miner.", success)

		// Submitted before the genesis block, these wait for block 2.
		for _, trn := range []database.Tx{tx("B", "C", 10), tx("A", "B", 100), tx("A", "B", 100)} {
			st0.UpsertWalletTransaction(trn)
		}
		if n := st0.QueryMempoolLength(); n != 2 {
			t.Fatalf("\t%s\tShould drop the duplicate transaction: %d", failed, n)
		}

		block1, err := st0.MineNewBlock(ctx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine the genesis block: %v", failed, err)
		}
		if block1.Number() != 1 || len(block1.Transactions()) != 0 || block1.PrevHash() != genesis.DefaultPrevHash || block1.Miner() != "0" {
			t.Fatalf("\t%s\tShould mine an empty genesis block: %s", failed, block1)
		}
		if n := st0.QueryMempoolLength(); n != 2 {
			t.Fatalf("\t%s\tShould leave the mempool for the next block: %d", failed, n)
		}
		t.Logf("\t%s\tShould be able to mine the genesis block.", success)

		if _, err := st0.MineNewBlock(ctx); !errors.Is(err, state.ErrNotSelected) {
			t.Fatalf("\t%s\tShould not mine two blocks in a row: %v", failed, err)
		}
		t.Logf("\t%s\tShould not mine two blocks in a row.", success)

		if err := st1.ProcessProposedBlock(block1, block1.Hash()); err != nil {
			t.Fatalf("\t%s\tShould accept the mined genesis block: %v", failed, err)
		}

		for _, trn := range st0.RetrieveMempool() {
			st1.UpsertNodeTransaction(trn)
		}
		st1.UpsertNodeTransaction(tx("D", "E", 1))

		block2, err := st1.MineNewBlock(ctx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine the next block: %v", failed, err)
		}

		exp := []database.Tx{tx("A", "B", 100), tx("B", "C", 10)}
		got := block2.Transactions()
		if len(got) != len(exp) || !got[0].Equals(exp[0]) || !got[1].Equals(exp[1]) {
			t.Logf("\t%s\tgot: %v", failed, got)
			t.Logf("\t%s\texp: %v", failed, exp)
			t.Fatalf("\t%s\tShould mine the valid transactions in order.", failed)
		}
		if block2.PrevHash() != block1.Hash() || block2.Number() != 2 || block2.Miner() != "1" {
			t.Fatalf("\t%s\tShould extend the latest block: %s", failed, block2)
		}
		t.Logf("\t%s\tShould mine the valid transactions in order.", success)

		pending := st1.RetrieveMempool()
		if len(pending) != 1 || !pending[0].Equals(tx("D", "E", 1)) {
			t.Fatalf("\t%s\tShould keep only the excluded transaction pending: %v", failed, pending)
		}
		t.Logf("\t%s\tShould keep only the excluded transaction pending.", success)

		if err := st0.ProcessProposedBlock(block2, block2.Hash()); err != nil {
			t.Fatalf("\t%s\tShould accept the block mined by the peer: %v", failed, err)
		}
		if n := st0.QueryMempoolLength(); n != 0 {
			t.Fatalf("\t%s\tShould remove the committed transactions from the mempool: %d", failed, n)
		}
		t.Logf("\t%s\tShould remove the committed transactions from the mempool.", success)

		b0, b1 := st0.RetrieveBalances(), st1.RetrieveBalances()
		for _, acct := range []database.AccountID{"A", "B", "C"} {
			if b0[acct] != b1[acct] {
				t.Fatalf("\t%s\tShould agree on the balance of %s: %d != %d", failed, acct, b0[acct], b1[acct])
			}
		}
		t.Logf("\t%s\tShould agree on the balances.", success)
	}
}

func Test_QueryBlocksByNumber(t *testing.T) {
	t.Log("Given the need to read back ranges of the chain.")
	{
		ctx := context.Background()
		st := newState(t, "0", "0")

		for n := 0; n < 3; n++ {
			if _, err := st.MineNewBlock(ctx); err != nil {
				t.Fatalf("\t%s\tShould be able to mine as the only node: %v", failed, err)
			}
		}
		t.Logf("\t%s\tShould be able to mine as the only node.", success)

		type table struct {
			from uint64
			to   uint64
			exp  []uint64
		}

		tt := []table{
			{from: 1, to: 3, exp: []uint64{1, 2, 3}},
			{from: 2, to: state.QueryLastest, exp: []uint64{2, 3}},
			{from: state.QueryLastest, exp: []uint64{3}},
			{from: 0, to: 10, exp: []uint64{1, 2, 3}},
			{from: 4, to: state.QueryLastest, exp: nil},
		}

		for testID, tst := range tt {
			blocks := st.QueryBlocksByNumber(tst.from, tst.to)
			if len(blocks) != len(tst.exp) {
				t.Fatalf("\t%s\tTest %d:\tShould get back %d blocks: %d", failed, testID, len(tst.exp), len(blocks))
			}
			for i, block := range blocks {
				if block.Number() != tst.exp[i] {
					t.Fatalf("\t%s\tTest %d:\tShould get back block %d: %d", failed, testID, tst.exp[i], block.Number())
				}
			}
			t.Logf("\t%s\tTest %d:\tShould get back the right blocks.", success, testID)
		}
	}
}

// =============================================================================

func Test_NetSendBlockToPeers(t *testing.T) {
	t.Log("Given the need to share a mined block with every peer.")
	{
		var mu sync.Mutex
		var received []database.BlockData

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/node/block/propose" {
				http.NotFound(w, r)
				return
			}

			var blockData database.BlockData
			if err := json.NewDecoder(r.Body).Decode(&blockData); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			mu.Lock()
			received = append(received, blockData)
			mu.Unlock()

			w.Write([]byte(`{"status":"accepted"}`))
		})

		srv1 := httptest.NewServer(handler)
		defer srv1.Close()
		srv2 := httptest.NewServer(handler)
		defer srv2.Close()

		// A listener that is closed right away gives an address nothing
		// answers on.
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to reserve an address: %v", failed, err)
		}
		dead := ln.Addr().String()
		ln.Close()

		host := hostOf(srv1)
		st := newState(t, host, host, hostOf(srv2), dead)

		block := database.NewBlock(1, []database.Tx{tx("A", "B", 1)}, genesis.DefaultPrevHash, host)

		err = st.NetSendBlockToPeers(block)
		if err == nil || !strings.Contains(err.Error(), dead) {
			t.Fatalf("\t%s\tShould report the peer that could not be reached: %v", failed, err)
		}
		t.Logf("\t%s\tShould report the peer that could not be reached.", success)

		mu.Lock()
		defer mu.Unlock()

		if len(received) != 1 {
			t.Fatalf("\t%s\tShould deliver to every reachable peer except itself: %d", failed, len(received))
		}
		if received[0].Hash != block.Hash() || database.ToBlock(received[0]).Hash() != block.Hash() {
			t.Fatalf("\t%s\tShould deliver the block with its hash.", failed)
		}
		t.Logf("\t%s\tShould deliver the block to the reachable peers.", success)
	}
}

func Test_NetRequestPeerBlocks(t *testing.T) {
	t.Log("Given the need to catch up with a peer that is ahead.")
	{
		var remote *state.State

		mux := httptreemux.NewContextMux()
		mux.GET("/v1/node/status", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(remote.RetrieveStatus())
		})
		mux.GET("/v1/node/block/list/:from/latest", func(w http.ResponseWriter, r *http.Request) {
			from, err := strconv.ParseUint(httptreemux.ContextParams(r.Context())["from"], 10, 64)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			blocks := remote.QueryBlocksByNumber(from, state.QueryLastest)

			out := make([]database.BlockData, len(blocks))
			for i, block := range blocks {
				out[i] = database.NewBlockData(block)
			}
			json.NewEncoder(w).Encode(out)
		})

		srv := httptest.NewServer(mux)
		defer srv.Close()

		// The remote address sorts before the local name so the remote
		// mines the first block.
		remoteHost := hostOf(srv)
		localHost := "localhost:9080"

		remote = newState(t, remoteHost, remoteHost, localHost)
		local := newState(t, localHost, remoteHost, localHost)

		ctx := context.Background()

		block1, err := remote.MineNewBlock(ctx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine the genesis block: %v", failed, err)
		}

		block2 := database.NewBlock(2, []database.Tx{tx("A", "B", 250)}, block1.Hash(), localHost)
		if err := remote.ProcessProposedBlock(block2, block2.Hash()); err != nil {
			t.Fatalf("\t%s\tShould accept the block from the local node: %v", failed, err)
		}

		remote.UpsertWalletTransaction(tx("B", "C", 50))
		if _, err := remote.MineNewBlock(ctx); err != nil {
			t.Fatalf("\t%s\tShould be able to mine the third block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to build a chain on the remote node.", success)

		pr := peer.New(remoteHost)

		status, err := local.NetRequestPeerStatus(pr)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to request the peer status: %v", failed, err)
		}
		if status.LatestBlockNumber != 3 {
			t.Fatalf("\t%s\tShould get back the latest block number: %d", failed, status.LatestBlockNumber)
		}
		t.Logf("\t%s\tShould be able to request the peer status.", success)

		if err := local.NetRequestPeerBlocks(pr); err != nil {
			t.Fatalf("\t%s\tShould be able to sync the blocks: %v", failed, err)
		}

		if local.RetrieveLatestBlock().Hash() != remote.RetrieveLatestBlock().Hash() {
			t.Fatalf("\t%s\tShould have the same latest block.", failed)
		}

		lb, rb := local.RetrieveBalances(), remote.RetrieveBalances()
		if len(lb) != len(rb) || lb["A"] != 9750 || lb["B"] != rb["B"] || lb["C"] != 50 {
			t.Fatalf("\t%s\tShould replay to the same balances: %v != %v", failed, lb, rb)
		}
		t.Logf("\t%s\tShould be able to sync the blocks.", success)

		if err := local.NetRequestPeerBlocks(pr); err != nil {
			t.Fatalf("\t%s\tShould be able to sync again with nothing new: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to sync again with nothing new.", success)
	}
}

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}
