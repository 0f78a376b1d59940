// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"fmt"
	"sync"

	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/genesis"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/mempool"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/peer"
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of blocks and transactions.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer syncing, and transaction sharing.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalShareTx(tx database.Tx)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Host       string
	Genesis    genesis.Genesis
	KnownPeers *peer.PeerSet
	ShareTx    bool
	EvHandler  EventHandler
}

// State manages the blockchain. The chain, the ledger and the mempool are
// only changed while holding mu, so mining and the acceptance of peer blocks
// never decide on the same latest block.
type State struct {
	mu sync.Mutex

	host      string
	shareTx   bool
	evHandler EventHandler

	genesis    genesis.Genesis
	knownPeers *peer.PeerSet
	chain      []database.Block
	mempool    *mempool.Mempool
	db         *database.Database

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.KnownPeers == nil || !cfg.KnownPeers.Contains(cfg.Host) {
		return nil, fmt.Errorf("host %q is not part of the known peers", cfg.Host)
	}

	if cfg.Genesis.PrevHash == "" {
		cfg.Genesis.PrevHash = genesis.DefaultPrevHash
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		host:      cfg.Host,
		shareTx:   cfg.ShareTx,
		evHandler: ev,

		genesis:    cfg.Genesis,
		knownPeers: cfg.KnownPeers,
		mempool:    mempool.New(),
		db:         database.New(cfg.Genesis),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// =============================================================================

// signalStartMining restarts the mining wait if a worker is registered.
func (s *State) signalStartMining() {
	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}
}

// signalShareTx queues the transaction to be shared if a worker is registered.
func (s *State) signalShareTx(tx database.Tx) {
	if s.shareTx && s.Worker != nil {
		s.Worker.SignalShareTx(tx)
	}
}
