// Package worker implements mining, peer syncing, and transaction sharing for
// the blockchain.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/state"
)

// Default intervals used when the configuration leaves them unset.
const (
	defaultMineInterval = 5 * time.Second
	defaultSyncInterval = time.Minute
)

// =============================================================================

// Config represents the timing of the background work.
type Config struct {
	MineInterval time.Duration
	SyncInterval time.Duration
	EvHandler    state.EventHandler
}

// Worker manages the mining, syncing and sharing workflows for the
// blockchain.
type Worker struct {
	state        *state.State
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	mineInterval time.Duration
	ticker       *time.Ticker
	shut         chan struct{}
	startMining  chan bool
	txSharing    chan database.Tx
	evHandler    state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, cfg Config) {
	if cfg.MineInterval <= 0 {
		cfg.MineInterval = defaultMineInterval
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = defaultSyncInterval
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		state:        st,
		ctx:          ctx,
		cancel:       cancel,
		mineInterval: cfg.MineInterval,
		ticker:       time.NewTicker(cfg.SyncInterval),
		shut:         make(chan struct{}),
		startMining:  make(chan bool, 1),
		txSharing:    make(chan database.Tx, maxTxShareRequests),
		evHandler:    ev,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Update this node before starting any support G's.
	w.Sync()

	// Load the set of operations we need to run.
	operations := []func(){
		w.syncOperations,
		w.miningOperations,
		w.shareTxOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: cancel mining")
	w.cancel()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining restarts the wait for the next mining operation. If
// there is already a signal pending in the channel, just return since the
// wait will restart.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalShareTx signals a share transaction operation. If
// maxTxShareRequests signals exist in the channel, we won't send these.
func (w *Worker) SignalShareTx(tx database.Tx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, transactions won't be shared.")
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
