package worker

import (
	"errors"
	"time"

	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/state"
)

// miningOperations handles mining. A timer fires once every mining interval
// and the selected node mines a block. Accepting a block from a peer signals
// this G, which starts the wait over so every node measures the interval
// from the latest block.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	timer := time.NewTimer(w.mineInterval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
			timer.Reset(w.mineInterval)

		case <-w.startMining:
			w.evHandler("worker: miningOperations: restart wait[%v]", w.mineInterval)
			timer.Reset(w.mineInterval)

		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines the next block if this node is selected and
// proposes it to the network.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// Run the selection algorithm.
	miner, err := w.state.RetrieveNextMiner()
	if err != nil {
		w.evHandler("worker: runMiningOperation: MINING: selection: ERROR: %s", err)
		return
	}
	w.evHandler("worker: runMiningOperation: SELECTED: %s", miner)

	// If we are not selected, return and wait for the new block.
	if miner != w.state.RetrieveHost() {
		return
	}

	t := time.Now()
	block, err := w.state.MineNewBlock(w.ctx)
	duration := time.Since(t)

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if err != nil {
		switch {
		case errors.Is(err, state.ErrNotSelected):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: %s", err)
		case w.ctx.Err() != nil:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return
	}

	// The block is mined. Propose the new block to the network.
	// Log the error, but that's it.
	if err := w.state.NetSendBlockToPeers(block); err != nil {
		w.evHandler("worker: runMiningOperation: MINING: proposeBlockToPeers: WARNING %s", err)
	}
}
