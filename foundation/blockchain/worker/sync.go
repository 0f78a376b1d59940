package worker

// syncOperations periodically catches this node up with its peers.
func (w *Worker) syncOperations() {
	w.evHandler("worker: syncOperations: G started")
	defer w.evHandler("worker: syncOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.Sync()
			}
		case <-w.shut:
			w.evHandler("worker: syncOperations: received shut signal")
			return
		}
	}
}

// Sync updates the mempool and blocks from every known peer.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	for _, peer := range w.state.RetrieveKnownPeers() {

		// Retrieve the status of this peer.
		peerStatus, err := w.state.NetRequestPeerStatus(peer)
		if err != nil {
			w.evHandler("worker: sync: requestPeerStatus: %s: ERROR: %s", peer.Host, err)
			continue
		}

		// Retrieve the mempool from the peer.
		pool, err := w.state.NetRequestPeerMempool(peer)
		if err != nil {
			w.evHandler("worker: sync: requestPeerMempool: %s: ERROR: %s", peer.Host, err)
		}
		for _, tx := range pool {
			if w.state.UpsertNodeTransaction(tx) {
				w.evHandler("worker: sync: requestPeerMempool: %s: Add Tx: %s", peer.Host, tx)
			}
		}

		// If this peer has blocks we don't have, we need to add them.
		if peerStatus.LatestBlockNumber > w.state.RetrieveLatestBlock().Number() {
			w.evHandler("worker: sync: requestPeerBlocks: %s: latestBlockNumber[%d]", peer.Host, peerStatus.LatestBlockNumber)

			if err := w.state.NetRequestPeerBlocks(peer); err != nil {
				w.evHandler("worker: sync: requestPeerBlocks: %s: ERROR %s", peer.Host, err)
			}
		}
	}
}
