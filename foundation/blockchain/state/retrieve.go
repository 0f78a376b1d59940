package state

import (
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/genesis"
	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy the current latest block. The zero
// block is returned when nothing has been committed yet.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.latestBlock()
}

// RetrieveChain returns a copy of every committed block, oldest first.
func (s *State) RetrieveChain() []database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := make([]database.Block, len(s.chain))
	copy(chain, s.chain)

	return chain
}

// RetrieveMempool returns a copy of the mempool in block order.
func (s *State) RetrieveMempool() []database.Tx {
	return s.mempool.PickOrdered()
}

// RetrieveBalances returns a copy of the account balances.
func (s *State) RetrieveBalances() map[database.AccountID]int64 {
	return s.db.CopyBalances()
}

// RetrieveHistory returns a copy of the change history of every account.
func (s *State) RetrieveHistory() map[database.AccountID][]database.Change {
	return s.db.CopyHistory()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrieveNodes returns every node taking part in the election, this one
// included.
func (s *State) RetrieveNodes() []string {
	return s.knownPeers.Hosts()
}

// RetrieveStatus returns the information peers need to sync with this node.
func (s *State) RetrieveStatus() peer.PeerStatus {
	latest := s.RetrieveLatestBlock()

	return peer.PeerStatus{
		LatestBlockHash:   latest.Hash(),
		LatestBlockNumber: latest.Number(),
		KnownPeers:        s.RetrieveKnownPeers(),
	}
}

// RetrieveNextMiner returns the node expected to mine the next block.
func (s *State) RetrieveNextMiner() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.nextMiner()
}
