package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"
)

// Set of reasons a proposed block is rejected, in the order they are checked.
var (
	ErrHashMismatch        = errors.New("block hash doesn't match its content")
	ErrPrevHashMismatch    = errors.New("previous hash doesn't match the latest block")
	ErrInvalidTransactions = errors.New("block transactions are not a valid batch")
	ErrBlockNumber         = errors.New("block is not the next number")
	ErrWrongMiner          = errors.New("block was not mined by the expected node")
)

// ErrNotSelected is returned when a block is requested to be mined but this
// node is not the next miner.
var ErrNotSelected = errors.New("node is not selected to mine the next block")

// =============================================================================

// MineNewBlock builds the next block from the mempool and commits it
// locally. Only the node elected for the next block can mine it. The caller
// is responsible for sharing the block with the peers.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: MineNewBlock: MINING: check selection")

	miner, err := s.nextMiner()
	if err != nil {
		return database.Block{}, err
	}

	if miner != s.host {
		return database.Block{}, fmt.Errorf("%w: selected %s", ErrNotSelected, miner)
	}

	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	var block database.Block

	switch latest := s.latestBlock(); {
	case latest.IsZero():
		s.evHandler("state: MineNewBlock: MINING: genesis block")

		block = database.NewBlock(1, nil, s.genesis.PrevHash, s.host)

	default:
		s.evHandler("state: MineNewBlock: MINING: validate mempool: Txs[%d]", s.mempool.Count())

		// Sort the pending transactions so the same pending set always
		// produces the same block.
		trans := s.db.ValidateBatch(s.mempool.PickOrdered())

		block = database.NewBlock(latest.Number()+1, trans, latest.Hash(), s.host)
	}

	s.evHandler("state: MineNewBlock: MINING: commit block[%s]", block)

	s.commitBlock(block)

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer along with the hash
// the peer claims for it. If the block passes every check, it is added to
// the local blockchain. Otherwise nothing changes.
func (s *State) ProcessProposedBlock(block database.Block, claimedHash string) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.PrevHash(), claimedHash, len(block.Transactions()))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", claimedHash)

	if err := s.acceptBlock(block, claimedHash); err != nil {
		s.evHandler("state: ProcessProposedBlock: REJECTED: %s", err)
		return err
	}

	// This node may be the next miner, so the wait for the next mining
	// operation starts over from the block just accepted.
	s.signalStartMining()

	return nil
}

// =============================================================================

// acceptBlock validates the block against the consensus rules under the
// lock and commits it when it passes.
func (s *State) acceptBlock(block database.Block, claimedHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateBlock(block, claimedHash); err != nil {
		return err
	}

	s.commitBlock(block)

	return nil
}

// validateBlock runs the acceptance checks in order, stopping at the first
// one that fails.
func (s *State) validateBlock(block database.Block, claimedHash string) error {
	latest := s.latestBlock()

	s.evHandler("state: validateBlock: blk[%d]: check: hash matches content", block.Number())

	if hash := block.CalculateHash(); hash != claimedHash {
		return fmt.Errorf("%w: got %s, exp %s", ErrHashMismatch, claimedHash, hash)
	}

	s.evHandler("state: validateBlock: blk[%d]: check: previous hash matches latest block", block.Number())

	prevHash := s.genesis.PrevHash
	if !latest.IsZero() {
		prevHash = latest.Hash()
	}
	if block.PrevHash() != prevHash {
		return fmt.Errorf("%w: got %s, exp %s", ErrPrevHashMismatch, block.PrevHash(), prevHash)
	}

	s.evHandler("state: validateBlock: blk[%d]: check: transactions are a valid batch", block.Number())

	trans := block.Transactions()
	if valid := s.db.ValidateBatch(trans); !slices.Equal(valid, trans) {
		return fmt.Errorf("%w: valid %d of %d", ErrInvalidTransactions, len(valid), len(trans))
	}

	s.evHandler("state: validateBlock: blk[%d]: check: block number is the next number", block.Number())

	nextNumber := latest.Number() + 1
	if block.Number() != nextNumber {
		return fmt.Errorf("%w: got %d, exp %d", ErrBlockNumber, block.Number(), nextNumber)
	}

	s.evHandler("state: validateBlock: blk[%d]: check: miner is the next miner", block.Number())

	miner, err := s.nextMiner()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrongMiner, err)
	}
	if block.Miner() != miner {
		return fmt.Errorf("%w: got %s, exp %s", ErrWrongMiner, block.Miner(), miner)
	}

	return nil
}

// commitBlock appends the block to the chain, applies it to the ledger and
// removes its transactions from the mempool. The caller must hold the lock
// and must have validated the block.
func (s *State) commitBlock(block database.Block) {
	s.chain = append(s.chain, block)
	s.db.CommitBlock(block)
	s.mempool.Delete(block.Transactions()...)

	s.blockEvent(block)
}

// latestBlock returns the last committed block or the zero block when the
// chain is empty. The caller must hold the lock.
func (s *State) latestBlock() database.Block {
	if len(s.chain) == 0 {
		return database.Block{}
	}
	return s.chain[len(s.chain)-1]
}

// nextMiner returns the node expected to mine the next block. The caller
// must hold the lock.
func (s *State) nextMiner() (string, error) {
	latest := s.latestBlock()
	if latest.IsZero() {
		return s.knownPeers.FirstMiner()
	}
	return s.knownPeers.NextMiner(latest.Miner())
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockJSON, err := block.Encode()
	if err != nil {
		blockJSON, _ = json.Marshal(err.Error())
	}

	s.evHandler(`viewer: block: %s`, string(blockJSON))
}
