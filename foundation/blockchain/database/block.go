package database

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/a-raghavan/blockchain-consortium/foundation/validate"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ZeroHash represents a hash code of zeros. It is returned when a value
// can't be hashed.
const ZeroHash string = "0x0000000000000000000000000000000000000000000000000000000000000000"

// =============================================================================

// Block represents a group of transactions batched together. A block can't
// be changed once constructed, which keeps the hash in line with the
// content it was computed over.
type Block struct {
	number   uint64
	trans    []Tx
	prevHash string
	miner    string
	hash     string
}

// NewBlock constructs a block and computes its hash.
func NewBlock(number uint64, trans []Tx, prevHash string, miner string) Block {
	cpy := make([]Tx, len(trans))
	copy(cpy, trans)

	b := Block{
		number:   number,
		trans:    cpy,
		prevHash: prevHash,
		miner:    miner,
	}
	b.hash = b.CalculateHash()

	return b
}

// Number returns the position of the block in the chain starting at 1.
func (b Block) Number() uint64 {
	return b.number
}

// Transactions returns a copy of the ordered transactions in the block.
func (b Block) Transactions() []Tx {
	cpy := make([]Tx, len(b.trans))
	copy(cpy, b.trans)
	return cpy
}

// PrevHash returns the hash of the block this block extends.
func (b Block) PrevHash() string {
	return b.prevHash
}

// Miner returns the identity of the node that proposed the block.
func (b Block) Miner() string {
	return b.miner
}

// Hash returns the hash computed when the block was constructed.
func (b Block) Hash() string {
	return b.hash
}

// IsZero reports if this is the zero value rather than a constructed block.
func (b Block) IsZero() bool {
	return b.number == 0 && b.hash == ""
}

// CalculateHash recomputes the hash from the block contents.
func (b Block) CalculateHash() string {

	// Transactions are hashed through their canonical string form so
	// reordering or changing any one of them changes the block hash.
	trans := make([]string, len(b.trans))
	for i, tx := range b.trans {
		trans[i] = tx.String()
	}

	content := struct {
		Number   uint64   `json:"number"`
		Trans    []string `json:"transactions"`
		PrevHash string   `json:"previous_hash"`
		Miner    string   `json:"miner"`
	}{
		Number:   b.number,
		Trans:    trans,
		PrevHash: b.prevHash,
		Miner:    b.miner,
	}

	return Hash(content)
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	hash := b.hash
	if len(hash) > 10 {
		hash = hash[:10]
	}
	return fmt.Sprintf("B(#%s, %d, %d txs, %s, %s)", hash, b.number, len(b.trans), b.prevHash, b.miner)
}

// Encode returns the canonical interchange form of the block.
func (b Block) Encode() ([]byte, error) {
	return json.Marshal(NewBlockData(b))
}

// =============================================================================

// BlockData represents what is sent over the network. The hash travels
// with the block but is only a claim, the receiver recomputes it.
type BlockData struct {
	Number   uint64 `json:"number"`
	Trans    []Tx   `json:"transactions"`
	PrevHash string `json:"previous_hash"`
	Miner    string `json:"miner"`
	Hash     string `json:"hash"`
}

// NewBlockData constructs the value to serialize over the network.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Number:   block.number,
		Trans:    block.Transactions(),
		PrevHash: block.prevHash,
		Miner:    block.miner,
		Hash:     block.hash,
	}
}

// ToBlock converts the block data into a block, computing a fresh hash.
func ToBlock(blockData BlockData) Block {
	return NewBlock(blockData.Number, blockData.Trans, blockData.PrevHash, blockData.Miner)
}

// DecodeBlock converts the interchange form back into block data.
func DecodeBlock(data []byte) (BlockData, error) {
	var blockData BlockData
	if err := json.Unmarshal(data, &blockData); err != nil {
		return BlockData{}, malformed(err)
	}

	return blockData, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface. Every field must
// be present and every transaction must decode.
func (bd *BlockData) UnmarshalJSON(data []byte) error {
	var blkData struct {
		Number   *uint64 `json:"number" validate:"required"`
		Trans    []Tx    `json:"transactions" validate:"required"`
		PrevHash *string `json:"previous_hash" validate:"required"`
		Miner    *string `json:"miner" validate:"required"`
		Hash     *string `json:"hash" validate:"required"`
	}

	if err := json.Unmarshal(data, &blkData); err != nil {
		return malformed(err)
	}

	if err := validate.Check(blkData); err != nil {
		return malformed(err)
	}

	if _, err := hexutil.Decode(*blkData.Hash); err != nil {
		return malformed(fmt.Errorf("hash: %w", err))
	}

	*bd = BlockData{
		Number:   *blkData.Number,
		Trans:    blkData.Trans,
		PrevHash: *blkData.PrevHash,
		Miner:    *blkData.Miner,
		Hash:     *blkData.Hash,
	}

	return nil
}

// =============================================================================

// Hash returns a unique string for the value.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hexutil.Encode(hash[:])
}
