package lib

import (
	"bytes"
	"fmt"
	"time"

	"github.com/canopy-network/dpos/lib/codec"
	"github.com/canopy-network/dpos/lib/crypto"
	"google.golang.org/protobuf/encoding/protowire"
)

// Block is an ordered batch of transactions plus chain-linkage metadata
type Block struct {
	Committer     string         `json:"committer,omitempty"`     // the delegate chosen to commit; empty until selection
	PrevBlockHash HexBytes       `json:"prevBlockHash,omitempty"` // nil for the chain root
	Height        uint64         `json:"height"`                  // 1 for the first block after genesis
	Timestamp     uint64         `json:"timestamp"`               // unix microseconds at creation
	Transactions  []*Transaction `json:"transactions,omitempty"`  // application order on the ledger
}

// wire field numbers of a Block
const (
	blockFieldCommitter protowire.Number = iota + 1
	blockFieldPrevBlockHash
	blockFieldHeight
	blockFieldTimestamp
	blockFieldTransactions
)

var _ codec.BinaryMessage = &Block{}

// NewBlock() creates an empty block-in-progress that follows last (or a root block if last is nil)
func NewBlock(last *Block, now time.Time) *Block {
	b := &Block{Height: 1, Timestamp: uint64(now.UnixMicro())}
	if last != nil {
		b.PrevBlockHash, b.Height = last.Hash(), last.Height+1
	}
	return b
}

// Check() validates the structure of the block and each of its transactions
func (x *Block) Check() ErrorI {
	if x == nil {
		return ErrNilBlock()
	}
	if x.Height == 0 {
		return ErrInvalidHeight(1, 0)
	}
	if x.PrevBlockHash != nil && len(x.PrevBlockHash) != crypto.HashSize {
		return ErrWrongLengthHash()
	}
	for _, tx := range x.Transactions {
		if err := tx.Check(); err != nil {
			return err
		}
	}
	return nil
}

// IsRoot() reports whether the block is the first of the chain and exempt from linkage checks
func (x *Block) IsRoot() bool { return x.PrevBlockHash == nil }

// Link() makes the block follow last, overwriting the linkage only if it is not already consistent
func (x *Block) Link(last *Block) {
	if last == nil {
		x.PrevBlockHash, x.Height = nil, 1
		return
	}
	if x.CheckLink(last) == nil {
		return
	}
	x.PrevBlockHash, x.Height = last.Hash(), last.Height+1
}

// CheckLink() validates height = last.height + 1 and prevBlockHash = hash(last)
func (x *Block) CheckLink(last *Block) ErrorI {
	if last == nil {
		if x.Height != 1 {
			return ErrInvalidHeight(1, x.Height)
		}
		return nil
	}
	if x.Height != last.Height+1 {
		return ErrInvalidHeight(last.Height+1, x.Height)
	}
	if !bytes.Equal(x.PrevBlockHash, last.Hash()) {
		return NewError(CodeNonSequentialBlock, ConsensusModule, fmt.Sprintf("block %d does not reference the hash of block %d", x.Height, last.Height))
	}
	return nil
}

// AddTransaction() appends a transaction after structural checks
func (x *Block) AddTransaction(tx *Transaction) ErrorI {
	if err := tx.Check(); err != nil {
		return err
	}
	x.Transactions = append(x.Transactions, tx)
	return nil
}

// Bytes() returns the canonical encoding of the block
func (x *Block) Bytes() []byte { return codec.Marshal(x) }

// Hash() is a pure function of the canonical encoding, used for prevBlockHash linkage
func (x *Block) Hash() HexBytes { return crypto.Hash(x.Bytes()) }

// TransactionRoot() commits to the ordered transaction list independently of the linkage metadata
func (x *Block) TransactionRoot() HexBytes {
	items := make([][]byte, len(x.Transactions))
	for i, tx := range x.Transactions {
		items[i] = tx.Bytes()
	}
	return crypto.MerkleRoot(items)
}

// Copy() returns a deep copy
func (x *Block) Copy() *Block {
	cp := &Block{
		Committer: x.Committer,
		Height:    x.Height,
		Timestamp: x.Timestamp,
	}
	if x.PrevBlockHash != nil {
		cp.PrevBlockHash = append(HexBytes(nil), x.PrevBlockHash...)
	}
	for _, tx := range x.Transactions {
		cp.Transactions = append(cp.Transactions, tx.Copy())
	}
	return cp
}

// Equals() compares two blocks by their canonical encoding
func (x *Block) Equals(b *Block) bool {
	if x == nil || b == nil {
		return x == b
	}
	return bytes.Equal(x.Bytes(), b.Bytes())
}

// Time() converts the timestamp back into a time
func (x *Block) Time() time.Time { return time.UnixMicro(int64(x.Timestamp)) }

// AppendWire() encodes the block in field order
func (x *Block) AppendWire(b []byte) []byte {
	b = codec.AppendString(b, blockFieldCommitter, x.Committer)
	b = codec.AppendBytes(b, blockFieldPrevBlockHash, x.PrevBlockHash)
	b = codec.AppendUint64(b, blockFieldHeight, x.Height)
	b = codec.AppendUint64(b, blockFieldTimestamp, x.Timestamp)
	for _, tx := range x.Transactions {
		b = codec.AppendMessage(b, blockFieldTransactions, tx)
	}
	return b
}

// ConsumeField() decodes a single block field; repeated transactions are appended in arrival order
func (x *Block) ConsumeField(num protowire.Number, typ protowire.Type, bz []byte) (int, error) {
	switch num {
	case blockFieldCommitter:
		return codec.Check(num, codec.ConsumeString(typ, bz, &x.Committer))
	case blockFieldPrevBlockHash:
		return codec.Check(num, codec.ConsumeBytes(typ, bz, (*[]byte)(&x.PrevBlockHash)))
	case blockFieldHeight:
		return codec.Check(num, codec.ConsumeUint64(typ, bz, &x.Height))
	case blockFieldTimestamp:
		return codec.Check(num, codec.ConsumeUint64(typ, bz, &x.Timestamp))
	case blockFieldTransactions:
		tx := new(Transaction)
		n, err := codec.ConsumeMessage(typ, bz, tx)
		if err != nil {
			return 0, err
		}
		x.Transactions = append(x.Transactions, tx)
		return n, nil
	}
	return 0, nil
}

// UnmarshalBlock() decodes a block from its canonical encoding
func UnmarshalBlock(bz []byte) (*Block, ErrorI) {
	if len(bz) == 0 {
		return nil, ErrNilBlock()
	}
	b := new(Block)
	if err := codec.Unmarshal(bz, b); err != nil {
		return nil, ErrUnmarshal(err)
	}
	return b, nil
}
