package lib

import (
	"fmt"

	"github.com/canopy-network/dpos/lib/codec"
	"github.com/canopy-network/dpos/lib/crypto"
	"google.golang.org/protobuf/encoding/protowire"
)

// Transaction is an immutable transfer of funds between two accounts, with derived tax and fee
type Transaction struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount Amount `json:"amount"`
	Tax    Amount `json:"tax"`
	Fee    Amount `json:"fee"`
}

// wire field numbers of a Transaction
const (
	txFieldFrom protowire.Number = iota + 1
	txFieldTo
	txFieldAmount
	txFieldTax
	txFieldFee
)

var _ codec.BinaryMessage = &Transaction{}

// NewTransaction() derives the tax and fee of a transfer from the rates
func NewTransaction(from, to string, amount Amount, rates Rates) (*Transaction, ErrorI) {
	tx := &Transaction{
		From:   from,
		To:     to,
		Amount: amount,
		Tax:    amount.MulRate(rates.TaxPPM),
		Fee:    amount.MulRate(rates.FeePPM),
	}
	if err := tx.Check(); err != nil {
		return nil, err
	}
	return tx, nil
}

// Check() validates the structural well-formedness of the transaction
func (x *Transaction) Check() ErrorI {
	if x == nil {
		return ErrNilTransaction()
	}
	if x.From == "" || x.To == "" {
		return ErrEmptyAccountID()
	}
	if x.Amount < 0 || x.Tax < 0 || x.Fee < 0 {
		return ErrInvalidAmount(fmt.Sprintf("%s/%s/%s", x.Amount, x.Tax, x.Fee))
	}
	return nil
}

// Cost() is what the sender pays for the transfer
func (x *Transaction) Cost() Amount { return x.Amount + x.Tax + x.Fee }

// Bytes() returns the canonical encoding of the transaction
func (x *Transaction) Bytes() []byte { return codec.Marshal(x) }

// Hash() identifies the transaction by the digest of its canonical encoding
func (x *Transaction) Hash() []byte { return crypto.Hash(x.Bytes()) }

// HashString() is the hex form of Hash()
func (x *Transaction) HashString() string { return crypto.HashString(x.Bytes()) }

// Copy() returns an independent copy
func (x *Transaction) Copy() *Transaction {
	cp := *x
	return &cp
}

func (x *Transaction) String() string {
	return fmt.Sprintf("%s -> %s: %s (tax %s, fee %s)", x.From, x.To, x.Amount, x.Tax, x.Fee)
}

// AppendWire() encodes the transaction in field order
func (x *Transaction) AppendWire(b []byte) []byte {
	b = codec.AppendString(b, txFieldFrom, x.From)
	b = codec.AppendString(b, txFieldTo, x.To)
	b = codec.AppendInt64(b, txFieldAmount, int64(x.Amount))
	b = codec.AppendInt64(b, txFieldTax, int64(x.Tax))
	return codec.AppendInt64(b, txFieldFee, int64(x.Fee))
}

// ConsumeField() decodes a single transaction field
func (x *Transaction) ConsumeField(num protowire.Number, typ protowire.Type, bz []byte) (int, error) {
	switch num {
	case txFieldFrom:
		return codec.Check(num, codec.ConsumeString(typ, bz, &x.From))
	case txFieldTo:
		return codec.Check(num, codec.ConsumeString(typ, bz, &x.To))
	case txFieldAmount:
		return codec.Check(num, codec.ConsumeInt64(typ, bz, (*int64)(&x.Amount)))
	case txFieldTax:
		return codec.Check(num, codec.ConsumeInt64(typ, bz, (*int64)(&x.Tax)))
	case txFieldFee:
		return codec.Check(num, codec.ConsumeInt64(typ, bz, (*int64)(&x.Fee)))
	}
	return 0, nil
}

// UnmarshalTransaction() decodes a transaction from its canonical encoding
func UnmarshalTransaction(bz []byte) (*Transaction, ErrorI) {
	tx := new(Transaction)
	if err := codec.Unmarshal(bz, tx); err != nil {
		return nil, ErrUnmarshal(err)
	}
	return tx, nil
}
