package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

/*
	A canonical binary codec on top of the protobuf wire format.
	Fields are always written in ascending field-number order and zero values are omitted, so a value has
	exactly one encoding. That makes the bytes safe to hash: every participant arrives at the same digest.
*/

// BinaryMessage is a type that knows its own wire layout
type BinaryMessage interface {
	// AppendWire() appends the canonical encoding of the message to b
	AppendWire(b []byte) []byte
	// ConsumeField() decodes a single field value and returns the bytes read; 0 means the field is unknown
	ConsumeField(num protowire.Number, typ protowire.Type, bz []byte) (int, error)
}

var ErrWireType = errors.New("unexpected wire type")

// Marshal() converts a message to its canonical bytes
func Marshal(m BinaryMessage) []byte { return m.AppendWire(nil) }

// Unmarshal() populates the message from bytes, skipping unknown fields
func Unmarshal(bz []byte, m BinaryMessage) error {
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return protowire.ParseError(n)
		}
		bz = bz[n:]
		n, err := m.ConsumeField(num, typ, bz)
		if err != nil {
			return err
		}
		if n == 0 {
			// the message did not recognise the field
			if n = protowire.ConsumeFieldValue(num, typ, bz); n < 0 {
				return protowire.ParseError(n)
			}
		}
		bz = bz[n:]
	}
	return nil
}

// Check() converts the result of a Consume helper into the ConsumeField return values
func Check(num protowire.Number, n int) (int, error) {
	switch {
	case n == wireTypeMismatch:
		return 0, fmt.Errorf("%w for field %d", ErrWireType, num)
	case n < 0:
		return 0, protowire.ParseError(n)
	}
	return n, nil
}

// wireTypeMismatch is returned by the Consume helpers when a known field arrives with the wrong type
const wireTypeMismatch = -100

// AppendString() writes a string field, omitting the empty string
func AppendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// AppendBytes() writes a bytes field, omitting empty slices
func AppendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// AppendUint64() writes a varint field, omitting zero
func AppendUint64(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// AppendInt64() writes a zig-zag encoded varint field, omitting zero
func AppendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

// AppendMessage() writes an embedded message; unlike scalars it is always written so repeated entries keep their count
func AppendMessage(b []byte, num protowire.Number, m BinaryMessage) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.AppendWire(nil))
}

// ConsumeString() reads a string field value
func ConsumeString(typ protowire.Type, bz []byte, out *string) int {
	if typ != protowire.BytesType {
		return wireTypeMismatch
	}
	v, n := protowire.ConsumeString(bz)
	if n >= 0 {
		*out = v
	}
	return n
}

// ConsumeBytes() reads a bytes field value into a fresh slice
func ConsumeBytes(typ protowire.Type, bz []byte, out *[]byte) int {
	if typ != protowire.BytesType {
		return wireTypeMismatch
	}
	v, n := protowire.ConsumeBytes(bz)
	if n >= 0 {
		*out = append([]byte(nil), v...)
	}
	return n
}

// ConsumeUint64() reads a varint field value
func ConsumeUint64(typ protowire.Type, bz []byte, out *uint64) int {
	if typ != protowire.VarintType {
		return wireTypeMismatch
	}
	v, n := protowire.ConsumeVarint(bz)
	if n >= 0 {
		*out = v
	}
	return n
}

// ConsumeInt64() reads a zig-zag encoded varint field value
func ConsumeInt64(typ protowire.Type, bz []byte, out *int64) int {
	if typ != protowire.VarintType {
		return wireTypeMismatch
	}
	v, n := protowire.ConsumeVarint(bz)
	if n >= 0 {
		*out = protowire.DecodeZigZag(v)
	}
	return n
}

// ConsumeMessage() decodes an embedded message field value into m
func ConsumeMessage(typ protowire.Type, bz []byte, m BinaryMessage) (int, error) {
	if typ != protowire.BytesType {
		return 0, fmt.Errorf("%w for embedded message", ErrWireType)
	}
	v, n := protowire.ConsumeBytes(bz)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, Unmarshal(v, m)
}
