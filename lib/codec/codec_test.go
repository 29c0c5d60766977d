package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// testMessage exercises every helper of the codec
type testMessage struct {
	Name   string
	Data   []byte
	Count  uint64
	Delta  int64
	Nested []*testMessage
}

func (m *testMessage) AppendWire(b []byte) []byte {
	b = AppendString(b, 1, m.Name)
	b = AppendBytes(b, 2, m.Data)
	b = AppendUint64(b, 3, m.Count)
	b = AppendInt64(b, 4, m.Delta)
	for _, n := range m.Nested {
		b = AppendMessage(b, 5, n)
	}
	return b
}

func (m *testMessage) ConsumeField(num protowire.Number, typ protowire.Type, bz []byte) (int, error) {
	switch num {
	case 1:
		return Check(num, ConsumeString(typ, bz, &m.Name))
	case 2:
		return Check(num, ConsumeBytes(typ, bz, &m.Data))
	case 3:
		return Check(num, ConsumeUint64(typ, bz, &m.Count))
	case 4:
		return Check(num, ConsumeInt64(typ, bz, &m.Delta))
	case 5:
		n := new(testMessage)
		read, err := ConsumeMessage(typ, bz, n)
		if err != nil {
			return 0, err
		}
		m.Nested = append(m.Nested, n)
		return read, nil
	}
	return 0, nil
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		detail  string
		message *testMessage
	}{
		{
			name:    "zero",
			detail:  "a zero value encodes to nothing",
			message: &testMessage{},
		},
		{
			name:    "scalars",
			detail:  "every scalar kind",
			message: &testMessage{Name: "del1", Data: []byte{1, 2}, Count: 300, Delta: -42},
		},
		{
			name:   "nested order",
			detail: "repeated embedded messages keep their order, including empty ones",
			message: &testMessage{Nested: []*testMessage{
				{Name: "b"}, {}, {Name: "a", Delta: 1},
			}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			bz := Marshal(test.message)
			got := new(testMessage)
			require.NoError(t, Unmarshal(bz, got))
			require.Equal(t, test.message, got)
			// encoding is canonical
			require.Equal(t, bz, Marshal(got))
		})
	}
}

func TestZeroValuesOmitted(t *testing.T) {
	require.Empty(t, Marshal(&testMessage{}))
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name   string
		detail string
		bz     []byte
		wire   bool
	}{
		{
			name:   "bad tag",
			detail: "a truncated varint tag",
			bz:     []byte{0x80},
		},
		{
			name:   "wrong type",
			detail: "a string field sent as varint",
			bz:     protowire.AppendVarint(protowire.AppendTag(nil, 1, protowire.VarintType), 1),
			wire:   true,
		},
		{
			name:   "truncated unknown",
			detail: "an unknown length-delimited field that runs past the end",
			bz:     append(protowire.AppendTag(nil, 9, protowire.BytesType), 5),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := Unmarshal(test.bz, new(testMessage))
			require.Error(t, err)
			if test.wire {
				require.ErrorIs(t, err, ErrWireType)
			}
		})
	}
}
