package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaturalEncoding(t *testing.T) {
	testCases := []struct {
		value    uint64
		expected []byte
	}{
		{0, []byte{0}},
		{1, []byte{1}},
		{127, []byte{127}},
		{128, []byte{0b1000_0000, 128}},
		{1023, []byte{0b1000_0011, 0xff}},
		{1 << 14, []byte{0b1100_0000, 0, 0b0100_0000}},
		{^uint64(0), []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	for _, tc := range testCases {
		encoded, err := Marshal(uint(tc.value))
		require.NoError(t, err)
		assert.Equal(t, tc.expected, encoded, "value %d", tc.value)

		var decoded uint
		require.NoError(t, Unmarshal(encoded, &decoded))
		assert.Equal(t, tc.value, uint64(decoded))
	}
}

func TestFixedWidthLittleEndian(t *testing.T) {
	encoded, err := Marshal(uint32(0x01020304))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, encoded)

	encoded, err = Marshal(uint16(5))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x00}, encoded)
}

func TestStructRoundTrip(t *testing.T) {
	type inner struct {
		N uint32
		B []byte
	}
	type outer struct {
		ID     [4]byte
		Flag   bool
		Maybe  *uint64
		Items  []inner
		Counts map[uint8]uint32
	}

	n := uint64(42)
	original := outer{
		ID:    [4]byte{1, 2, 3, 4},
		Flag:  true,
		Maybe: &n,
		Items: []inner{
			{N: 7, B: []byte{0xaa}},
			{N: 9, B: nil},
		},
		Counts: map[uint8]uint32{3: 30, 1: 10, 2: 20},
	}

	encoded, err := Marshal(original)
	require.NoError(t, err)

	var decoded outer
	require.NoError(t, Unmarshal(encoded, &decoded))
	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.Flag, decoded.Flag)
	require.NotNil(t, decoded.Maybe)
	assert.Equal(t, n, *decoded.Maybe)
	require.Len(t, decoded.Items, 2)
	assert.Equal(t, original.Items[0], decoded.Items[0])
	assert.Equal(t, original.Counts, decoded.Counts)
}

func TestStringEncoding(t *testing.T) {
	encoded, err := Marshal("hi")
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 'h', 'i'}, encoded)

	var decoded string
	require.NoError(t, Unmarshal(encoded, &decoded))
	assert.Equal(t, "hi", decoded)

	// Named string types go through reflection.
	type kind string
	encoded, err = Marshal(kind("x"))
	require.NoError(t, err)
	var k kind
	require.NoError(t, Unmarshal(encoded, &k))
	assert.Equal(t, kind("x"), k)
}

func TestMapEncodingIsCanonical(t *testing.T) {
	// Two maps with the same contents built in different orders must encode
	// to the same bytes.
	a := map[uint32]uint64{}
	b := map[uint32]uint64{}
	for i := uint32(0); i < 10; i++ {
		a[i] = uint64(i * 2)
	}
	for i := int32(9); i >= 0; i-- {
		b[uint32(i)] = uint64(i * 2)
	}

	ea, err := Marshal(a)
	require.NoError(t, err)
	eb, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, ea, eb)
}

func TestNilPointerMarker(t *testing.T) {
	type holder struct {
		V *uint32
	}

	encoded, err := Marshal(holder{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, encoded)

	var decoded holder
	require.NoError(t, Unmarshal(encoded, &decoded))
	assert.Nil(t, decoded.V)
}

func TestUnmarshalRejectsTrailingBytes(t *testing.T) {
	encoded, err := Marshal(uint16(1))
	require.NoError(t, err)

	var v uint16
	err = Unmarshal(append(encoded, 0xff), &v)
	require.ErrorIs(t, err, ErrTrailingBytes)
}

func TestUnmarshalRequiresPointer(t *testing.T) {
	var v uint16
	err := Unmarshal([]byte{0x01, 0x00}, v)
	require.ErrorIs(t, err, ErrNonPointerTarget)
}
