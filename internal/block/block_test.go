package block

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_HeaderRoundTrip(t *testing.T) {
	h := Header{Format: FormatVersion, Height: 7, Timestamp: 3, AuthorIndex: 2}
	encoded, err := h.Bytes()
	require.NoError(t, err)

	decoded, err := HeaderFromBytes(encoded)
	require.NoError(t, err)
	require.Equal(t, h, decoded)
}

func Test_HeaderRejectsUnknownFormat(t *testing.T) {
	h := Header{Format: FormatVersion + 1, Height: 7}
	encoded, err := h.Bytes()
	require.NoError(t, err)

	_, err = HeaderFromBytes(encoded)
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func Test_BlockRejectsUnknownFormat(t *testing.T) {
	// Format zero predates the versioned encoding.
	b := Block{Header: Header{Format: 0, Height: 1}}
	encoded, err := b.Bytes()
	require.NoError(t, err)

	_, err = BlockFromBytes(encoded)
	require.ErrorIs(t, err, ErrUnknownFormat)
}
