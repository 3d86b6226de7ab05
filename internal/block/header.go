package block

import (
	"errors"
	"fmt"

	"github.com/loxadim/substrate/internal/crypto"
	"github.com/loxadim/substrate/pkg/serialization/codec/wire"
)

// FormatVersion is the current header format. Blocks carrying any other
// value are refused at decode boundaries.
const FormatVersion uint8 = 1

// ErrUnknownFormat refuses headers encoded under a different format version.
var ErrUnknownFormat = errors.New("unknown header format")

// Header commits to everything needed to execute and chain a block.
type Header struct {
	// Format is the wire encoding version the block was produced under.
	Format uint8
	// ParentHash is the hash of the parent header; zero for genesis.
	ParentHash crypto.Hash
	// Height is the block number, parent height plus one.
	Height uint64
	// PriorStateRoot is the hash of the serialized state this block was
	// built on.
	PriorStateRoot crypto.Hash
	// ExtrinsicsRoot commits to the block body.
	ExtrinsicsRoot crypto.Hash
	// Timestamp is the wall-clock claim for this block in milliseconds,
	// monotonically non-decreasing relative to the parent.
	Timestamp uint64
	// AuthorIndex is the position of the authoring validator in the active
	// authority set.
	AuthorIndex uint32
}

// Bytes returns the canonical wire encoding of the header.
func (h Header) Bytes() ([]byte, error) {
	return wire.Marshal(h)
}

// Hash is the blake2b digest of the wire-encoded header.
func (h Header) Hash() (crypto.Hash, error) {
	encoded, err := wire.Marshal(h)
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("marshal header: %w", err)
	}
	return crypto.HashData(encoded), nil
}

// HeaderFromBytes decodes a header from its canonical wire encoding.
func HeaderFromBytes(data []byte) (Header, error) {
	var h Header
	if err := wire.Unmarshal(data, &h); err != nil {
		return Header{}, fmt.Errorf("unmarshal header: %w", err)
	}
	if h.Format != FormatVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrUnknownFormat, h.Format)
	}
	return h, nil
}
