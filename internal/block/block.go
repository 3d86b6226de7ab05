package block

import (
	"fmt"

	"github.com/loxadim/substrate/internal/crypto"
	"github.com/loxadim/substrate/pkg/serialization/codec/wire"
)

// Block is an ordered sequence of extrinsics under a header. Blocks are
// immutable once constructed; execution is a pure function of
// (prior state, block).
type Block struct {
	Header     Header
	Extrinsics []Extrinsic
}

// Bytes returns the canonical wire encoding of the block.
func (b Block) Bytes() ([]byte, error) {
	return wire.Marshal(b)
}

// BlockFromBytes decodes a block from its canonical wire encoding.
func BlockFromBytes(data []byte) (Block, error) {
	var b Block
	if err := wire.Unmarshal(data, &b); err != nil {
		return Block{}, fmt.Errorf("unmarshal block: %w", err)
	}
	if b.Header.Format != FormatVersion {
		return Block{}, fmt.Errorf("%w: %d", ErrUnknownFormat, b.Header.Format)
	}
	return b, nil
}

// ExtrinsicsRoot is the blake2b digest of the wire-encoded extrinsic
// sequence. The header commits to it so that two nodes agreeing on a header
// hash agree on the block body byte for byte.
func ExtrinsicsRoot(extrinsics []Extrinsic) (crypto.Hash, error) {
	encoded, err := wire.Marshal(extrinsics)
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("marshal extrinsics: %w", err)
	}
	return crypto.HashData(encoded), nil
}
