// Package wire implements the engine's deterministic binary encoding.
//
// The format is fixed, not incidental serialization behavior. Two
// implementations that agree on these rules produce byte-identical output:
//
//   - uint8/16/32/64 (and named types of them): little-endian, fixed width.
//   - int/uint: compact natural encoding, 1-9 bytes (see natural.go).
//   - bool: one octet, 0x00 or 0x01.
//   - [N]byte and other arrays: elements in order, no length prefix.
//   - []byte and other slices: compact length prefix, then elements.
//   - strings: encoded as their UTF-8 bytes, compact length prefix.
//   - maps: compact length prefix, then key/value pairs in ascending key order.
//   - pointers: one marker octet (0x00 nil, 0x01 present), then the value.
//   - structs: exported fields in declaration order; unexported fields skipped.
//   - ed25519.PublicKey: 32 raw octets, no length prefix.
//
// Types may take over their own encoding by implementing Marshaler or
// Unmarshaler.
package wire

import (
	"errors"
	"io"
)

// Version identifies the encoding rules above. It is carried in block headers
// so that a decoder can refuse bytes produced under different rules.
const Version uint8 = 1

// Marshaler is implemented by types that encode themselves.
type Marshaler interface {
	MarshalWire() ([]byte, error)
}

// Unmarshaler is implemented by types that decode themselves.
type Unmarshaler interface {
	UnmarshalWire(r io.Reader) error
}

var (
	ErrInvalidPointerMarker = errors.New("invalid pointer marker")
	ErrInvalidBool          = errors.New("invalid boolean octet")
	ErrNonPointerTarget     = errors.New("unmarshal target must be a non-nil pointer")
	ErrTrailingBytes        = errors.New("trailing bytes after value")
)
