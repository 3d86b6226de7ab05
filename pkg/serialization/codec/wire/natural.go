package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

var errNinePrefix = errors.New("expected first octet to be 255 for 9-byte natural")

// putNatural encodes a natural number of up to 2^64 into 1-9 bytes. The first
// octet's leading one-bits give the count of little-endian payload octets that
// follow; the remaining prefix bits carry the high part of the value.
func putNatural(x uint64) []byte {
	var l uint8
	for l = 0; l < 8; l++ {
		if x < (1 << (7 * (l + 1))) {
			break
		}
	}
	out := make([]byte, 0, l+1)
	if l < 8 {
		prefix := uint8((256 - (1 << (8 - l))) + (x>>(8*l))&math.MaxUint8)
		out = append(out, prefix)
	} else {
		out = append(out, math.MaxUint8)
	}
	for i := 0; i < int(l); i++ {
		out = append(out, uint8((x>>(8*i))&math.MaxUint8))
	}
	return out
}

// naturalFromPrefix reconstructs the value from the prefix octet plus the l
// payload octets that followed it.
func naturalFromPrefix(serialized []byte, l uint8) (uint64, error) {
	if len(serialized) == 0 {
		return 0, nil
	}
	if len(serialized) > 8 {
		if serialized[0] != math.MaxUint8 {
			return 0, errNinePrefix
		}
		return binary.LittleEndian.Uint64(serialized[1:9]), nil
	}

	var u uint64
	for i := uint8(0); i < l; i++ {
		u |= uint64(serialized[i+1]) << (8 * i)
	}
	u |= uint64(serialized[0]&(math.MaxUint8>>l)) << (8 * l)
	return u, nil
}

// putFixed encodes x as l little-endian octets.
func putFixed(x uint64, l uint) []byte {
	out := make([]byte, l)
	for i := uint(0); i < l; i++ {
		out[i] = byte(x >> (8 * i))
	}
	return out
}

// fixedFrom decodes little-endian octets into a uint64.
func fixedFrom(b []byte) uint64 {
	var u uint64
	for i := range b {
		u |= uint64(b[i]) << (8 * i)
	}
	return u
}
