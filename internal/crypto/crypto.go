package crypto

import (
	"crypto/ed25519"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

const (
	HashSize             = 32
	Ed25519PublicSize    = ed25519.PublicKeySize
	Ed25519PrivateSize   = ed25519.PrivateKeySize
	Ed25519SignatureSize = ed25519.SignatureSize
)

// Hash is a 32-byte blake2b digest.
type Hash [HashSize]byte

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// HashData computes the blake2b-256 digest of data.
func HashData(data []byte) Hash {
	return blake2b.Sum256(data)
}

// Ed25519Signature is a detached signature over a wire-encoded payload.
type Ed25519Signature [Ed25519SignatureSize]byte

// VerifySignature reports whether sig is a valid signature of message under pub.
func VerifySignature(pub ed25519.PublicKey, message []byte, sig Ed25519Signature) bool {
	if len(pub) != Ed25519PublicSize {
		return false
	}
	return ed25519.Verify(pub, message, sig[:])
}

// Sign produces a detached signature of message with prv.
func Sign(prv ed25519.PrivateKey, message []byte) Ed25519Signature {
	var sig Ed25519Signature
	copy(sig[:], ed25519.Sign(prv, message))
	return sig
}
