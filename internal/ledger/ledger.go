// Package ledger holds the primitive types shared by every runtime module:
// account identities, balances and nonces.
package ledger

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"

	"github.com/loxadim/substrate/internal/crypto"
)

// AccountID is a public-key-derived address: the blake2b digest of the
// account's ed25519 public key.
type AccountID [crypto.HashSize]byte

// NewAccountID derives the address for an ed25519 public key.
func NewAccountID(pub ed25519.PublicKey) AccountID {
	return AccountID(crypto.HashData(pub))
}

func (a AccountID) String() string {
	return hex.EncodeToString(a[:])
}

// Compare orders account ids lexicographically. Used wherever iteration order
// must be deterministic.
func (a AccountID) Compare(b AccountID) int {
	return bytes.Compare(a[:], b[:])
}

// Balance is a fungible token amount.
type Balance = uint64

// Nonce counts the extrinsics admitted from an account. It increases by
// exactly one per admitted extrinsic, replay and gap nonces are both rejected.
type Nonce = uint64

// Account is the per-address ledger record.
type Account struct {
	// Free is spendable balance.
	Free Balance
	// Reserved is held for deposits (governance, staking bonds) and cannot be
	// spent until unreserved.
	Reserved Balance
	// Nonce of the next admissible extrinsic.
	Nonce Nonce
	// PublicKey the address was derived from, length-prefixed on the wire.
	// Empty for accounts that have only ever received funds; such accounts
	// cannot originate extrinsics until a key is registered for them.
	PublicKey []byte
}

// Total is the account's full balance, free plus reserved.
func (a Account) Total() Balance {
	return a.Free + a.Reserved
}
