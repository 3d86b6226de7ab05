package testutils

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loxadim/substrate/internal/crypto"
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/state"
)

func RandomHash(t *testing.T) crypto.Hash {
	var hash crypto.Hash
	_, err := rand.Read(hash[:])
	require.NoError(t, err)
	return hash
}

// Keypair bundles an ed25519 key with its derived account identifier.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
	ID      ledger.AccountID
}

func RandomKeypair(t *testing.T) Keypair {
	pub, prv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return Keypair{Public: pub, Private: prv, ID: ledger.NewAccountID(pub)}
}

// SeededKeypair derives a keypair from a fixed seed byte, for tests that
// need stable account identities across runs.
func SeededKeypair(t *testing.T, seed byte) Keypair {
	seedBytes := make([]byte, ed25519.SeedSize)
	for i := range seedBytes {
		seedBytes[i] = seed
	}
	prv := ed25519.NewKeyFromSeed(seedBytes)
	pub := prv.Public().(ed25519.PublicKey)
	return Keypair{Public: pub, Private: prv, ID: ledger.NewAccountID(pub)}
}

// NewState builds a state with default parameters and one funded account
// per keypair, issuance set to match.
func NewState(t *testing.T, free ledger.Balance, pairs ...Keypair) *state.State {
	t.Helper()
	s := state.NewState(state.DefaultParams())
	for _, kp := range pairs {
		FundAccount(s, kp, free)
	}
	return s
}

// FundAccount inserts or tops up an account with the given free balance and
// keeps total issuance consistent.
func FundAccount(s *state.State, kp Keypair, free ledger.Balance) {
	acc := s.Accounts[kp.ID]
	acc.Free += free
	acc.PublicKey = append([]byte(nil), kp.Public...)
	s.Accounts[kp.ID] = acc
	s.TotalIssuance += free
}
