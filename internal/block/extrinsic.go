package block

import (
	"crypto/ed25519"
	"fmt"

	"github.com/loxadim/substrate/internal/crypto"
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/pkg/serialization/codec/wire"
)

// ModuleID discriminates the closed set of dispatchable modules. Part of the
// wire format; values are stable.
type ModuleID uint8

const (
	ModuleTimestamp ModuleID = iota
	ModuleBalances
	ModuleAuthority
	ModuleSession
	ModuleStaking
	ModuleGovernance
	ModuleTreasury
	ModuleContracts
)

func (m ModuleID) String() string {
	switch m {
	case ModuleTimestamp:
		return "timestamp"
	case ModuleBalances:
		return "balances"
	case ModuleAuthority:
		return "authority"
	case ModuleSession:
		return "session"
	case ModuleStaking:
		return "staking"
	case ModuleGovernance:
		return "governance"
	case ModuleTreasury:
		return "treasury"
	case ModuleContracts:
		return "contracts"
	default:
		return fmt.Sprintf("module(%d)", uint8(m))
	}
}

// Call is an opaque dispatchable: a target module plus a payload the module
// decodes itself. The engine routes calls without understanding them.
type Call struct {
	Module  ModuleID
	Payload []byte
}

// Signature binds a signed extrinsic to its origin account.
type Signature struct {
	// Signer is the originating account.
	Signer ledger.AccountID
	// Nonce must equal the signer's stored nonce exactly.
	Nonce ledger.Nonce
	// Sig is an ed25519 signature over SigningPayload.
	Sig crypto.Ed25519Signature
}

// Extrinsic is a unit of work included in a block: a call under either a
// signed account origin or no origin (inherent). Never mutated after
// construction.
type Extrinsic struct {
	// Signature is nil for unsigned extrinsics.
	Signature *Signature
	Call      Call
}

// IsSigned reports whether the extrinsic carries an account origin.
func (e Extrinsic) IsSigned() bool {
	return e.Signature != nil
}

// Bytes returns the canonical wire encoding of the extrinsic.
func (e Extrinsic) Bytes() ([]byte, error) {
	return wire.Marshal(e)
}

// Hash is the blake2b digest of the wire-encoded extrinsic.
func (e Extrinsic) Hash() (crypto.Hash, error) {
	encoded, err := e.Bytes()
	if err != nil {
		return crypto.Hash{}, err
	}
	return crypto.HashData(encoded), nil
}

// SigningPayload is the byte sequence a signed extrinsic's signature covers:
// the wire encoding of (signer, nonce, call).
func SigningPayload(signer ledger.AccountID, nonce ledger.Nonce, call Call) ([]byte, error) {
	payload := struct {
		Signer ledger.AccountID
		Nonce  ledger.Nonce
		Call   Call
	}{signer, nonce, call}
	encoded, err := wire.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal signing payload: %w", err)
	}
	return encoded, nil
}

// NewSigned constructs and signs an extrinsic with the given key. The signer
// address is derived from the key's public half.
func NewSigned(prv ed25519.PrivateKey, nonce ledger.Nonce, call Call) (Extrinsic, error) {
	signer := ledger.NewAccountID(prv.Public().(ed25519.PublicKey))
	payload, err := SigningPayload(signer, nonce, call)
	if err != nil {
		return Extrinsic{}, err
	}
	return Extrinsic{
		Signature: &Signature{
			Signer: signer,
			Nonce:  nonce,
			Sig:    crypto.Sign(prv, payload),
		},
		Call: call,
	}, nil
}

// NewUnsigned constructs an inherent extrinsic with no origin.
func NewUnsigned(call Call) Extrinsic {
	return Extrinsic{Call: call}
}
