package runtime

import "github.com/loxadim/substrate/internal/ledger"

// OriginKind is the authority context a call is dispatched under.
type OriginKind uint8

const (
	// OriginNone: no authority, inherent data only.
	OriginNone OriginKind = iota
	// OriginSigned: an account that passed signature and nonce checks.
	OriginSigned
	// OriginRoot: elevated privilege, held only by the engine itself when
	// enacting approved governance proposals.
	OriginRoot
)

// Origin carries the dispatch authority. Signer is set only for OriginSigned.
type Origin struct {
	Kind   OriginKind
	Signer ledger.AccountID
}

func Signed(signer ledger.AccountID) Origin {
	return Origin{Kind: OriginSigned, Signer: signer}
}

func Root() Origin {
	return Origin{Kind: OriginRoot}
}

func None() Origin {
	return Origin{Kind: OriginNone}
}

// IsRoot reports elevated privilege.
func (o Origin) IsRoot() bool {
	return o.Kind == OriginRoot
}
