package runtime

import "errors"

// Rejection-level errors. The offending extrinsic or proposal is refused, the
// block continues; these surface in the event log, never as process failures.
var (
	ErrBadSignature              = errors.New("bad signature")
	ErrInvalidNonce              = errors.New("invalid nonce")
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrUnknownCall               = errors.New("unknown call")
	ErrDecodeFailure             = errors.New("decode failure")
	ErrBadOrigin                 = errors.New("bad origin")
	ErrInsufficientTreasuryFunds = errors.New("insufficient treasury funds")
)
