// Package executive is the top-level driver of block execution: it sequences
// per-block lifecycle hooks and per-extrinsic dispatch across the runtime
// modules, identically on every node.
package executive

import (
	"errors"
	"fmt"

	"github.com/loxadim/substrate/internal/authority"
	"github.com/loxadim/substrate/internal/balances"
	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/contracts"
	"github.com/loxadim/substrate/internal/crypto"
	"github.com/loxadim/substrate/internal/event"
	"github.com/loxadim/substrate/internal/governance"
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/runtime"
	"github.com/loxadim/substrate/internal/session"
	"github.com/loxadim/substrate/internal/staking"
	"github.com/loxadim/substrate/internal/state"
	"github.com/loxadim/substrate/internal/timestamp"
	"github.com/loxadim/substrate/internal/treasury"
	"github.com/loxadim/substrate/pkg/log"
)

var (
	// ErrBadHeight rejects a block that does not extend the state by one.
	ErrBadHeight = errors.New("block height does not follow state")
	// ErrStateRootMismatch rejects a block built on a different prior state.
	ErrStateRootMismatch = errors.New("prior state root mismatch")
	// ErrExtrinsicsRootMismatch rejects a body that does not match its header.
	ErrExtrinsicsRootMismatch = errors.New("extrinsics root mismatch")
)

// Executive drives blocks through the fixed module order. The order is
// static dependency order, decided once at startup: leaves first, the
// modules that consume them after.
type Executive struct {
	modules []runtime.Module
	router  *runtime.Router
}

// New assembles the full runtime.
func New() *Executive {
	router := runtime.NewRouter()

	stakingMod := staking.New()
	mods := []runtime.Module{
		timestamp.New(),
		authority.New(),
		balances.New(),
		session.New(stakingMod.OnSessionEnd),
		stakingMod,
		governance.New(router),
		treasury.New(),
		contracts.New(),
	}
	for _, m := range mods {
		m.RegisterCalls(router)
	}

	return &Executive{modules: mods, router: router}
}

// Router exposes the dispatch table, mainly for metadata.
func (e *Executive) Router() *runtime.Router {
	return e.router
}

// Metadata returns the runtime descriptor for external tooling.
func (e *Executive) Metadata() runtime.Version {
	return e.router.Metadata()
}

// InitializeBlock stages the header and runs every module's pre-block hook
// in dependency order. Any hook failure is fatal for the whole block; the
// caller must discard the state.
func (e *Executive) InitializeBlock(s *state.State, header block.Header) error {
	if header.Height != s.Height+1 {
		return fmt.Errorf("%w: state at %d, block claims %d", ErrBadHeight, s.Height, header.Height)
	}

	s.Height = header.Height
	s.ParentHash = header.ParentHash
	s.AuthorIndex = header.AuthorIndex
	s.Timestamp.Claim = header.Timestamp
	s.Events = nil

	for _, m := range e.modules {
		if err := m.OnInitialize(s); err != nil {
			return fmt.Errorf("initialize hook %s: %w", m.ID(), err)
		}
	}
	return nil
}

// ApplyExtrinsic admits and dispatches one extrinsic. Rejection-level
// outcomes (bad signature, bad nonce, unpayable fee, failed dispatch) are
// recorded in the event log and return nil: the block continues. A non-nil
// return is fatal.
//
// Admission order is fixed: signature, nonce, fee. The fee is charged and
// the nonce consumed before dispatch, and neither is returned when the
// dispatch fails; only the dispatch's own state changes roll back.
func (e *Executive) ApplyExtrinsic(s *state.State, ext block.Extrinsic) error {
	origin, rejection, err := e.admit(s, ext)
	if err != nil {
		return err
	}
	if rejection != nil {
		log.Runtime.Debug().Str("module", ext.Call.Module.String()).Err(rejection).Msg("extrinsic rejected")
		s.Events.Append(ext.Call.Module, event.KindExtrinsicRejected, []byte(rejection.Error()))
		return nil
	}

	snapshot := s.Copy()
	if dispatchErr := e.router.Dispatch(s, origin, ext.Call); dispatchErr != nil {
		// Roll back only the dispatch's effects. The fee charge and nonce
		// increment happened before the snapshot and survive inside it.
		*s = *snapshot
		s.Events.Append(ext.Call.Module, event.KindExtrinsicFailed, []byte(dispatchErr.Error()))
		return nil
	}
	s.Events.Append(ext.Call.Module, event.KindExtrinsicSuccess, nil)
	return nil
}

// admit runs the pre-dispatch checks and charges. A non-nil rejection means
// the extrinsic is refused without dispatch and without charge.
func (e *Executive) admit(s *state.State, ext block.Extrinsic) (runtime.Origin, error, error) {
	if !ext.IsSigned() {
		return runtime.None(), nil, nil
	}
	sig := ext.Signature

	acc := s.Accounts[sig.Signer]
	if len(acc.PublicKey) == 0 || ledger.NewAccountID(acc.PublicKey) != sig.Signer {
		return runtime.Origin{}, runtime.ErrBadSignature, nil
	}
	payload, err := block.SigningPayload(sig.Signer, sig.Nonce, ext.Call)
	if err != nil {
		return runtime.Origin{}, nil, fmt.Errorf("signing payload: %w", err)
	}
	if !crypto.VerifySignature(acc.PublicKey, payload, sig.Sig) {
		return runtime.Origin{}, runtime.ErrBadSignature, nil
	}

	// Too low is a replay, too high is a gap; both are rejected, never
	// buffered.
	if sig.Nonce != acc.Nonce {
		return runtime.Origin{}, runtime.ErrInvalidNonce, nil
	}

	fee, err := e.fee(s, ext)
	if err != nil {
		return runtime.Origin{}, nil, err
	}
	if acc.Free < fee {
		return runtime.Origin{}, runtime.ErrInsufficientFunds, nil
	}

	// The fee flows into the treasury pot; the nonce moves on. Both stand
	// regardless of what the dispatch does next.
	acc.Free -= fee
	acc.Nonce++
	s.Accounts[sig.Signer] = acc
	s.Treasury.Pot += fee

	return runtime.Signed(sig.Signer), nil, nil
}

// fee is a flat base charge plus a per-byte charge on the encoded extrinsic.
func (e *Executive) fee(s *state.State, ext block.Extrinsic) (ledger.Balance, error) {
	if s.Params.ByteFee == 0 {
		return s.Params.BaseFee, nil
	}
	encoded, err := ext.Bytes()
	if err != nil {
		return 0, fmt.Errorf("encode extrinsic: %w", err)
	}
	return s.Params.BaseFee + s.Params.ByteFee*ledger.Balance(len(encoded)), nil
}

// FinalizeBlock runs every module's post-block hook in the same order as
// initialize and returns the new state root. Session rotation, era payouts
// and governance tallies all happen here.
func (e *Executive) FinalizeBlock(s *state.State) (crypto.Hash, error) {
	for _, m := range e.modules {
		if err := m.OnFinalize(s); err != nil {
			return crypto.Hash{}, fmt.Errorf("finalize hook %s: %w", m.ID(), err)
		}
	}
	return s.Root()
}

// ExecuteBlock runs a whole block as a pure function of the prior state: it
// verifies the header binds the prior state and the body, executes on a deep
// copy and returns the post-state. Any fatal error leaves prior untouched
// and the block must be treated as unexecutable.
func (e *Executive) ExecuteBlock(prior *state.State, b block.Block) (*state.State, error) {
	priorRoot, err := prior.Root()
	if err != nil {
		return nil, err
	}
	if b.Header.PriorStateRoot != priorRoot {
		return nil, ErrStateRootMismatch
	}
	bodyRoot, err := block.ExtrinsicsRoot(b.Extrinsics)
	if err != nil {
		return nil, err
	}
	if b.Header.ExtrinsicsRoot != bodyRoot {
		return nil, ErrExtrinsicsRootMismatch
	}

	s := prior.Copy()
	if err := e.InitializeBlock(s, b.Header); err != nil {
		return nil, err
	}
	for i, ext := range b.Extrinsics {
		if err := e.ApplyExtrinsic(s, ext); err != nil {
			return nil, fmt.Errorf("extrinsic %d: %w", i, err)
		}
	}
	if _, err := e.FinalizeBlock(s); err != nil {
		return nil, err
	}
	return s, nil
}
