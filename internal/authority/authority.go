// Package authority is the consensus authority registry: the single owner of
// the active validator set. Other modules propose candidate sets through the
// one-slot pending change; only the session rotator promotes it.
package authority

import (
	"errors"
	"slices"

	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/event"
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/runtime"
	"github.com/loxadim/substrate/internal/state"
	"github.com/loxadim/substrate/pkg/serialization/codec/wire"
)

// ErrAlreadyQueued rejects a second queued change before the first is
// consumed. At most one rotation per session.
var ErrAlreadyQueued = errors.New("authority change already queued")

const KindSetChanged event.Kind = "authority.set_changed"

const callForceSetAuthorities uint8 = 0

// QueueChange stages a new authority set for activation at the next session
// boundary.
func QueueChange(s *state.State, next state.AuthoritySet) error {
	if s.Authority.Pending != nil {
		return ErrAlreadyQueued
	}
	queued := slices.Clone(next)
	s.Authority.Pending = (*state.AuthoritySet)(&queued)
	return nil
}

// Promote consumes the pending set, if any, into the active slot. Returns
// whether a change was applied; without a pending set the active set simply
// carries over.
func Promote(s *state.State) bool {
	if s.Authority.Pending == nil {
		return false
	}
	s.Authority.Active = *s.Authority.Pending
	s.Authority.Pending = nil
	payload, _ := wire.Marshal(s.Authority.Active)
	s.Events.Append(block.ModuleAuthority, KindSetChanged, payload)
	return true
}

// Active returns the current authority set.
func Active(s *state.State) state.AuthoritySet {
	return s.Authority.Active
}

// ForceSetAuthoritiesArgs replaces the active set immediately. Root only.
type ForceSetAuthoritiesArgs struct {
	Authorities []ledger.AccountID
}

type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) ID() block.ModuleID {
	return block.ModuleAuthority
}

func (m *Module) RegisterCalls(r *runtime.Router) {
	r.Register(runtime.CallMeta{
		Module: m.ID(), Index: callForceSetAuthorities, Name: "force_set_authorities", Policy: runtime.PolicyRoot,
	}, m.forceSetAuthorities)
}

func (m *Module) OnInitialize(s *state.State) error { return nil }
func (m *Module) OnFinalize(s *state.State) error   { return nil }

func (m *Module) forceSetAuthorities(s *state.State, origin runtime.Origin, args []byte) error {
	var a ForceSetAuthoritiesArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}
	s.Authority.Active = a.Authorities
	s.Authority.Pending = nil
	payload, _ := wire.Marshal(s.Authority.Active)
	s.Events.Append(m.ID(), KindSetChanged, payload)
	return nil
}

// NewForceSetAuthoritiesCall builds the root-only set override.
func NewForceSetAuthoritiesCall(authorities []ledger.AccountID) (block.Call, error) {
	encoded, err := wire.Marshal(ForceSetAuthoritiesArgs{Authorities: authorities})
	if err != nil {
		return block.Call{}, err
	}
	return block.Call{
		Module:  block.ModuleAuthority,
		Payload: append([]byte{callForceSetAuthorities}, encoded...),
	}, nil
}
