// Package session partitions block height into fixed-length sessions and
// drives validator-set rotation: at each boundary it promotes the pending
// authority set and collects the next candidate set from staking.
package session

import (
	"github.com/loxadim/substrate/internal/authority"
	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/event"
	"github.com/loxadim/substrate/internal/runtime"
	"github.com/loxadim/substrate/internal/state"
	"github.com/loxadim/substrate/pkg/serialization/codec/wire"
)

const KindNewSession event.Kind = "session.new_session"

// EndHandler is notified once per rotation. A non-nil returned set is the
// next validator set to queue with the authority registry; nil carries the
// active set over. Staking's session-end hook is wired here at startup.
type EndHandler func(s *state.State) (state.AuthoritySet, error)

// ShouldRotate reports whether the session has reached its configured length
// at the given height.
func ShouldRotate(s *state.State, height uint64) bool {
	return height-s.Session.StartHeight >= s.Params.SessionLength
}

type Module struct {
	onEnd EndHandler
}

func New(onEnd EndHandler) *Module {
	return &Module{onEnd: onEnd}
}

func (m *Module) ID() block.ModuleID {
	return block.ModuleSession
}

func (m *Module) RegisterCalls(r *runtime.Router) {}

func (m *Module) OnInitialize(s *state.State) error { return nil }

// OnFinalize rotates at the session boundary: the previously queued set
// becomes active, the session index advances, and staking may queue the set
// for the following rotation.
func (m *Module) OnFinalize(s *state.State) error {
	if !ShouldRotate(s, s.Height) {
		return nil
	}

	authority.Promote(s)
	s.Session.Index++
	s.Session.StartHeight = s.Height

	payload, _ := wire.Marshal(s.Session.Index)
	s.Events.Append(m.ID(), KindNewSession, payload)

	if m.onEnd == nil {
		return nil
	}
	next, err := m.onEnd(s)
	if err != nil {
		return err
	}
	if next != nil {
		// Hand the staking-elected set to the registry as pending. The
		// single slot was freed by the promotion above, so this cannot
		// collide.
		return authority.QueueChange(s, next)
	}
	return nil
}
