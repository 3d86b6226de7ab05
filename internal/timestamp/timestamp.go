// Package timestamp records the wall-clock time claimed for each block.
package timestamp

import (
	"errors"

	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/runtime"
	"github.com/loxadim/substrate/internal/state"
)

// ErrInvalidTimestamp rejects a claim earlier than the parent's. Fatal for
// the whole block.
var ErrInvalidTimestamp = errors.New("invalid timestamp: claim precedes parent")

type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) ID() block.ModuleID {
	return block.ModuleTimestamp
}

// No dispatchables: the claim arrives through the header, not an extrinsic.
func (m *Module) RegisterCalls(r *runtime.Router) {}

// OnInitialize adopts the staged claim after the monotonicity check. The
// claim must be non-decreasing relative to the parent's recorded time.
func (m *Module) OnInitialize(s *state.State) error {
	if s.Timestamp.Claim < s.Timestamp.Now {
		return ErrInvalidTimestamp
	}
	s.Timestamp.Now = s.Timestamp.Claim
	return nil
}

func (m *Module) OnFinalize(s *state.State) error { return nil }

// Now returns the recorded time of the current block in milliseconds.
func Now(s *state.State) uint64 {
	return s.Timestamp.Now
}
