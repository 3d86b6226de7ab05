package runtime

import (
	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/state"
)

// Module is the lifecycle interface every runtime module implements. The
// executive holds an ordered list of modules, fixed at startup in static
// dependency order, and runs the hooks in that order at both block edges.
//
// Hooks receive exclusive mutable access to the state for the duration of
// the call and must not retain the reference.
type Module interface {
	ID() block.ModuleID
	// RegisterCalls adds the module's dispatchables to the shared router.
	RegisterCalls(r *Router)
	// OnInitialize runs before any extrinsic. An error is fatal for the
	// whole block.
	OnInitialize(s *state.State) error
	// OnFinalize runs after the last extrinsic. An error is fatal for the
	// whole block.
	OnFinalize(s *state.State) error
}
