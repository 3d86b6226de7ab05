// Package runtime provides module composition: the origin model, the dispatch
// router, the module lifecycle interface and the runtime metadata descriptor.
package runtime

import (
	"fmt"

	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/state"
)

// Handler executes one call. args is the call payload with the call index
// stripped; the handler decodes it itself.
type Handler func(s *state.State, origin Origin, args []byte) error

// OriginPolicy is the capability a call demands, enforced by the router
// before the handler runs so individual modules cannot be bypassed.
type OriginPolicy uint8

const (
	// PolicySigned requires an account origin. Root also passes: elevated
	// privilege subsumes signed where the handler does not need a signer.
	PolicySigned OriginPolicy = iota
	// PolicyRoot requires elevated privilege.
	PolicyRoot
)

func (p OriginPolicy) String() string {
	switch p {
	case PolicyRoot:
		return "root"
	default:
		return "signed"
	}
}

// CallMeta describes one dispatchable for routing and metadata.
type CallMeta struct {
	Module block.ModuleID
	Index  uint8
	Name   string
	Policy OriginPolicy
}

type registeredCall struct {
	meta    CallMeta
	handler Handler
}

// Router maps (module id, call index) to handlers. The call table is built
// once at startup and closed; adding a module means registering a variant,
// not editing dispatch control flow.
type Router struct {
	calls map[block.ModuleID]map[uint8]registeredCall
}

func NewRouter() *Router {
	return &Router{calls: map[block.ModuleID]map[uint8]registeredCall{}}
}

// Register adds one dispatchable. Double registration is a wiring bug and
// panics at startup.
func (r *Router) Register(meta CallMeta, h Handler) {
	byIndex, ok := r.calls[meta.Module]
	if !ok {
		byIndex = map[uint8]registeredCall{}
		r.calls[meta.Module] = byIndex
	}
	if _, dup := byIndex[meta.Index]; dup {
		panic(fmt.Sprintf("runtime: duplicate call %s.%d", meta.Module, meta.Index))
	}
	byIndex[meta.Index] = registeredCall{meta: meta, handler: h}
}

// Dispatch routes a call to its handler after the central origin check.
// The payload's first octet is the call index within the module.
func (r *Router) Dispatch(s *state.State, origin Origin, call block.Call) error {
	byIndex, ok := r.calls[call.Module]
	if !ok {
		return ErrUnknownCall
	}
	if len(call.Payload) == 0 {
		return ErrDecodeFailure
	}
	reg, ok := byIndex[call.Payload[0]]
	if !ok {
		return ErrUnknownCall
	}

	switch reg.meta.Policy {
	case PolicyRoot:
		if !origin.IsRoot() {
			return ErrBadOrigin
		}
	case PolicySigned:
		if origin.Kind == OriginNone {
			return ErrBadOrigin
		}
	}

	return reg.handler(s, origin, call.Payload[1:])
}
