package runtime

import "sort"

// Version is the runtime descriptor exposed for external tooling to validate
// compatibility before submitting extrinsics. Informational only, never read
// by execution logic.
type Version struct {
	SpecName    string
	SpecVersion uint32
	Calls       []CallMeta
}

const (
	SpecName    = "substrate"
	SpecVersion = 1
)

// Metadata lists every registered dispatchable in (module, index) order.
func (r *Router) Metadata() Version {
	var calls []CallMeta
	for _, byIndex := range r.calls {
		for _, reg := range byIndex {
			calls = append(calls, reg.meta)
		}
	}
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].Module != calls[j].Module {
			return calls[i].Module < calls[j].Module
		}
		return calls[i].Index < calls[j].Index
	})
	return Version{
		SpecName:    SpecName,
		SpecVersion: SpecVersion,
		Calls:       calls,
	}
}
