// Package event defines the per-block event log: the ordered, append-only
// record of what happened during block execution, queryable by external
// observers and cleared at the start of every block.
package event

import "github.com/loxadim/substrate/internal/block"

// Kind names what happened. Stable strings, part of the external interface.
type Kind string

const (
	// KindExtrinsicSuccess records a dispatched extrinsic whose call
	// succeeded.
	KindExtrinsicSuccess Kind = "extrinsic.success"
	// KindExtrinsicFailed records an extrinsic that was admitted (fee and
	// nonce consumed) but whose dispatch failed. Payload carries the error
	// kind.
	KindExtrinsicFailed Kind = "extrinsic.failed"
	// KindExtrinsicRejected records an extrinsic refused before dispatch.
	KindExtrinsicRejected Kind = "extrinsic.rejected"
)

// Event is a single {module, kind, payload} record.
type Event struct {
	Module  block.ModuleID
	Kind    Kind
	Payload []byte
}

// Log is the block's event sequence. Append-only during execution.
type Log []Event

func (l *Log) Append(module block.ModuleID, kind Kind, payload []byte) {
	*l = append(*l, Event{Module: module, Kind: kind, Payload: payload})
}

// Filter returns the events of one kind, preserving order.
func (l Log) Filter(kind Kind) []Event {
	var out []Event
	for _, e := range l {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
