package staking

import (
	"errors"

	"github.com/loxadim/substrate/internal/balances"
	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/event"
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/runtime"
	"github.com/loxadim/substrate/internal/state"
	"github.com/loxadim/substrate/pkg/serialization/codec/wire"
)

const (
	callBond uint8 = iota
	callUnbond
	callValidate
	callChill
	callNominate
	callReportOffence // root
)

const (
	KindBonded   event.Kind = "staking.bonded"
	KindUnbonded event.Kind = "staking.unbonded"
	KindEraPaid  event.Kind = "staking.era_paid"
	KindSlashed  event.Kind = "staking.slashed"
)

var (
	ErrBondTooLow   = errors.New("bond below minimum")
	ErrNotBonded    = errors.New("account has no bonded stake")
	ErrSlashed      = errors.New("slashed candidate must rebond")
	ErrNoSuchTarget = errors.New("nomination target is not a validator candidate")
)

type BondArgs struct {
	Value ledger.Balance
}

type UnbondArgs struct {
	Value ledger.Balance
}

type NominateArgs struct {
	Targets []ledger.AccountID
}

// ReportOffenceArgs queues a slash for era-end application. Root only; in a
// full node the report would arrive through an offence-proof pipeline.
type ReportOffenceArgs struct {
	Offender           ledger.AccountID
	FractionMillionths uint32
}

type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) ID() block.ModuleID {
	return block.ModuleStaking
}

func (m *Module) RegisterCalls(r *runtime.Router) {
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callBond, Name: "bond", Policy: runtime.PolicySigned}, m.bond)
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callUnbond, Name: "unbond", Policy: runtime.PolicySigned}, m.unbond)
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callValidate, Name: "validate", Policy: runtime.PolicySigned}, m.validate)
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callChill, Name: "chill", Policy: runtime.PolicySigned}, m.chill)
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callNominate, Name: "nominate", Policy: runtime.PolicySigned}, m.nominate)
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callReportOffence, Name: "report_offence", Policy: runtime.PolicyRoot}, m.reportOffence)
}

// OnInitialize credits authorship points to the block author.
func (m *Module) OnInitialize(s *state.State) error {
	if int(s.AuthorIndex) >= len(s.Authority.Active) {
		return nil
	}
	author := s.Authority.Active[s.AuthorIndex]
	s.Staking.EraPoints[author] += AuthorPoints
	return nil
}

func (m *Module) OnFinalize(s *state.State) error { return nil }

// OnSessionEnd is wired into the session rotator. It counts sessions into
// the era; at the era boundary it pays rewards, applies queued slashes,
// recomputes the next validator set and returns it. Staking never writes the
// active set itself.
func (m *Module) OnSessionEnd(s *state.State) (state.AuthoritySet, error) {
	s.Staking.SessionsIntoEra++
	if s.Staking.SessionsIntoEra < s.Params.SessionsPerEra {
		return nil, nil
	}

	payoutEra(s)
	applySlashes(s)

	next := electNextSet(s)
	for _, id := range next {
		cand := s.Staking.Candidates[id]
		cand.Status = state.CandidateActive
		s.Staking.Candidates[id] = cand
	}

	payload, _ := wire.Marshal(s.Staking.EraIndex)
	s.Events.Append(m.ID(), KindEraPaid, payload)

	s.Staking.EraIndex++
	s.Staking.SessionsIntoEra = 0
	s.Staking.EraPoints = map[ledger.AccountID]uint64{}

	// An empty election is silence, not an instruction to clear the
	// active set; the current validators carry over.
	if len(next) == 0 {
		return nil, nil
	}
	return next, nil
}

func (m *Module) bond(s *state.State, origin runtime.Origin, args []byte) error {
	var a BondArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}

	cand := s.Staking.Candidates[origin.Signer]
	if cand.Bonded+a.Value < s.Params.MinimumBond {
		return ErrBondTooLow
	}
	if err := balances.Reserve(s, origin.Signer, a.Value); err != nil {
		return err
	}
	cand.Bonded += a.Value
	if cand.Status == state.CandidateIdle || cand.Status == state.CandidateSlashed {
		cand.Status = state.CandidateBonded
	}
	s.Staking.Candidates[origin.Signer] = cand

	payload, _ := wire.Marshal(a)
	s.Events.Append(m.ID(), KindBonded, payload)
	return nil
}

func (m *Module) unbond(s *state.State, origin runtime.Origin, args []byte) error {
	var a UnbondArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}

	cand, ok := s.Staking.Candidates[origin.Signer]
	if !ok || cand.Bonded == 0 {
		return ErrNotBonded
	}
	value := a.Value
	if value > cand.Bonded {
		value = cand.Bonded
	}
	balances.Unreserve(s, origin.Signer, value)
	cand.Bonded -= value
	if cand.Bonded == 0 {
		cand.Status = state.CandidateIdle
		cand.Validating = false
		cand.Targets = nil
	}
	s.Staking.Candidates[origin.Signer] = cand

	payload, _ := wire.Marshal(UnbondArgs{Value: value})
	s.Events.Append(m.ID(), KindUnbonded, payload)
	return nil
}

func (m *Module) validate(s *state.State, origin runtime.Origin, args []byte) error {
	cand, ok := s.Staking.Candidates[origin.Signer]
	if !ok || cand.Bonded == 0 {
		return ErrNotBonded
	}
	if cand.Status == state.CandidateSlashed {
		return ErrSlashed
	}
	if cand.Bonded < s.Params.MinimumBond {
		return ErrBondTooLow
	}
	cand.Validating = true
	cand.Targets = nil
	s.Staking.Candidates[origin.Signer] = cand
	return nil
}

func (m *Module) chill(s *state.State, origin runtime.Origin, args []byte) error {
	cand, ok := s.Staking.Candidates[origin.Signer]
	if !ok {
		return ErrNotBonded
	}
	cand.Validating = false
	cand.Targets = nil
	s.Staking.Candidates[origin.Signer] = cand
	return nil
}

func (m *Module) nominate(s *state.State, origin runtime.Origin, args []byte) error {
	var a NominateArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}

	cand, ok := s.Staking.Candidates[origin.Signer]
	if !ok || cand.Bonded == 0 {
		return ErrNotBonded
	}
	for _, target := range a.Targets {
		targetCand, ok := s.Staking.Candidates[target]
		if !ok || !targetCand.Validating {
			return ErrNoSuchTarget
		}
	}
	cand.Validating = false
	cand.Targets = a.Targets
	s.Staking.Candidates[origin.Signer] = cand
	return nil
}

func (m *Module) reportOffence(s *state.State, origin runtime.Origin, args []byte) error {
	var a ReportOffenceArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}
	if _, ok := s.Staking.Candidates[a.Offender]; !ok {
		return ErrNotBonded
	}
	s.Staking.PendingSlashes = append(s.Staking.PendingSlashes, state.PendingSlash{
		Offender:           a.Offender,
		FractionMillionths: a.FractionMillionths,
	})
	payload, _ := wire.Marshal(a)
	s.Events.Append(m.ID(), KindSlashed, payload)
	return nil
}

func NewBondCall(value ledger.Balance) (block.Call, error) {
	return newCall(callBond, BondArgs{Value: value})
}

func NewUnbondCall(value ledger.Balance) (block.Call, error) {
	return newCall(callUnbond, UnbondArgs{Value: value})
}

func NewValidateCall() (block.Call, error) {
	return newCall(callValidate, struct{}{})
}

func NewChillCall() (block.Call, error) {
	return newCall(callChill, struct{}{})
}

func NewNominateCall(targets []ledger.AccountID) (block.Call, error) {
	return newCall(callNominate, NominateArgs{Targets: targets})
}

func NewReportOffenceCall(offender ledger.AccountID, fractionMillionths uint32) (block.Call, error) {
	return newCall(callReportOffence, ReportOffenceArgs{
		Offender:           offender,
		FractionMillionths: fractionMillionths,
	})
}

func newCall(index uint8, args any) (block.Call, error) {
	encoded, err := wire.Marshal(args)
	if err != nil {
		return block.Call{}, err
	}
	return block.Call{
		Module:  block.ModuleStaking,
		Payload: append([]byte{index}, encoded...),
	}, nil
}
