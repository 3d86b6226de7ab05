// Package governance implements council and democracy proposals: submission
// with a locked deposit, weighted voting over a fixed window, and scheduled
// enactment of approved payloads with root origin through the shared
// dispatch router.
package governance

import (
	"errors"
	"sort"

	"github.com/loxadim/substrate/internal/balances"
	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/event"
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/runtime"
	"github.com/loxadim/substrate/internal/state"
	"github.com/loxadim/substrate/pkg/serialization/codec/wire"
)

const (
	callPropose uint8 = iota
	callVote
	callCancel // root
)

const (
	KindProposed    event.Kind = "governance.proposed"
	KindVoted       event.Kind = "governance.voted"
	KindApproved    event.Kind = "governance.approved"
	KindRejected    event.Kind = "governance.rejected"
	KindEnacted     event.Kind = "governance.enacted"
	KindEnactFailed event.Kind = "governance.enact_failed"
)

var (
	ErrNoSuchProposal  = errors.New("no such proposal")
	ErrVotingClosed    = errors.New("voting window closed")
	ErrAlreadyVoted    = errors.New("already voted")
	ErrNotCouncil      = errors.New("voter is not a council member")
	ErrProposalSettled = errors.New("proposal already settled")
)

type ProposeArgs struct {
	Class       state.ProposalClass
	CallModule  uint8
	CallPayload []byte
	Deposit     ledger.Balance
}

type VoteArgs struct {
	Proposal uint32
	Aye      bool
}

type CancelArgs struct {
	Proposal uint32
}

type Module struct {
	router *runtime.Router
}

// New wires the module to the shared router: enacting an approved proposal
// is dispatch with elevated privilege, not a separate execution path.
func New(router *runtime.Router) *Module {
	return &Module{router: router}
}

func (m *Module) ID() block.ModuleID {
	return block.ModuleGovernance
}

func (m *Module) RegisterCalls(r *runtime.Router) {
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callPropose, Name: "propose", Policy: runtime.PolicySigned}, m.propose)
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callVote, Name: "vote", Policy: runtime.PolicySigned}, m.vote)
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callCancel, Name: "cancel", Policy: runtime.PolicyRoot}, m.cancel)
}

// OnInitialize enacts approved proposals whose delay has elapsed.
func (m *Module) OnInitialize(s *state.State) error {
	for _, id := range sortedProposalIDs(s) {
		p := s.Governance.Proposals[id]
		if p.Status != state.ProposalApproved || s.Height < p.EnactAt {
			continue
		}
		m.enact(s, p)
	}
	return nil
}

// OnFinalize tallies proposals whose voting window closed this block.
func (m *Module) OnFinalize(s *state.State) error {
	for _, id := range sortedProposalIDs(s) {
		p := s.Governance.Proposals[id]
		if p.Status != state.ProposalPending || s.Height < p.VotingEnd {
			continue
		}
		m.tally(s, p)
	}
	return nil
}

func sortedProposalIDs(s *state.State) []uint32 {
	ids := make([]uint32, 0, len(s.Governance.Proposals))
	for id := range s.Governance.Proposals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// tally closes a voting window. The threshold comparison is INCLUSIVE: a
// tally exactly at the threshold is approved. Council requires a simple
// majority (2*aye >= turnout), democracy a two-thirds supermajority
// (3*aye >= 2*turnout). No turnout at all rejects.
func (m *Module) tally(s *state.State, p state.Proposal) {
	turnout := p.AyeWeight + p.NayWeight

	approved := false
	if turnout > 0 {
		switch p.Class {
		case state.ClassCouncil:
			approved = 2*p.AyeWeight >= turnout
		case state.ClassDemocracy:
			approved = 3*p.AyeWeight >= 2*turnout
		}
	}

	payload, _ := wire.Marshal(p.ID)
	if approved {
		p.Status = state.ProposalApproved
		p.EnactAt = s.Height + s.Params.EnactmentDelay
		s.Events.Append(m.ID(), KindApproved, payload)
	} else {
		p.Status = state.ProposalRejected
		balances.Unreserve(s, p.Proposer, p.Deposit)
		s.Events.Append(m.ID(), KindRejected, payload)
	}
	s.Governance.Proposals[p.ID] = p
}

// enact dispatches the proposal's payload with root origin. Failure marks
// the proposal Rejected post-hoc; it is never retried.
func (m *Module) enact(s *state.State, p state.Proposal) {
	call := block.Call{Module: block.ModuleID(p.CallModule), Payload: p.CallPayload}
	snapshot := s.Copy()
	err := m.router.Dispatch(s, runtime.Root(), call)
	if err != nil {
		// A handler may have mutated state before failing; the enactment
		// applies all-or-nothing, like any other dispatch.
		*s = *snapshot
	}

	balances.Unreserve(s, p.Proposer, p.Deposit)

	payload, _ := wire.Marshal(p.ID)
	if err != nil {
		p.Status = state.ProposalRejected
		s.Events.Append(m.ID(), KindEnactFailed, append(payload, []byte(err.Error())...))
	} else {
		p.Status = state.ProposalEnacted
		s.Events.Append(m.ID(), KindEnacted, payload)
	}
	s.Governance.Proposals[p.ID] = p
}

func (m *Module) propose(s *state.State, origin runtime.Origin, args []byte) error {
	var a ProposeArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}

	if err := balances.Reserve(s, origin.Signer, a.Deposit); err != nil {
		return err
	}

	id := s.Governance.NextProposalID
	s.Governance.NextProposalID++
	s.Governance.Proposals[id] = state.Proposal{
		ID:          id,
		Proposer:    origin.Signer,
		Class:       a.Class,
		CallModule:  a.CallModule,
		CallPayload: a.CallPayload,
		Deposit:     a.Deposit,
		VotingEnd:   s.Height + s.Params.VotingPeriod,
		Votes:       map[ledger.AccountID]bool{},
		Status:      state.ProposalPending,
	}

	payload, _ := wire.Marshal(id)
	s.Events.Append(m.ID(), KindProposed, payload)
	return nil
}

func (m *Module) vote(s *state.State, origin runtime.Origin, args []byte) error {
	var a VoteArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}

	p, ok := s.Governance.Proposals[a.Proposal]
	if !ok {
		return ErrNoSuchProposal
	}
	if p.Status != state.ProposalPending || s.Height >= p.VotingEnd {
		return ErrVotingClosed
	}
	if _, voted := p.Votes[origin.Signer]; voted {
		return ErrAlreadyVoted
	}

	var weight uint64
	switch p.Class {
	case state.ClassCouncil:
		if !isCouncilMember(s, origin.Signer) {
			return ErrNotCouncil
		}
		weight = 1
	case state.ClassDemocracy:
		// Stake-weighted: the voter's full balance at vote time.
		weight = s.Accounts[origin.Signer].Total()
	}

	p.Votes[origin.Signer] = a.Aye
	if a.Aye {
		p.AyeWeight += weight
	} else {
		p.NayWeight += weight
	}
	s.Governance.Proposals[a.Proposal] = p

	payload, _ := wire.Marshal(a)
	s.Events.Append(m.ID(), KindVoted, payload)
	return nil
}

// cancel kills a pending proposal. Root only; the deposit is forfeited when
// the chain is configured to slash.
func (m *Module) cancel(s *state.State, origin runtime.Origin, args []byte) error {
	var a CancelArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}
	p, ok := s.Governance.Proposals[a.Proposal]
	if !ok {
		return ErrNoSuchProposal
	}
	if p.Status != state.ProposalPending {
		return ErrProposalSettled
	}

	if s.Params.SlashRejected {
		balances.BurnReserved(s, p.Proposer, p.Deposit)
	} else {
		balances.Unreserve(s, p.Proposer, p.Deposit)
	}
	p.Status = state.ProposalRejected
	s.Governance.Proposals[a.Proposal] = p

	payload, _ := wire.Marshal(p.ID)
	s.Events.Append(m.ID(), KindRejected, payload)
	return nil
}

func isCouncilMember(s *state.State, who ledger.AccountID) bool {
	for _, member := range s.Governance.CouncilMembers {
		if member == who {
			return true
		}
	}
	return false
}

// NewProposeCall builds a proposal submission around an arbitrary call.
func NewProposeCall(class state.ProposalClass, call block.Call, deposit ledger.Balance) (block.Call, error) {
	return newCall(callPropose, ProposeArgs{
		Class:       class,
		CallModule:  uint8(call.Module),
		CallPayload: call.Payload,
		Deposit:     deposit,
	})
}

func NewVoteCall(proposal uint32, aye bool) (block.Call, error) {
	return newCall(callVote, VoteArgs{Proposal: proposal, Aye: aye})
}

func NewCancelCall(proposal uint32) (block.Call, error) {
	return newCall(callCancel, CancelArgs{Proposal: proposal})
}

func newCall(index uint8, args any) (block.Call, error) {
	encoded, err := wire.Marshal(args)
	if err != nil {
		return block.Call{}, err
	}
	return block.Call{
		Module:  block.ModuleGovernance,
		Payload: append([]byte{index}, encoded...),
	}, nil
}
