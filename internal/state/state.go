// Package state defines the full ledger state the engine transitions over.
// Every module's substate lives here; module logic lives in the sibling
// packages and receives explicit *State handles, never ambient storage.
package state

import (
	"fmt"

	"github.com/loxadim/substrate/internal/crypto"
	"github.com/loxadim/substrate/internal/event"
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/pkg/serialization/codec/wire"
)

// State is the complete chain state. It is exclusively owned by the executive
// for the duration of block execution; each hook or dispatch receives it for
// the duration of the call only.
type State struct {
	Params Params

	// Height of the last initialized block.
	Height uint64
	// ParentHash of the block being executed.
	ParentHash crypto.Hash
	// AuthorIndex of the block being executed, for staking points.
	AuthorIndex uint32

	Timestamp  TimestampState
	Accounts   map[ledger.AccountID]ledger.Account
	Authority  AuthorityState
	Session    SessionState
	Staking    StakingState
	Governance GovernanceState
	Treasury   TreasuryState
	Contracts  ContractsState

	// TotalIssuance is the sum of all account balances, contract balances
	// and the treasury pot. Changes only through mint (rewards) and burn
	// (slashes, treasury burns, forfeited deposits).
	TotalIssuance ledger.Balance

	// Events emitted during the current block. Cleared at initialize.
	Events event.Log
}

// TimestampState records the wall-clock claim of the last executed block.
type TimestampState struct {
	// Now is the recorded claim in milliseconds.
	Now uint64
	// Claim is staged by the executive from the incoming header and adopted
	// by the timestamp module at initialize.
	Claim uint64
}

// AuthoritySet is an ordered set of authority identities.
type AuthoritySet []ledger.AccountID

// AuthorityState holds exactly one active set and at most one pending set.
type AuthorityState struct {
	Active AuthoritySet
	// Pending is the single queued change, consumed at the next session
	// rotation.
	Pending *AuthoritySet
}

// SessionState partitions block height into fixed-length sessions.
type SessionState struct {
	Index uint32
	// StartHeight is the height the current session began at.
	StartHeight uint64
}

// CandidateStatus is the staking state machine:
// Idle -> Bonded -> Active -> (Slashed | Idle).
type CandidateStatus uint8

const (
	CandidateIdle CandidateStatus = iota
	CandidateBonded
	CandidateActive
	CandidateSlashed
)

// Candidate is a staking participant, validator candidate or nominator.
type Candidate struct {
	Status CandidateStatus
	// Bonded stake, held in the account's reserved balance.
	Bonded ledger.Balance
	// Validating marks intent to be elected.
	Validating bool
	// Targets are the validator candidates this participant nominates.
	// Empty unless nominating.
	Targets []ledger.AccountID
}

// PendingSlash is a queued punitive stake reduction, applied at era end.
type PendingSlash struct {
	Offender ledger.AccountID
	// FractionMillionths of the offender's bonded stake to burn.
	FractionMillionths uint32
}

// StakingState is era-based reward and slash accounting.
type StakingState struct {
	EraIndex uint32
	// SessionsIntoEra counts rotations since the era began.
	SessionsIntoEra uint32
	Candidates      map[ledger.AccountID]Candidate
	// EraPoints accumulated by block authorship during the current era.
	EraPoints      map[ledger.AccountID]uint64
	PendingSlashes []PendingSlash
}

// ProposalStatus is the governance lifecycle. Enacted and Rejected are
// terminal.
type ProposalStatus uint8

const (
	ProposalPending ProposalStatus = iota
	ProposalApproved
	ProposalRejected
	ProposalEnacted
)

// ProposalClass selects the voting rule.
type ProposalClass uint8

const (
	// ClassCouncil: one member one vote, simple majority.
	ClassCouncil ProposalClass = iota
	// ClassDemocracy: stake-weighted votes, supermajority.
	ClassDemocracy
)

// Proposal is a governance item. The payload call is opaque to governance.
type Proposal struct {
	ID       uint32
	Proposer ledger.AccountID
	Class    ProposalClass
	// CallModule and CallPayload form the dispatchable enacted on approval.
	CallModule  uint8
	CallPayload []byte
	Deposit     ledger.Balance
	// VotingEnd is the height the voting window closes at.
	VotingEnd uint64
	// EnactAt is the scheduled enactment height, set on approval.
	EnactAt   uint64
	AyeWeight uint64
	NayWeight uint64
	// Votes prevents double voting; true is aye.
	Votes  map[ledger.AccountID]bool
	Status ProposalStatus
}

// GovernanceState holds proposals for both classes plus council membership.
type GovernanceState struct {
	NextProposalID uint32
	Proposals      map[uint32]Proposal
	CouncilMembers []ledger.AccountID
}

// TreasuryState is the pooled pot.
type TreasuryState struct {
	Pot ledger.Balance
}

// ContractInstance is one deployed contract.
type ContractInstance struct {
	CodeHash crypto.Hash
	// Storage is the contract's deterministic cell store.
	Storage map[uint64]uint64
	// Balance held by the contract, spendable via the transfer host op.
	Balance ledger.Balance
}

// ContractsState holds uploaded code and deployed instances.
type ContractsState struct {
	Code      map[crypto.Hash][]byte
	Instances map[ledger.AccountID]ContractInstance
}

// NewState returns an empty state with allocated maps.
func NewState(params Params) *State {
	return &State{
		Params:   params,
		Accounts: map[ledger.AccountID]ledger.Account{},
		Staking: StakingState{
			Candidates: map[ledger.AccountID]Candidate{},
			EraPoints:  map[ledger.AccountID]uint64{},
		},
		Governance: GovernanceState{
			Proposals: map[uint32]Proposal{},
		},
		Contracts: ContractsState{
			Code:      map[crypto.Hash][]byte{},
			Instances: map[ledger.AccountID]ContractInstance{},
		},
	}
}

// Account returns the record for id, zero-valued if absent.
func (s *State) Account(id ledger.AccountID) ledger.Account {
	return s.Accounts[id]
}

// Bytes returns the canonical wire encoding of the state.
func (s *State) Bytes() ([]byte, error) {
	return wire.Marshal(*s)
}

// Root is the blake2b digest of the wire-encoded state.
func (s *State) Root() (crypto.Hash, error) {
	encoded, err := s.Bytes()
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("marshal state: %w", err)
	}
	return crypto.HashData(encoded), nil
}

// FromBytes decodes a state from its canonical wire encoding.
func FromBytes(data []byte) (*State, error) {
	var s State
	if err := wire.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &s, nil
}
