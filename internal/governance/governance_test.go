package governance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loxadim/substrate/internal/balances"
	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/contracts"
	"github.com/loxadim/substrate/internal/crypto"
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/runtime"
	"github.com/loxadim/substrate/internal/state"
)

func accountID(b byte) ledger.AccountID {
	var id ledger.AccountID
	id[0] = b
	return id
}

// newModule registers governance and balances on a shared router so
// enactment has something real to dispatch into.
func newModule(t *testing.T) (*Module, *runtime.Router) {
	t.Helper()
	r := runtime.NewRouter()
	m := New(r)
	m.RegisterCalls(r)
	balances.New().RegisterCalls(r)
	return m, r
}

func newTestState() *state.State {
	s := state.NewState(state.DefaultParams())
	for b := byte(1); b <= 3; b++ {
		s.Accounts[accountID(b)] = ledger.Account{Free: 1_000}
		s.TotalIssuance += 1_000
	}
	s.Governance.CouncilMembers = []ledger.AccountID{accountID(1), accountID(2), accountID(3)}
	return s
}

func proposeTransfer(t *testing.T, s *state.State, r *runtime.Router, class state.ProposalClass, deposit ledger.Balance) uint32 {
	t.Helper()
	inner, err := balances.NewSetBalanceCall(accountID(9), 42)
	require.NoError(t, err)
	call, err := NewProposeCall(class, inner, deposit)
	require.NoError(t, err)
	id := s.Governance.NextProposalID
	require.NoError(t, r.Dispatch(s, runtime.Signed(accountID(1)), call))
	return id
}

func vote(t *testing.T, s *state.State, r *runtime.Router, voter ledger.AccountID, proposal uint32, aye bool) error {
	t.Helper()
	call, err := NewVoteCall(proposal, aye)
	require.NoError(t, err)
	return r.Dispatch(s, runtime.Signed(voter), call)
}

func Test_ProposeReservesDeposit(t *testing.T) {
	s := newTestState()
	_, r := newModule(t)

	id := proposeTransfer(t, s, r, state.ClassCouncil, 100)

	require.Equal(t, uint64(900), s.Accounts[accountID(1)].Free)
	require.Equal(t, uint64(100), s.Accounts[accountID(1)].Reserved)

	p := s.Governance.Proposals[id]
	require.Equal(t, state.ProposalPending, p.Status)
	require.Equal(t, s.Height+s.Params.VotingPeriod, p.VotingEnd)
}

func Test_VoteDoubleVoteRejected(t *testing.T) {
	s := newTestState()
	_, r := newModule(t)
	id := proposeTransfer(t, s, r, state.ClassCouncil, 100)

	require.NoError(t, vote(t, s, r, accountID(1), id, true))
	require.ErrorIs(t, vote(t, s, r, accountID(1), id, false), ErrAlreadyVoted)
}

func Test_CouncilVoteRequiresMembership(t *testing.T) {
	s := newTestState()
	_, r := newModule(t)
	s.Accounts[accountID(8)] = ledger.Account{Free: 10}
	id := proposeTransfer(t, s, r, state.ClassCouncil, 100)

	require.ErrorIs(t, vote(t, s, r, accountID(8), id, true), ErrNotCouncil)
}

func Test_VoteAfterWindowRejected(t *testing.T) {
	s := newTestState()
	_, r := newModule(t)
	id := proposeTransfer(t, s, r, state.ClassCouncil, 100)

	s.Height = s.Governance.Proposals[id].VotingEnd
	require.ErrorIs(t, vote(t, s, r, accountID(1), id, true), ErrVotingClosed)
}

func Test_CouncilTallyExactMajorityApproves(t *testing.T) {
	s := newTestState()
	m, r := newModule(t)
	id := proposeTransfer(t, s, r, state.ClassCouncil, 100)

	// One aye, one nay: 2*1 >= 2 holds, the threshold is inclusive.
	require.NoError(t, vote(t, s, r, accountID(1), id, true))
	require.NoError(t, vote(t, s, r, accountID(2), id, false))

	s.Height = s.Governance.Proposals[id].VotingEnd
	require.NoError(t, m.OnFinalize(s))

	p := s.Governance.Proposals[id]
	require.Equal(t, state.ProposalApproved, p.Status)
	require.Equal(t, s.Height+s.Params.EnactmentDelay, p.EnactAt)
	// The deposit stays reserved until settlement.
	require.Equal(t, uint64(100), s.Accounts[accountID(1)].Reserved)
}

func Test_CouncilTallyMinorityRejects(t *testing.T) {
	s := newTestState()
	m, r := newModule(t)
	id := proposeTransfer(t, s, r, state.ClassCouncil, 100)

	require.NoError(t, vote(t, s, r, accountID(1), id, true))
	require.NoError(t, vote(t, s, r, accountID(2), id, false))
	require.NoError(t, vote(t, s, r, accountID(3), id, false))

	s.Height = s.Governance.Proposals[id].VotingEnd
	require.NoError(t, m.OnFinalize(s))

	p := s.Governance.Proposals[id]
	require.Equal(t, state.ProposalRejected, p.Status)
	// A rejected proposer gets the deposit back.
	require.Equal(t, uint64(1_000), s.Accounts[accountID(1)].Free)
	require.Equal(t, uint64(0), s.Accounts[accountID(1)].Reserved)
}

func Test_ZeroTurnoutRejects(t *testing.T) {
	s := newTestState()
	m, r := newModule(t)
	id := proposeTransfer(t, s, r, state.ClassCouncil, 100)

	s.Height = s.Governance.Proposals[id].VotingEnd
	require.NoError(t, m.OnFinalize(s))
	require.Equal(t, state.ProposalRejected, s.Governance.Proposals[id].Status)
}

func Test_DemocracyTallyStakeWeighted(t *testing.T) {
	s := newTestState()
	m, r := newModule(t)
	// Voter 1 holds 2000 total, voters 2 and 3 hold 1000 each.
	s.Accounts[accountID(1)] = ledger.Account{Free: 2_000}
	id := proposeTransfer(t, s, r, state.ClassDemocracy, 100)

	// Aye 1900 (2000 minus the reserved deposit still counts via Total),
	// nay 1000: 3*2000 >= 2*3000 holds exactly.
	require.NoError(t, vote(t, s, r, accountID(1), id, true))
	require.NoError(t, vote(t, s, r, accountID(2), id, false))

	p := s.Governance.Proposals[id]
	require.Equal(t, uint64(2_000), p.AyeWeight)
	require.Equal(t, uint64(1_000), p.NayWeight)

	s.Height = p.VotingEnd
	require.NoError(t, m.OnFinalize(s))
	require.Equal(t, state.ProposalApproved, s.Governance.Proposals[id].Status)
}

func Test_DemocracyBelowSupermajorityRejects(t *testing.T) {
	s := newTestState()
	m, r := newModule(t)
	id := proposeTransfer(t, s, r, state.ClassDemocracy, 100)

	// Aye 1000 vs nay 1000 is below the two-thirds bar.
	require.NoError(t, vote(t, s, r, accountID(2), id, true))
	require.NoError(t, vote(t, s, r, accountID(3), id, false))

	s.Height = s.Governance.Proposals[id].VotingEnd
	require.NoError(t, m.OnFinalize(s))
	require.Equal(t, state.ProposalRejected, s.Governance.Proposals[id].Status)
}

func Test_EnactmentDispatchesWithRoot(t *testing.T) {
	s := newTestState()
	m, r := newModule(t)
	id := proposeTransfer(t, s, r, state.ClassCouncil, 100)
	require.NoError(t, vote(t, s, r, accountID(1), id, true))

	s.Height = s.Governance.Proposals[id].VotingEnd
	require.NoError(t, m.OnFinalize(s))
	require.Equal(t, state.ProposalApproved, s.Governance.Proposals[id].Status)

	// Not yet due.
	require.NoError(t, m.OnInitialize(s))
	require.Equal(t, state.ProposalApproved, s.Governance.Proposals[id].Status)

	s.Height = s.Governance.Proposals[id].EnactAt
	require.NoError(t, m.OnInitialize(s))

	p := s.Governance.Proposals[id]
	require.Equal(t, state.ProposalEnacted, p.Status)
	// The inner root-only call ran: the beneficiary's balance was forced.
	require.Equal(t, uint64(42), s.Accounts[accountID(9)].Free)
	// The deposit came back at settlement.
	require.Equal(t, uint64(0), s.Accounts[accountID(1)].Reserved)
	require.Len(t, s.Events.Filter(KindEnacted), 1)
}

func Test_EnactFailureMarksRejected(t *testing.T) {
	s := newTestState()
	m, r := newModule(t)

	// A payload aimed at an unregistered module fails dispatch at enactment.
	inner := block.Call{Module: block.ModuleContracts, Payload: []byte{0}}
	call, err := NewProposeCall(state.ClassCouncil, inner, 100)
	require.NoError(t, err)
	id := s.Governance.NextProposalID
	require.NoError(t, r.Dispatch(s, runtime.Signed(accountID(1)), call))
	require.NoError(t, vote(t, s, r, accountID(1), id, true))

	s.Height = s.Governance.Proposals[id].VotingEnd
	require.NoError(t, m.OnFinalize(s))
	s.Height = s.Governance.Proposals[id].EnactAt
	require.NoError(t, m.OnInitialize(s))

	require.Equal(t, state.ProposalRejected, s.Governance.Proposals[id].Status)
	require.Len(t, s.Events.Filter(KindEnactFailed), 1)
	require.Equal(t, uint64(0), s.Accounts[accountID(1)].Reserved)
}

func Test_CancelForfeitsDeposit(t *testing.T) {
	s := newTestState()
	_, r := newModule(t)
	id := proposeTransfer(t, s, r, state.ClassCouncil, 100)

	cancel, err := NewCancelCall(id)
	require.NoError(t, err)

	require.ErrorIs(t, r.Dispatch(s, runtime.Signed(accountID(1)), cancel), runtime.ErrBadOrigin)

	before := s.TotalIssuance
	require.NoError(t, r.Dispatch(s, runtime.Root(), cancel))

	require.Equal(t, state.ProposalRejected, s.Governance.Proposals[id].Status)
	// SlashRejected burns the deposit.
	require.Equal(t, uint64(900), s.Accounts[accountID(1)].Free)
	require.Equal(t, uint64(0), s.Accounts[accountID(1)].Reserved)
	require.Equal(t, before-100, s.TotalIssuance)

	require.ErrorIs(t, r.Dispatch(s, runtime.Root(), cancel), ErrProposalSettled)
}

func Test_EnactFailureRollsBackDispatch(t *testing.T) {
	s := newTestState()
	m, r := newModule(t)
	contracts.New().RegisterCalls(r)

	// A contract that writes a storage cell and then traps on an invalid
	// opcode: the enactment mutates state before failing.
	code := []byte{
		byte(contracts.OpPush), 7, 0, 0, 0, 0, 0, 0, 0,
		byte(contracts.OpPush), 42, 0, 0, 0, 0, 0, 0, 0,
		byte(contracts.OpStore),
		0xff,
	}
	codeHash := crypto.HashData(code)
	upload, err := contracts.NewUploadCall(code)
	require.NoError(t, err)
	require.NoError(t, r.Dispatch(s, runtime.Signed(accountID(1)), upload))
	addr := contracts.ContractAddress(codeHash, accountID(1), s.Accounts[accountID(1)].Nonce)
	instantiate, err := contracts.NewInstantiateCall(codeHash, 100)
	require.NoError(t, err)
	require.NoError(t, r.Dispatch(s, runtime.Signed(accountID(1)), instantiate))

	inner, err := contracts.NewCallCall(addr, 0, 1_000, nil)
	require.NoError(t, err)
	call, err := NewProposeCall(state.ClassCouncil, inner, 100)
	require.NoError(t, err)
	id := s.Governance.NextProposalID
	require.NoError(t, r.Dispatch(s, runtime.Signed(accountID(1)), call))
	require.NoError(t, vote(t, s, r, accountID(1), id, true))

	s.Height = s.Governance.Proposals[id].VotingEnd
	require.NoError(t, m.OnFinalize(s))
	s.Height = s.Governance.Proposals[id].EnactAt
	require.NoError(t, m.OnInitialize(s))

	require.Equal(t, state.ProposalRejected, s.Governance.Proposals[id].Status)
	require.Len(t, s.Events.Filter(KindEnactFailed), 1)
	// The trap undid the storage write that preceded it.
	require.Empty(t, s.Contracts.Instances[addr].Storage)
	require.Equal(t, uint64(0), s.Accounts[accountID(1)].Reserved)
}
