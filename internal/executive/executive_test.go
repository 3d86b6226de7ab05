package executive

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loxadim/substrate/internal/balances"
	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/event"
	"github.com/loxadim/substrate/internal/runtime"
	"github.com/loxadim/substrate/internal/state"
	"github.com/loxadim/substrate/internal/testutils"
)

// initBlock stages and initializes the next block on s.
func initBlock(t *testing.T, e *Executive, s *state.State) {
	t.Helper()
	require.NoError(t, e.InitializeBlock(s, block.Header{
		Format:    block.FormatVersion,
		Height:    s.Height + 1,
		Timestamp: s.Timestamp.Now + 1,
	}))
}

// issuanceInvariant checks that recorded issuance matches the sum of all
// holdings: accounts, contract balances and the pot.
func issuanceInvariant(t *testing.T, s *state.State) {
	t.Helper()
	var total uint64
	for _, acc := range s.Accounts {
		total += acc.Free + acc.Reserved
	}
	for _, inst := range s.Contracts.Instances {
		total += inst.Balance
	}
	total += s.Treasury.Pot
	require.Equal(t, s.TotalIssuance, total)
}

func Test_InitializeBlockRejectsWrongHeight(t *testing.T) {
	e := New()
	s := state.NewState(state.DefaultParams())

	err := e.InitializeBlock(s, block.Header{Height: 5})
	require.ErrorIs(t, err, ErrBadHeight)
}

func Test_InitializeBlockClearsEvents(t *testing.T) {
	e := New()
	s := state.NewState(state.DefaultParams())
	s.Events.Append(block.ModuleBalances, "stale", nil)

	initBlock(t, e, s)
	require.Empty(t, s.Events)
	require.Equal(t, uint64(1), s.Height)
}

func Test_TimestampMonotonicityIsFatal(t *testing.T) {
	e := New()
	s := state.NewState(state.DefaultParams())
	s.Timestamp.Now = 1_000

	err := e.InitializeBlock(s, block.Header{Height: 1, Timestamp: 999})
	require.Error(t, err)
}

func Test_TransferEndToEnd(t *testing.T) {
	e := New()
	alice := testutils.SeededKeypair(t, 1)
	bob := testutils.SeededKeypair(t, 2)
	s := testutils.NewState(t, 100, alice, bob)
	initBlock(t, e, s)

	call, err := balances.NewTransferCall(bob.ID, 30)
	require.NoError(t, err)
	ext, err := block.NewSigned(alice.Private, 0, call)
	require.NoError(t, err)

	require.NoError(t, e.ApplyExtrinsic(s, ext))

	// 100 minus the 30 transfer minus the base fee of 1.
	require.Equal(t, uint64(69), s.Accounts[alice.ID].Free)
	require.Equal(t, uint64(1), s.Accounts[alice.ID].Nonce)
	require.Equal(t, uint64(130), s.Accounts[bob.ID].Free)
	// The fee flows into the treasury pot.
	require.Equal(t, uint64(1), s.Treasury.Pot)
	require.Len(t, s.Events.Filter(event.KindExtrinsicSuccess), 1)
	issuanceInvariant(t, s)
}

func Test_ReplayNonceRejected(t *testing.T) {
	e := New()
	alice := testutils.SeededKeypair(t, 1)
	bob := testutils.SeededKeypair(t, 2)
	s := testutils.NewState(t, 100, alice, bob)
	initBlock(t, e, s)

	call, err := balances.NewTransferCall(bob.ID, 10)
	require.NoError(t, err)
	ext, err := block.NewSigned(alice.Private, 0, call)
	require.NoError(t, err)

	require.NoError(t, e.ApplyExtrinsic(s, ext))
	// Same extrinsic again: the stored nonce moved on, so this is a replay.
	require.NoError(t, e.ApplyExtrinsic(s, ext))

	require.Equal(t, uint64(1), s.Accounts[alice.ID].Nonce)
	require.Equal(t, uint64(110), s.Accounts[bob.ID].Free)
	rejected := s.Events.Filter(event.KindExtrinsicRejected)
	require.Len(t, rejected, 1)
	require.Equal(t, runtime.ErrInvalidNonce.Error(), string(rejected[0].Payload))
}

func Test_GapNonceRejected(t *testing.T) {
	e := New()
	alice := testutils.SeededKeypair(t, 1)
	bob := testutils.SeededKeypair(t, 2)
	s := testutils.NewState(t, 100, alice, bob)
	initBlock(t, e, s)

	call, err := balances.NewTransferCall(bob.ID, 10)
	require.NoError(t, err)
	ext, err := block.NewSigned(alice.Private, 5, call)
	require.NoError(t, err)

	require.NoError(t, e.ApplyExtrinsic(s, ext))
	// Nothing was charged and nothing moved.
	require.Equal(t, uint64(100), s.Accounts[alice.ID].Free)
	require.Equal(t, uint64(0), s.Accounts[alice.ID].Nonce)
	require.Len(t, s.Events.Filter(event.KindExtrinsicRejected), 1)
}

func Test_BadSignatureRejected(t *testing.T) {
	e := New()
	alice := testutils.SeededKeypair(t, 1)
	mallory := testutils.SeededKeypair(t, 3)
	s := testutils.NewState(t, 100, alice)
	initBlock(t, e, s)

	call, err := balances.NewTransferCall(mallory.ID, 10)
	require.NoError(t, err)
	ext, err := block.NewSigned(alice.Private, 0, call)
	require.NoError(t, err)
	// Re-point the signature at an account the key does not control.
	ext.Signature.Signer = mallory.ID

	require.NoError(t, e.ApplyExtrinsic(s, ext))
	require.Equal(t, uint64(100), s.Accounts[alice.ID].Free)
	rejected := s.Events.Filter(event.KindExtrinsicRejected)
	require.Len(t, rejected, 1)
	require.Equal(t, runtime.ErrBadSignature.Error(), string(rejected[0].Payload))
}

func Test_TamperedCallRejected(t *testing.T) {
	e := New()
	alice := testutils.SeededKeypair(t, 1)
	bob := testutils.SeededKeypair(t, 2)
	s := testutils.NewState(t, 100, alice, bob)
	initBlock(t, e, s)

	call, err := balances.NewTransferCall(bob.ID, 10)
	require.NoError(t, err)
	ext, err := block.NewSigned(alice.Private, 0, call)
	require.NoError(t, err)
	tampered, err := balances.NewTransferCall(bob.ID, 90)
	require.NoError(t, err)
	ext.Call = tampered

	require.NoError(t, e.ApplyExtrinsic(s, ext))
	require.Equal(t, uint64(100), s.Accounts[alice.ID].Free)
	require.Len(t, s.Events.Filter(event.KindExtrinsicRejected), 1)
}

func Test_UnpayableFeeRejectedWithoutNonce(t *testing.T) {
	e := New()
	alice := testutils.SeededKeypair(t, 1)
	bob := testutils.SeededKeypair(t, 2)
	s := testutils.NewState(t, 0, alice)
	initBlock(t, e, s)

	call, err := balances.NewTransferCall(bob.ID, 10)
	require.NoError(t, err)
	ext, err := block.NewSigned(alice.Private, 0, call)
	require.NoError(t, err)

	require.NoError(t, e.ApplyExtrinsic(s, ext))
	// Rejected before any charge: the nonce did not move.
	require.Equal(t, uint64(0), s.Accounts[alice.ID].Nonce)
	rejected := s.Events.Filter(event.KindExtrinsicRejected)
	require.Len(t, rejected, 1)
	require.Equal(t, runtime.ErrInsufficientFunds.Error(), string(rejected[0].Payload))
}

func Test_FailedDispatchKeepsFeeAndNonce(t *testing.T) {
	e := New()
	alice := testutils.SeededKeypair(t, 1)
	bob := testutils.SeededKeypair(t, 2)
	s := testutils.NewState(t, 100, alice, bob)
	initBlock(t, e, s)

	// More than alice holds: admission passes, the dispatch itself fails.
	call, err := balances.NewTransferCall(bob.ID, 500)
	require.NoError(t, err)
	ext, err := block.NewSigned(alice.Private, 0, call)
	require.NoError(t, err)

	require.NoError(t, e.ApplyExtrinsic(s, ext))

	require.Equal(t, uint64(99), s.Accounts[alice.ID].Free)
	require.Equal(t, uint64(1), s.Accounts[alice.ID].Nonce)
	require.Equal(t, uint64(100), s.Accounts[bob.ID].Free)
	failed := s.Events.Filter(event.KindExtrinsicFailed)
	require.Len(t, failed, 1)
	require.Equal(t, runtime.ErrInsufficientFunds.Error(), string(failed[0].Payload))
	issuanceInvariant(t, s)
}

func Test_UnsignedCannotReachSignedCalls(t *testing.T) {
	e := New()
	bob := testutils.SeededKeypair(t, 2)
	s := testutils.NewState(t, 100, bob)
	initBlock(t, e, s)

	call, err := balances.NewTransferCall(bob.ID, 10)
	require.NoError(t, err)
	ext := block.NewUnsigned(call)

	require.NoError(t, e.ApplyExtrinsic(s, ext))
	failed := s.Events.Filter(event.KindExtrinsicFailed)
	require.Len(t, failed, 1)
	require.Equal(t, runtime.ErrBadOrigin.Error(), string(failed[0].Payload))
}

func Test_SessionRotatesAtBoundary(t *testing.T) {
	e := New()
	alice := testutils.SeededKeypair(t, 1)
	s := testutils.NewState(t, 100, alice)
	s.Authority.Active = state.AuthoritySet{alice.ID}

	// Session length 10: blocks 1 through 9 stay in session 0.
	for i := 0; i < 9; i++ {
		initBlock(t, e, s)
		_, err := e.FinalizeBlock(s)
		require.NoError(t, err)
		require.Equal(t, uint32(0), s.Session.Index)
	}

	initBlock(t, e, s)
	_, err := e.FinalizeBlock(s)
	require.NoError(t, err)
	require.Equal(t, uint32(1), s.Session.Index)
	require.Equal(t, uint64(10), s.Session.StartHeight)
}

func Test_ExecuteBlockIsPure(t *testing.T) {
	e := New()
	alice := testutils.SeededKeypair(t, 1)
	bob := testutils.SeededKeypair(t, 2)
	prior := testutils.NewState(t, 100, alice, bob)

	priorRoot, err := prior.Root()
	require.NoError(t, err)

	call, err := balances.NewTransferCall(bob.ID, 30)
	require.NoError(t, err)
	ext, err := block.NewSigned(alice.Private, 0, call)
	require.NoError(t, err)

	extrinsics := []block.Extrinsic{ext}
	bodyRoot, err := block.ExtrinsicsRoot(extrinsics)
	require.NoError(t, err)

	b := block.Block{
		Header: block.Header{
			Format:         block.FormatVersion,
			Height:         1,
			PriorStateRoot: priorRoot,
			ExtrinsicsRoot: bodyRoot,
			Timestamp:      1,
		},
		Extrinsics: extrinsics,
	}

	post, err := e.ExecuteBlock(prior, b)
	require.NoError(t, err)

	// The prior state is untouched.
	require.Equal(t, uint64(100), prior.Accounts[alice.ID].Free)
	require.Equal(t, uint64(0), prior.Height)
	unchangedRoot, err := prior.Root()
	require.NoError(t, err)
	require.Equal(t, priorRoot, unchangedRoot)

	require.Equal(t, uint64(69), post.Accounts[alice.ID].Free)
	require.Equal(t, uint64(1), post.Height)

	// Re-execution is deterministic.
	post2, err := e.ExecuteBlock(prior, b)
	require.NoError(t, err)
	root1, err := post.Root()
	require.NoError(t, err)
	root2, err := post2.Root()
	require.NoError(t, err)
	require.Equal(t, root1, root2)
}

func Test_ExecuteBlockChecksRoots(t *testing.T) {
	e := New()
	alice := testutils.SeededKeypair(t, 1)
	prior := testutils.NewState(t, 100, alice)

	priorRoot, err := prior.Root()
	require.NoError(t, err)
	bodyRoot, err := block.ExtrinsicsRoot(nil)
	require.NoError(t, err)

	b := block.Block{Header: block.Header{
		Height:         1,
		PriorStateRoot: testutils.RandomHash(t),
		ExtrinsicsRoot: bodyRoot,
		Timestamp:      1,
	}}
	_, err = e.ExecuteBlock(prior, b)
	require.ErrorIs(t, err, ErrStateRootMismatch)

	b.Header.PriorStateRoot = priorRoot
	b.Header.ExtrinsicsRoot = testutils.RandomHash(t)
	_, err = e.ExecuteBlock(prior, b)
	require.ErrorIs(t, err, ErrExtrinsicsRootMismatch)
}

func Test_MetadataListsAllCalls(t *testing.T) {
	meta := New().Metadata()
	require.Equal(t, "substrate", meta.SpecName)

	names := map[string]bool{}
	for _, c := range meta.Calls {
		names[c.Module.String()+"."+c.Name] = true
	}
	for _, expected := range []string{
		"balances.transfer", "balances.set_balance",
		"authority.force_set_authorities",
		"staking.bond", "staking.unbond", "staking.validate", "staking.chill",
		"staking.nominate", "staking.report_offence",
		"governance.propose", "governance.vote", "governance.cancel",
		"treasury.spend", "treasury.donate",
		"contracts.upload", "contracts.instantiate", "contracts.call",
	} {
		require.True(t, names[expected], "missing call %s", expected)
	}
}

func Test_EraPaysOutAcrossSessions(t *testing.T) {
	e := New()
	val := testutils.SeededKeypair(t, 1)
	s := testutils.NewState(t, 1_000, val)
	s.Authority.Active = state.AuthoritySet{val.ID}

	// Make the validator a bonded, validating candidate.
	acc := s.Accounts[val.ID]
	acc.Free -= 200
	acc.Reserved += 200
	s.Accounts[val.ID] = acc
	s.Staking.Candidates[val.ID] = state.Candidate{
		Status:     state.CandidateActive,
		Bonded:     200,
		Validating: true,
	}

	// Three sessions of ten blocks each complete an era.
	for i := 0; i < 30; i++ {
		initBlock(t, e, s)
		_, err := e.FinalizeBlock(s)
		require.NoError(t, err)
	}

	require.Equal(t, uint32(1), s.Staking.EraIndex)
	// Era reward 1000: 100 to the pot (minus the spend-period burn at block
	// 30), 900 to the sole point-earning validator.
	require.Equal(t, uint64(800+900), s.Accounts[val.ID].Free)
	issuanceInvariant(t, s)
}

func Test_EmptyElectionKeepsValidators(t *testing.T) {
	e := New()
	alice := testutils.SeededKeypair(t, 1)
	s := testutils.NewState(t, 1_000, alice)
	s.Authority.Active = state.AuthoritySet{alice.ID}

	// No staking candidates at all: the era boundary at block 30 elects
	// nobody, and the rotation at block 40 must not wipe the active set.
	for i := 0; i < 40; i++ {
		initBlock(t, e, s)
		_, err := e.FinalizeBlock(s)
		require.NoError(t, err)
	}

	require.Equal(t, uint32(1), s.Staking.EraIndex)
	require.Equal(t, state.AuthoritySet{alice.ID}, s.Authority.Active)
}
