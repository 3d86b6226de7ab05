package treasury

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/runtime"
	"github.com/loxadim/substrate/internal/state"
)

func accountID(b byte) ledger.AccountID {
	var id ledger.AccountID
	id[0] = b
	return id
}

func Test_Donate(t *testing.T) {
	s := state.NewState(state.DefaultParams())
	alice := accountID(1)
	s.Accounts[alice] = ledger.Account{Free: 100}
	s.TotalIssuance = 100

	r := runtime.NewRouter()
	New().RegisterCalls(r)

	call, err := NewDonateCall(40)
	require.NoError(t, err)
	require.NoError(t, r.Dispatch(s, runtime.Signed(alice), call))

	require.Equal(t, uint64(60), s.Accounts[alice].Free)
	require.Equal(t, uint64(40), s.Treasury.Pot)
	// Moving funds into the pot does not change issuance.
	require.Equal(t, uint64(100), s.TotalIssuance)

	call, err = NewDonateCall(61)
	require.NoError(t, err)
	require.ErrorIs(t, r.Dispatch(s, runtime.Signed(alice), call), runtime.ErrInsufficientFunds)
}

func Test_SpendRootOnly(t *testing.T) {
	s := state.NewState(state.DefaultParams())
	s.Treasury.Pot = 100
	s.TotalIssuance = 100
	bob := accountID(2)

	r := runtime.NewRouter()
	New().RegisterCalls(r)

	call, err := NewSpendCall(bob, 30)
	require.NoError(t, err)

	require.ErrorIs(t, r.Dispatch(s, runtime.Signed(accountID(1)), call), runtime.ErrBadOrigin)

	require.NoError(t, r.Dispatch(s, runtime.Root(), call))
	require.Equal(t, uint64(70), s.Treasury.Pot)
	require.Equal(t, uint64(30), s.Accounts[bob].Free)
	require.Equal(t, uint64(100), s.TotalIssuance)
}

func Test_SpendExceedingPot(t *testing.T) {
	s := state.NewState(state.DefaultParams())
	s.Treasury.Pot = 10

	r := runtime.NewRouter()
	New().RegisterCalls(r)

	call, err := NewSpendCall(accountID(2), 11)
	require.NoError(t, err)
	require.ErrorIs(t, r.Dispatch(s, runtime.Root(), call), runtime.ErrInsufficientTreasuryFunds)
	require.Equal(t, uint64(10), s.Treasury.Pot)
}

func Test_PeriodicBurn(t *testing.T) {
	s := state.NewState(state.DefaultParams())
	s.Treasury.Pot = 1_000_000
	s.TotalIssuance = 1_000_000

	m := New()

	// Off-period heights do nothing.
	s.Height = 29
	require.NoError(t, m.OnFinalize(s))
	require.Equal(t, uint64(1_000_000), s.Treasury.Pot)

	// Spend period 30, burn 1%.
	s.Height = 30
	require.NoError(t, m.OnFinalize(s))
	require.Equal(t, uint64(990_000), s.Treasury.Pot)
	require.Equal(t, uint64(990_000), s.TotalIssuance)
	require.Len(t, s.Events.Filter(KindBurned), 1)
}

func Test_BurnRoundsDownToZero(t *testing.T) {
	s := state.NewState(state.DefaultParams())
	s.Treasury.Pot = 10 // 1% of 10 rounds to zero
	s.TotalIssuance = 10
	s.Height = 30

	require.NoError(t, New().OnFinalize(s))
	require.Equal(t, uint64(10), s.Treasury.Pot)
	require.Empty(t, s.Events)
}
