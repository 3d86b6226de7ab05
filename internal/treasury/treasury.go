// Package treasury holds the pooled pot: fed by a configured cut of era
// issuance and by direct deposits, drained by governance-approved spends and
// a periodic burn.
package treasury

import (
	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/event"
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/runtime"
	"github.com/loxadim/substrate/internal/state"
	"github.com/loxadim/substrate/pkg/serialization/codec/wire"
)

const (
	callSpend uint8 = iota // root, reached via governance enactment
	callDonate
)

const (
	KindSpent   event.Kind = "treasury.spent"
	KindDonated event.Kind = "treasury.donated"
	KindBurned  event.Kind = "treasury.burned"
)

// SpendArgs pays out of the pot. Root only: a spend proposal goes through
// the governance lifecycle and arrives here at enactment.
type SpendArgs struct {
	Beneficiary ledger.AccountID
	Value       ledger.Balance
}

type DonateArgs struct {
	Value ledger.Balance
}

type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) ID() block.ModuleID {
	return block.ModuleTreasury
}

func (m *Module) RegisterCalls(r *runtime.Router) {
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callSpend, Name: "spend", Policy: runtime.PolicyRoot}, m.spend)
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callDonate, Name: "donate", Policy: runtime.PolicySigned}, m.donate)
}

func (m *Module) OnInitialize(s *state.State) error { return nil }

// OnFinalize burns the configured fraction of the pot every spend period.
func (m *Module) OnFinalize(s *state.State) error {
	if s.Params.SpendPeriod == 0 || s.Height == 0 || s.Height%s.Params.SpendPeriod != 0 {
		return nil
	}
	burn := s.Treasury.Pot / state.Millionths * ledger.Balance(s.Params.BurnMillionths)
	if rem := s.Treasury.Pot % state.Millionths; rem > 0 {
		burn += rem * ledger.Balance(s.Params.BurnMillionths) / state.Millionths
	}
	if burn == 0 {
		return nil
	}
	s.Treasury.Pot -= burn
	s.TotalIssuance -= burn

	payload, _ := wire.Marshal(burn)
	s.Events.Append(m.ID(), KindBurned, payload)
	return nil
}

// spend draws from the pot rather than minting. A pot too small to pay at
// enactment time fails the dispatch; governance then marks the proposal
// Rejected post-hoc rather than retrying.
func (m *Module) spend(s *state.State, origin runtime.Origin, args []byte) error {
	var a SpendArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}
	if s.Treasury.Pot < a.Value {
		return runtime.ErrInsufficientTreasuryFunds
	}
	s.Treasury.Pot -= a.Value

	acc := s.Accounts[a.Beneficiary]
	acc.Free += a.Value
	s.Accounts[a.Beneficiary] = acc

	payload, _ := wire.Marshal(a)
	s.Events.Append(m.ID(), KindSpent, payload)
	return nil
}

// donate moves the signer's free balance into the pot.
func (m *Module) donate(s *state.State, origin runtime.Origin, args []byte) error {
	var a DonateArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}
	acc := s.Accounts[origin.Signer]
	if acc.Free < a.Value {
		return runtime.ErrInsufficientFunds
	}
	acc.Free -= a.Value
	s.Accounts[origin.Signer] = acc
	s.Treasury.Pot += a.Value

	payload, _ := wire.Marshal(a)
	s.Events.Append(m.ID(), KindDonated, payload)
	return nil
}

// NewSpendCall builds the root-only payout, typically wrapped in a
// governance proposal.
func NewSpendCall(beneficiary ledger.AccountID, value ledger.Balance) (block.Call, error) {
	return newCall(callSpend, SpendArgs{Beneficiary: beneficiary, Value: value})
}

func NewDonateCall(value ledger.Balance) (block.Call, error) {
	return newCall(callDonate, DonateArgs{Value: value})
}

func newCall(index uint8, args any) (block.Call, error) {
	encoded, err := wire.Marshal(args)
	if err != nil {
		return block.Call{}, err
	}
	return block.Call{
		Module:  block.ModuleTreasury,
		Payload: append([]byte{index}, encoded...),
	}, nil
}
