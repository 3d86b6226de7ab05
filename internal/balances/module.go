package balances

import (
	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/event"
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/runtime"
	"github.com/loxadim/substrate/internal/state"
	"github.com/loxadim/substrate/pkg/serialization/codec/wire"
)

const (
	callTransfer   uint8 = iota // signed
	callSetBalance              // root
)

const KindTransfer event.Kind = "balances.transfer"

// TransferArgs is the payload of the transfer call.
type TransferArgs struct {
	Dest  ledger.AccountID
	Value ledger.Balance
}

// SetBalanceArgs forces an account's free balance. Root only.
type SetBalanceArgs struct {
	Who  ledger.AccountID
	Free ledger.Balance
}

type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) ID() block.ModuleID {
	return block.ModuleBalances
}

func (m *Module) RegisterCalls(r *runtime.Router) {
	r.Register(runtime.CallMeta{
		Module: m.ID(), Index: callTransfer, Name: "transfer", Policy: runtime.PolicySigned,
	}, m.transfer)
	r.Register(runtime.CallMeta{
		Module: m.ID(), Index: callSetBalance, Name: "set_balance", Policy: runtime.PolicyRoot,
	}, m.setBalance)
}

func (m *Module) OnInitialize(s *state.State) error { return nil }
func (m *Module) OnFinalize(s *state.State) error   { return nil }

func (m *Module) transfer(s *state.State, origin runtime.Origin, args []byte) error {
	var a TransferArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}
	if err := Transfer(s, origin.Signer, a.Dest, a.Value); err != nil {
		return err
	}
	payload, _ := wire.Marshal(a)
	s.Events.Append(m.ID(), KindTransfer, payload)
	return nil
}

func (m *Module) setBalance(s *state.State, origin runtime.Origin, args []byte) error {
	var a SetBalanceArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}
	acc := s.Accounts[a.Who]
	// Issuance tracks the delta so conservation holds across forced edits.
	s.TotalIssuance += a.Free
	s.TotalIssuance -= acc.Free
	acc.Free = a.Free
	s.Accounts[a.Who] = acc
	return nil
}

// NewTransferCall builds the dispatchable for a plain transfer.
func NewTransferCall(dest ledger.AccountID, value ledger.Balance) (block.Call, error) {
	return newCall(callTransfer, TransferArgs{Dest: dest, Value: value})
}

// NewSetBalanceCall builds the root-only forced balance call.
func NewSetBalanceCall(who ledger.AccountID, free ledger.Balance) (block.Call, error) {
	return newCall(callSetBalance, SetBalanceArgs{Who: who, Free: free})
}

func newCall(index uint8, args any) (block.Call, error) {
	encoded, err := wire.Marshal(args)
	if err != nil {
		return block.Call{}, err
	}
	return block.Call{
		Module:  block.ModuleBalances,
		Payload: append([]byte{index}, encoded...),
	}, nil
}
