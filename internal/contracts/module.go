// Package contracts is sandboxed deterministic code execution with metered
// resource consumption.
package contracts

import (
	"errors"

	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/crypto"
	"github.com/loxadim/substrate/internal/event"
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/runtime"
	"github.com/loxadim/substrate/internal/state"
	"github.com/loxadim/substrate/pkg/serialization/codec/wire"
)

const (
	callUpload uint8 = iota
	callInstantiate
	callCall
)

const (
	KindUploaded     event.Kind = "contracts.uploaded"
	KindInstantiated event.Kind = "contracts.instantiated"
	KindCalled       event.Kind = "contracts.called"
)

var (
	ErrNoSuchCode      = errors.New("no such code hash")
	ErrNoSuchContract  = errors.New("no such contract")
	ErrContractBalance = errors.New("transfer exceeds contract balance")
	ErrEmptyCode       = errors.New("empty contract code")
)

type UploadArgs struct {
	Code []byte
}

type InstantiateArgs struct {
	CodeHash  crypto.Hash
	Endowment ledger.Balance
}

type CallArgs struct {
	Contract ledger.AccountID
	Value    ledger.Balance
	GasLimit uint64
	Input    []uint64
}

type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) ID() block.ModuleID {
	return block.ModuleContracts
}

func (m *Module) RegisterCalls(r *runtime.Router) {
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callUpload, Name: "upload", Policy: runtime.PolicySigned}, m.upload)
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callInstantiate, Name: "instantiate", Policy: runtime.PolicySigned}, m.instantiate)
	r.Register(runtime.CallMeta{Module: m.ID(), Index: callCall, Name: "call", Policy: runtime.PolicySigned}, m.call)
}

func (m *Module) OnInitialize(s *state.State) error { return nil }
func (m *Module) OnFinalize(s *state.State) error   { return nil }

func (m *Module) upload(s *state.State, origin runtime.Origin, args []byte) error {
	var a UploadArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}
	if len(a.Code) == 0 {
		return ErrEmptyCode
	}
	hash := crypto.HashData(a.Code)
	s.Contracts.Code[hash] = a.Code
	s.Events.Append(m.ID(), KindUploaded, hash[:])
	return nil
}

func (m *Module) instantiate(s *state.State, origin runtime.Origin, args []byte) error {
	var a InstantiateArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}
	if _, ok := s.Contracts.Code[a.CodeHash]; !ok {
		return ErrNoSuchCode
	}

	addr := ContractAddress(a.CodeHash, origin.Signer, s.Accounts[origin.Signer].Nonce)

	acc := s.Accounts[origin.Signer]
	if acc.Free < a.Endowment {
		return runtime.ErrInsufficientFunds
	}
	acc.Free -= a.Endowment
	s.Accounts[origin.Signer] = acc

	s.Contracts.Instances[addr] = state.ContractInstance{
		CodeHash: a.CodeHash,
		Storage:  map[uint64]uint64{},
		Balance:  a.Endowment,
	}
	s.Events.Append(m.ID(), KindInstantiated, addr[:])
	return nil
}

func (m *Module) call(s *state.State, origin runtime.Origin, args []byte) error {
	var a CallArgs
	if err := wire.Unmarshal(args, &a); err != nil {
		return runtime.ErrDecodeFailure
	}

	acc := s.Accounts[origin.Signer]
	if acc.Free < a.Value {
		return runtime.ErrInsufficientFunds
	}
	acc.Free -= a.Value
	s.Accounts[origin.Signer] = acc

	gasUsed, err := Execute(s, a.Contract, origin.Signer, a.Value, a.GasLimit, a.Input)
	if err != nil {
		return err
	}

	payload, _ := wire.Marshal(gasUsed)
	s.Events.Append(m.ID(), KindCalled, payload)
	return nil
}

// ContractAddress derives a deterministic address from the code, the
// instantiator and the instantiator's nonce at instantiation time.
func ContractAddress(codeHash crypto.Hash, creator ledger.AccountID, nonce ledger.Nonce) ledger.AccountID {
	seed := struct {
		CodeHash crypto.Hash
		Creator  ledger.AccountID
		Nonce    ledger.Nonce
	}{codeHash, creator, nonce}
	encoded, _ := wire.Marshal(seed)
	return ledger.AccountID(crypto.HashData(encoded))
}

func NewUploadCall(code []byte) (block.Call, error) {
	return newCall(callUpload, UploadArgs{Code: code})
}

func NewInstantiateCall(codeHash crypto.Hash, endowment ledger.Balance) (block.Call, error) {
	return newCall(callInstantiate, InstantiateArgs{CodeHash: codeHash, Endowment: endowment})
}

func NewCallCall(contract ledger.AccountID, value ledger.Balance, gasLimit uint64, input []uint64) (block.Call, error) {
	return newCall(callCall, CallArgs{Contract: contract, Value: value, GasLimit: gasLimit, Input: input})
}

func newCall(index uint8, args any) (block.Call, error) {
	encoded, err := wire.Marshal(args)
	if err != nil {
		return block.Call{}, err
	}
	return block.Call{
		Module:  block.ModuleContracts,
		Payload: append([]byte{index}, encoded...),
	}, nil
}
