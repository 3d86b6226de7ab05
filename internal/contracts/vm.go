package contracts

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/state"
)

// The contract VM is a deterministic stack machine over 64-bit words with
// metered execution: every instruction costs gas, storage and transfers cost
// more, and exhaustion aborts the call.

type Opcode byte

const (
	OpHalt Opcode = iota
	// OpPush is followed by an 8-byte little-endian immediate.
	OpPush
	OpPop
	OpAdd
	OpSub
	OpMul
	OpDup
	OpSwap
	// OpLoad pops a cell key and pushes the stored value, zero if unset.
	OpLoad
	// OpStore pops a value then a cell key and writes the cell.
	OpStore
	// OpValue pushes the value transferred with the call.
	OpValue
	// OpBalance pushes the contract's balance.
	OpBalance
	// OpTransfer pops an amount and sends it from the contract to the caller.
	OpTransfer
	// OpInput pops an index and pushes the corresponding input word, zero
	// when out of range.
	OpInput
	// OpJump is followed by a 4-byte little-endian code offset.
	OpJump
	// OpJumpIfZero pops a condition and jumps to the 4-byte offset when it
	// is zero.
	OpJumpIfZero
)

// Per-instruction gas costs.
const (
	gasBase     = 1
	gasStore    = 10
	gasTransfer = 50
)

var (
	ErrOutOfGas       = errors.New("out of gas")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrBadJump        = errors.New("jump target out of code")
	ErrBadOpcode      = errors.New("unknown opcode")
	ErrTruncatedCode  = errors.New("truncated immediate")
)

const maxStackDepth = 1024

type vm struct {
	code  []byte
	stack []uint64
	pc    int
	gas   uint64
}

func (v *vm) charge(cost uint64) error {
	if v.gas < cost {
		return ErrOutOfGas
	}
	v.gas -= cost
	return nil
}

func (v *vm) push(x uint64) error {
	if len(v.stack) >= maxStackDepth {
		return fmt.Errorf("stack overflow at depth %d", maxStackDepth)
	}
	v.stack = append(v.stack, x)
	return nil
}

func (v *vm) pop() (uint64, error) {
	if len(v.stack) == 0 {
		return 0, ErrStackUnderflow
	}
	x := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return x, nil
}

func (v *vm) imm64() (uint64, error) {
	if v.pc+8 > len(v.code) {
		return 0, ErrTruncatedCode
	}
	x := binary.LittleEndian.Uint64(v.code[v.pc:])
	v.pc += 8
	return x, nil
}

func (v *vm) imm32() (uint32, error) {
	if v.pc+4 > len(v.code) {
		return 0, ErrTruncatedCode
	}
	x := binary.LittleEndian.Uint32(v.code[v.pc:])
	v.pc += 4
	return x, nil
}

// Execute runs a contract call to completion. It mutates the instance's
// storage and balances directly; the executive's dispatch snapshot makes the
// whole call atomic, so a trap part-way through leaves no residue.
func Execute(s *state.State, contract ledger.AccountID, caller ledger.AccountID, value ledger.Balance, gasLimit uint64, input []uint64) (gasUsed uint64, err error) {
	inst, ok := s.Contracts.Instances[contract]
	if !ok {
		return 0, ErrNoSuchContract
	}
	code, ok := s.Contracts.Code[inst.CodeHash]
	if !ok {
		return 0, ErrNoSuchCode
	}

	inst.Balance += value
	s.Contracts.Instances[contract] = inst

	v := &vm{code: code, gas: gasLimit}
	for {
		if v.pc >= len(v.code) {
			// Falling off the end is a regular halt.
			break
		}
		op := Opcode(v.code[v.pc])
		v.pc++

		if err := v.charge(gasBase); err != nil {
			return gasLimit - v.gas, err
		}

		switch op {
		case OpHalt:
			return gasLimit - v.gas, nil
		case OpPush:
			x, err := v.imm64()
			if err != nil {
				return gasLimit - v.gas, err
			}
			if err := v.push(x); err != nil {
				return gasLimit - v.gas, err
			}
		case OpPop:
			if _, err := v.pop(); err != nil {
				return gasLimit - v.gas, err
			}
		case OpAdd, OpSub, OpMul:
			b, err := v.pop()
			if err != nil {
				return gasLimit - v.gas, err
			}
			a, err := v.pop()
			if err != nil {
				return gasLimit - v.gas, err
			}
			var r uint64
			switch op {
			case OpAdd:
				r = a + b
			case OpSub:
				r = a - b
			case OpMul:
				r = a * b
			}
			if err := v.push(r); err != nil {
				return gasLimit - v.gas, err
			}
		case OpDup:
			if len(v.stack) == 0 {
				return gasLimit - v.gas, ErrStackUnderflow
			}
			if err := v.push(v.stack[len(v.stack)-1]); err != nil {
				return gasLimit - v.gas, err
			}
		case OpSwap:
			if len(v.stack) < 2 {
				return gasLimit - v.gas, ErrStackUnderflow
			}
			n := len(v.stack)
			v.stack[n-1], v.stack[n-2] = v.stack[n-2], v.stack[n-1]
		case OpLoad:
			key, err := v.pop()
			if err != nil {
				return gasLimit - v.gas, err
			}
			if err := v.push(inst.Storage[key]); err != nil {
				return gasLimit - v.gas, err
			}
		case OpStore:
			if err := v.charge(gasStore - gasBase); err != nil {
				return gasLimit - v.gas, err
			}
			val, err := v.pop()
			if err != nil {
				return gasLimit - v.gas, err
			}
			key, err := v.pop()
			if err != nil {
				return gasLimit - v.gas, err
			}
			if inst.Storage == nil {
				inst.Storage = map[uint64]uint64{}
			}
			inst.Storage[key] = val
			s.Contracts.Instances[contract] = inst
		case OpValue:
			if err := v.push(value); err != nil {
				return gasLimit - v.gas, err
			}
		case OpBalance:
			if err := v.push(inst.Balance); err != nil {
				return gasLimit - v.gas, err
			}
		case OpTransfer:
			if err := v.charge(gasTransfer - gasBase); err != nil {
				return gasLimit - v.gas, err
			}
			amount, err := v.pop()
			if err != nil {
				return gasLimit - v.gas, err
			}
			if amount > inst.Balance {
				return gasLimit - v.gas, ErrContractBalance
			}
			inst.Balance -= amount
			s.Contracts.Instances[contract] = inst
			acc := s.Accounts[caller]
			acc.Free += amount
			s.Accounts[caller] = acc
		case OpInput:
			idx, err := v.pop()
			if err != nil {
				return gasLimit - v.gas, err
			}
			var word uint64
			if idx < uint64(len(input)) {
				word = input[idx]
			}
			if err := v.push(word); err != nil {
				return gasLimit - v.gas, err
			}
		case OpJump:
			target, err := v.imm32()
			if err != nil {
				return gasLimit - v.gas, err
			}
			if int(target) > len(v.code) {
				return gasLimit - v.gas, ErrBadJump
			}
			v.pc = int(target)
		case OpJumpIfZero:
			target, err := v.imm32()
			if err != nil {
				return gasLimit - v.gas, err
			}
			cond, err := v.pop()
			if err != nil {
				return gasLimit - v.gas, err
			}
			if int(target) > len(v.code) {
				return gasLimit - v.gas, ErrBadJump
			}
			if cond == 0 {
				v.pc = int(target)
			}
		default:
			return gasLimit - v.gas, ErrBadOpcode
		}
	}
	return gasLimit - v.gas, nil
}
