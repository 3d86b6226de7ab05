// Package balances is the fungible-token ledger: transfers between accounts,
// reserve/unreserve for deposits, and the mint/burn paths that are the only
// ways total issuance changes.
package balances

import (
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/runtime"
	"github.com/loxadim/substrate/internal/state"
)

// Transfer moves value between free balances. The whole operation applies or
// none of it does.
func Transfer(s *state.State, from, to ledger.AccountID, value ledger.Balance) error {
	sender := s.Accounts[from]
	if sender.Free < value {
		return runtime.ErrInsufficientFunds
	}
	sender.Free -= value
	s.Accounts[from] = sender

	receiver := s.Accounts[to]
	receiver.Free += value
	s.Accounts[to] = receiver
	return nil
}

// Reserve moves value from free to reserved within one account.
func Reserve(s *state.State, who ledger.AccountID, value ledger.Balance) error {
	acc := s.Accounts[who]
	if acc.Free < value {
		return runtime.ErrInsufficientFunds
	}
	acc.Free -= value
	acc.Reserved += value
	s.Accounts[who] = acc
	return nil
}

// Unreserve releases up to value from reserved back to free, returning the
// amount actually released.
func Unreserve(s *state.State, who ledger.AccountID, value ledger.Balance) ledger.Balance {
	acc := s.Accounts[who]
	if value > acc.Reserved {
		value = acc.Reserved
	}
	acc.Reserved -= value
	acc.Free += value
	s.Accounts[who] = acc
	return value
}

// Withdraw removes value from a free balance without crediting anyone,
// decreasing issuance. Used for fees paid into nothing and burns.
func Withdraw(s *state.State, who ledger.AccountID, value ledger.Balance) error {
	acc := s.Accounts[who]
	if acc.Free < value {
		return runtime.ErrInsufficientFunds
	}
	acc.Free -= value
	s.Accounts[who] = acc
	s.TotalIssuance -= value
	return nil
}

// Mint credits newly issued funds to a free balance. The only
// issuance-increasing path; callers are staking rewards and configured
// inflation.
func Mint(s *state.State, who ledger.AccountID, value ledger.Balance) {
	acc := s.Accounts[who]
	acc.Free += value
	s.Accounts[who] = acc
	s.TotalIssuance += value
}

// BurnReserved destroys up to value of reserved balance, returning the amount
// actually burned. Used by slashing; clamps rather than erroring.
func BurnReserved(s *state.State, who ledger.AccountID, value ledger.Balance) ledger.Balance {
	acc := s.Accounts[who]
	if value > acc.Reserved {
		value = acc.Reserved
	}
	acc.Reserved -= value
	s.Accounts[who] = acc
	s.TotalIssuance -= value
	return value
}
