package state

import (
	"maps"
	"slices"

	"github.com/loxadim/substrate/internal/crypto"
	"github.com/loxadim/substrate/internal/ledger"
)

// Copy returns a deep copy of the state. The executive snapshots before each
// dispatch and restores the snapshot on dispatch failure, which is what makes
// each extrinsic atomic; the block importer copies before executing so a
// fatal error leaves the prior state untouched.
func (s *State) Copy() *State {
	c := *s

	c.Accounts = make(map[ledger.AccountID]ledger.Account, len(s.Accounts))
	for id, acc := range s.Accounts {
		acc.PublicKey = slices.Clone(acc.PublicKey)
		c.Accounts[id] = acc
	}

	c.Authority.Active = slices.Clone(s.Authority.Active)
	if s.Authority.Pending != nil {
		pending := slices.Clone(*s.Authority.Pending)
		c.Authority.Pending = &pending
	}

	c.Staking.Candidates = make(map[ledger.AccountID]Candidate, len(s.Staking.Candidates))
	for id, cand := range s.Staking.Candidates {
		cand.Targets = slices.Clone(cand.Targets)
		c.Staking.Candidates[id] = cand
	}
	c.Staking.EraPoints = maps.Clone(s.Staking.EraPoints)
	c.Staking.PendingSlashes = slices.Clone(s.Staking.PendingSlashes)

	c.Governance.Proposals = make(map[uint32]Proposal, len(s.Governance.Proposals))
	for id, p := range s.Governance.Proposals {
		p.CallPayload = slices.Clone(p.CallPayload)
		p.Votes = maps.Clone(p.Votes)
		c.Governance.Proposals[id] = p
	}
	c.Governance.CouncilMembers = slices.Clone(s.Governance.CouncilMembers)

	c.Contracts.Code = make(map[crypto.Hash][]byte, len(s.Contracts.Code))
	for h, code := range s.Contracts.Code {
		c.Contracts.Code[h] = slices.Clone(code)
	}
	c.Contracts.Instances = make(map[ledger.AccountID]ContractInstance, len(s.Contracts.Instances))
	for id, inst := range s.Contracts.Instances {
		inst.Storage = maps.Clone(inst.Storage)
		c.Contracts.Instances[id] = inst
	}

	c.Events = slices.Clone(s.Events)

	return &c
}
