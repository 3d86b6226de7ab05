// Package staking manages validator candidacy, stake bonding, era-based
// reward distribution and slashing. It proposes each era's validator set;
// the session rotator activates it through the authority registry.
package staking

import (
	"math/big"
	"math/bits"
	"sort"

	"github.com/loxadim/substrate/internal/balances"
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/state"
)

// AuthorPoints accrue to the block author each block and weight era rewards.
const AuthorPoints = 20

// backing is a candidate's total stake: own bond plus nominations. Each
// nominator's bond is split evenly over their targets; division dust is
// dropped, identically on every node.
func backing(s *state.State, who ledger.AccountID) ledger.Balance {
	cand, ok := s.Staking.Candidates[who]
	if !ok {
		return 0
	}
	total := cand.Bonded
	for _, nominatorID := range sortedCandidateIDs(s) {
		nominator := s.Staking.Candidates[nominatorID]
		if len(nominator.Targets) == 0 {
			continue
		}
		share := nominator.Bonded / ledger.Balance(len(nominator.Targets))
		for _, target := range nominator.Targets {
			if target == who {
				total += share
			}
		}
	}
	return total
}

// sortedCandidateIDs returns candidate ids in identity order for
// deterministic iteration.
func sortedCandidateIDs(s *state.State) []ledger.AccountID {
	ids := make([]ledger.AccountID, 0, len(s.Staking.Candidates))
	for id := range s.Staking.Candidates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}

// electNextSet selects the top-K validating candidates by total backing,
// ties broken by identity order.
func electNextSet(s *state.State) state.AuthoritySet {
	type scored struct {
		id    ledger.AccountID
		stake ledger.Balance
	}
	var candidates []scored
	for _, id := range sortedCandidateIDs(s) {
		cand := s.Staking.Candidates[id]
		if !cand.Validating || cand.Bonded < s.Params.MinimumBond {
			continue
		}
		candidates = append(candidates, scored{id: id, stake: backing(s, id)})
	}

	// Identity order is already in place from sortedCandidateIDs; the stable
	// sort by stake preserves it among equals.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].stake > candidates[j].stake
	})

	k := int(s.Params.ValidatorSlots)
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	next := make(state.AuthoritySet, 0, len(candidates))
	for _, c := range candidates {
		next = append(next, c.id)
	}
	return next
}

// payoutEra mints the era reward. The treasury takes its configured cut; the
// remainder is split over the era's validators by stake-weighted points, and
// each validator's share is divided pro rata between its own bond and its
// nominators' contributions. Rewards are minted, never drawn from a pool, so
// insufficient funds is impossible by construction.
func payoutEra(s *state.State) {
	if s.Params.EraReward == 0 {
		return
	}

	cut := s.Params.EraReward / state.Millionths * ledger.Balance(s.Params.TreasuryCutMillionths)
	if rem := s.Params.EraReward % state.Millionths; rem > 0 {
		cut += rem * ledger.Balance(s.Params.TreasuryCutMillionths) / state.Millionths
	}
	pool := s.Params.EraReward - cut
	s.Treasury.Pot += cut
	s.TotalIssuance += cut

	// Weights are points*backing; the products and their sum can exceed 64
	// bits, so they stay in big.Int until each share is reduced to a balance.
	totalWeight := new(big.Int)
	weights := map[ledger.AccountID]*big.Int{}
	for _, id := range s.Authority.Active {
		points := s.Staking.EraPoints[id]
		if points == 0 {
			continue
		}
		w := new(big.Int).SetUint64(points)
		w.Mul(w, new(big.Int).SetUint64(backing(s, id)))
		weights[id] = w
		totalWeight.Add(totalWeight, w)
	}
	if totalWeight.Sign() == 0 {
		return
	}

	poolBig := new(big.Int).SetUint64(pool)
	for _, id := range s.Authority.Active {
		w, ok := weights[id]
		if !ok {
			continue
		}
		share := new(big.Int).Mul(poolBig, w)
		share.Div(share, totalWeight)
		distribute(s, id, share.Uint64())
	}
}

// distribute splits one validator's reward between its own bond and its
// nominators, pro rata by contributed stake. Rounding dust goes to the
// validator.
func distribute(s *state.State, validator ledger.AccountID, reward ledger.Balance) {
	total := backing(s, validator)
	if total == 0 || reward == 0 {
		return
	}

	paid := ledger.Balance(0)
	for _, nominatorID := range sortedCandidateIDs(s) {
		if nominatorID == validator {
			continue
		}
		nominator := s.Staking.Candidates[nominatorID]
		if len(nominator.Targets) == 0 {
			continue
		}
		contribution := ledger.Balance(0)
		share := nominator.Bonded / ledger.Balance(len(nominator.Targets))
		for _, target := range nominator.Targets {
			if target == validator {
				contribution += share
			}
		}
		if contribution == 0 {
			continue
		}
		part := mulDiv(reward, contribution, total)
		balances.Mint(s, nominatorID, part)
		paid += part
	}
	balances.Mint(s, validator, reward-paid)
}

// mulDiv returns a*b/d through a 128-bit intermediate product. Callers
// guarantee b <= d, so the quotient fits in 64 bits.
func mulDiv(a, b, d uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, d)
	return q
}

// applySlashes burns each queued slash from the offender's bond. A slash
// that would drive the bond negative clamps at zero.
func applySlashes(s *state.State) {
	for _, slash := range s.Staking.PendingSlashes {
		cand, ok := s.Staking.Candidates[slash.Offender]
		if !ok {
			continue
		}
		amount := cand.Bonded / state.Millionths * ledger.Balance(slash.FractionMillionths)
		if rem := cand.Bonded % state.Millionths; rem > 0 {
			amount += rem * ledger.Balance(slash.FractionMillionths) / state.Millionths
		}
		if amount > cand.Bonded {
			amount = cand.Bonded
		}

		burned := balances.BurnReserved(s, slash.Offender, amount)
		cand.Bonded -= burned
		cand.Status = state.CandidateSlashed
		cand.Validating = false
		s.Staking.Candidates[slash.Offender] = cand
	}
	s.Staking.PendingSlashes = nil
}
