package state

import "github.com/loxadim/substrate/internal/ledger"

// Millionths is the denominator used for all fractional parameters.
const Millionths = 1_000_000

// Params are the chain's fixed parameters, set at genesis and never mutated
// by execution.
type Params struct {
	// BaseFee is charged per extrinsic before dispatch.
	BaseFee ledger.Balance
	// ByteFee is charged per encoded extrinsic byte.
	ByteFee ledger.Balance

	// SessionLength is the session span in blocks.
	SessionLength uint64
	// SessionsPerEra groups sessions into staking eras.
	SessionsPerEra uint32
	// ValidatorSlots is the target size of the elected validator set.
	ValidatorSlots uint32
	// MinimumBond is the smallest stake accepted by Bond.
	MinimumBond ledger.Balance
	// EraReward is the issuance minted per era and split by stake-weighted
	// points.
	EraReward ledger.Balance

	// TreasuryCutMillionths of the era reward flows into the pot.
	TreasuryCutMillionths uint32
	// BurnMillionths of the pot is burned every SpendPeriod.
	BurnMillionths uint32
	// SpendPeriod in blocks.
	SpendPeriod uint64

	// VotingPeriod is the governance voting window in blocks.
	VotingPeriod uint64
	// EnactmentDelay is the gap between approval and enactment in blocks.
	EnactmentDelay uint64
	// SlashRejected forfeits (burns) the deposit of cancelled proposals.
	SlashRejected bool
}

// DefaultParams are the values used by tests and the demo chain.
func DefaultParams() Params {
	return Params{
		BaseFee:               1,
		ByteFee:               0,
		SessionLength:         10,
		SessionsPerEra:        3,
		ValidatorSlots:        4,
		MinimumBond:           100,
		EraReward:             1_000,
		TreasuryCutMillionths: 100_000, // 10%
		BurnMillionths:        10_000,  // 1%
		SpendPeriod:           30,
		VotingPeriod:          20,
		EnactmentDelay:        5,
		SlashRejected:         true,
	}
}
