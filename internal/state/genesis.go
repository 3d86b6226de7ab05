package state

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/loxadim/substrate/internal/ledger"
)

// GenesisAccount is one initial ledger entry.
type GenesisAccount struct {
	// PublicKey is the hex-encoded ed25519 public key.
	PublicKey string `json:"public_key"`
	Free      uint64 `json:"free"`
	// Bonded stake, reserved immediately. Accounts with a bond become
	// staking candidates.
	Bonded uint64 `json:"bonded,omitempty"`
	// Validate marks the account as a validator candidate.
	Validate bool `json:"validate,omitempty"`
}

// GenesisConfig merges every module's initial state. Consumed exactly once,
// before the first block.
type GenesisConfig struct {
	Params   Params           `json:"params"`
	Accounts []GenesisAccount `json:"accounts"`
	// Authorities is the initial active validator set, hex public keys in
	// set order.
	Authorities []string `json:"authorities"`
	// Council is the initial council membership, hex public keys.
	Council []string `json:"council"`
	// TreasuryPot is the initial pooled balance.
	TreasuryPot uint64 `json:"treasury_pot"`
	// Timestamp is the genesis wall-clock claim in milliseconds.
	Timestamp uint64 `json:"timestamp"`
}

// GenesisFromJSON parses a genesis file.
func GenesisFromJSON(data []byte) (GenesisConfig, error) {
	var cfg GenesisConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return GenesisConfig{}, fmt.Errorf("parse genesis: %w", err)
	}
	return cfg, nil
}

func accountIDFromHexKey(hexKey string) (ledger.AccountID, []byte, error) {
	pub, err := hex.DecodeString(hexKey)
	if err != nil {
		return ledger.AccountID{}, nil, fmt.Errorf("decode public key %q: %w", hexKey, err)
	}
	if len(pub) != 32 {
		return ledger.AccountID{}, nil, fmt.Errorf("public key %q: expected 32 bytes, got %d", hexKey, len(pub))
	}
	return ledger.NewAccountID(pub), pub, nil
}

// BuildState populates a fresh state from the genesis record.
func BuildState(cfg GenesisConfig) (*State, error) {
	s := NewState(cfg.Params)
	s.Timestamp.Now = cfg.Timestamp
	s.Treasury.Pot = cfg.TreasuryPot
	s.TotalIssuance = cfg.TreasuryPot

	for _, ga := range cfg.Accounts {
		id, pub, err := accountIDFromHexKey(ga.PublicKey)
		if err != nil {
			return nil, err
		}
		if _, exists := s.Accounts[id]; exists {
			return nil, fmt.Errorf("duplicate genesis account %s", id)
		}
		acc := ledger.Account{
			Free:      ga.Free,
			PublicKey: pub,
		}
		if ga.Bonded > 0 {
			if ga.Bonded > acc.Free {
				return nil, fmt.Errorf("genesis account %s: bond %d exceeds balance %d", id, ga.Bonded, acc.Free)
			}
			acc.Free -= ga.Bonded
			acc.Reserved += ga.Bonded
			s.Staking.Candidates[id] = Candidate{
				Status:     CandidateBonded,
				Bonded:     ga.Bonded,
				Validating: ga.Validate,
			}
		}
		s.Accounts[id] = acc
		s.TotalIssuance += acc.Free + acc.Reserved
	}

	for _, hexKey := range cfg.Authorities {
		id, _, err := accountIDFromHexKey(hexKey)
		if err != nil {
			return nil, err
		}
		s.Authority.Active = append(s.Authority.Active, id)
		if cand, ok := s.Staking.Candidates[id]; ok {
			cand.Status = CandidateActive
			s.Staking.Candidates[id] = cand
		}
	}

	for _, hexKey := range cfg.Council {
		id, _, err := accountIDFromHexKey(hexKey)
		if err != nil {
			return nil, err
		}
		s.Governance.CouncilMembers = append(s.Governance.CouncilMembers, id)
	}

	return s, nil
}
