package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ─── Snapshot Encoding ──────────────────────────────────────────────────────
// Snapshots written by older versions may lack the settings fields. Missing
// optional fields get their defaults; they are never a load error.

// UnmarshalJSON decodes a snapshot and fills in defaults for absent fields.
func (s *LedgerState) UnmarshalJSON(data []byte) error {
	type plain LedgerState
	var raw struct {
		plain
		WeeklyAllowance *decimal.Decimal `json:"weeklyAllowance"`
		InterestMode    *InterestMode    `json:"interestRateMode"`
		FixedRate       *decimal.Decimal `json:"fixedInterestRate"`
		Tiered          *TieredConfig    `json:"tieredInterestConfig"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = LedgerState(raw.plain)
	defaults := DefaultConfig()

	s.WeeklyAllowance = defaults.WeeklyAllowance
	if raw.WeeklyAllowance != nil {
		s.WeeklyAllowance = *raw.WeeklyAllowance
	}
	s.InterestMode = defaults.InterestMode
	if raw.InterestMode != nil && *raw.InterestMode != "" {
		s.InterestMode = *raw.InterestMode
	}
	s.FixedRate = defaults.FixedRate
	if raw.FixedRate != nil {
		s.FixedRate = *raw.FixedRate
	}
	s.Tiered = defaults.Tiered
	if raw.Tiered != nil {
		s.Tiered = *raw.Tiered
	}

	if s.AppName == "" {
		s.AppName = DefaultAppName
	}
	if s.AdminPassword == "" {
		s.AdminPassword = DefaultAdminPassword
	}
	if s.Badges == nil {
		s.Badges = []BadgeID{}
	}
	if s.Goals == nil {
		s.Goals = []SavingsGoal{}
	}
	if s.Transactions == nil {
		s.Transactions = []Transaction{}
	}
	return nil
}

// DecodeState parses a persisted snapshot.
func DecodeState(data []byte) (LedgerState, error) {
	var s LedgerState
	if err := json.Unmarshal(data, &s); err != nil {
		return LedgerState{}, fmt.Errorf("decode ledger snapshot: %w", err)
	}
	return s, nil
}

// EncodeState serializes a snapshot for persistence.
func EncodeState(s LedgerState) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode ledger snapshot: %w", err)
	}
	return data, nil
}
