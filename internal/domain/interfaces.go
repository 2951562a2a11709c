package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// StateStore persists the ledger snapshot. The engine never cares whether
// it lands in a file, a key-value store or a database.
type StateStore interface {
	// Load returns the stored snapshot, or NewLedgerState() if none exists.
	Load(ctx context.Context) (LedgerState, error)

	// Save replaces the stored snapshot. It fails with ErrStaleState when
	// s.Revision is not the revision currently stored.
	Save(ctx context.Context, s LedgerState) error
}

// Calendar supplies the current day to the settlement scheduler.
type Calendar interface {
	// Today returns an opaque token identifying the current calendar day.
	Today() string

	// IsSettlementDay reports whether today is the weekly settlement day.
	IsSettlementDay() bool
}

// SettlementReport is the audit row written for every applied settlement.
type SettlementReport struct {
	Day       string          `json:"day"`
	Week      int             `json:"week"`
	Allowance decimal.Decimal `json:"allowance"`
	Interest  decimal.Decimal `json:"interest"`
	Bonus     decimal.Decimal `json:"bonus"`
	Rate      decimal.Decimal `json:"rate"`
	PrevTotal decimal.Decimal `json:"prevTotal"`
	NewTotal  decimal.Decimal `json:"newTotal"`
	SettledAt time.Time       `json:"settledAt"`
}

// SettlementLog is implemented by stores that keep a settlement history.
type SettlementLog interface {
	RecordSettlement(ctx context.Context, r SettlementReport) error
	ListSettlements(ctx context.Context, limit int) ([]SettlementReport, error)
	SettlementCount(ctx context.Context) (int, error)
}
