// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture: the ledger aggregate,
// its configuration, savings goals and the static badge catalog.
package domain

import (
	"github.com/shopspring/decimal"
)

// ─── Defaults ───────────────────────────────────────────────────────────────

const (
	// DefaultAppName is the title used when none is configured.
	DefaultAppName = "彦仔宝库"

	// DefaultAdminPassword gates privileged operations until changed.
	DefaultAdminPassword = "8090"

	// MaxGoals is the maximum number of savings goals held at once.
	MaxGoals = 3
)

// ─── Interest Configuration ─────────────────────────────────────────────────

// InterestMode selects how the weekly interest rate is chosen.
type InterestMode string

const (
	InterestFixed  InterestMode = "FIXED"
	InterestTiered InterestMode = "TIERED"
)

// ParseInterestMode parses "FIXED" or "TIERED" (case-sensitive, as persisted).
func ParseInterestMode(s string) (InterestMode, error) {
	switch InterestMode(s) {
	case InterestFixed, InterestTiered:
		return InterestMode(s), nil
	default:
		return "", ErrConfigInvalid
	}
}

// TieredConfig is the bracketed weekly rate schedule keyed by total assets.
//
//	total <= LowThreshold                 → LowRate
//	LowThreshold < total <= HighThreshold → MidRate
//	total > HighThreshold                 → HighRate
type TieredConfig struct {
	LowThreshold  decimal.Decimal `json:"lowThreshold"`
	HighThreshold decimal.Decimal `json:"highThreshold"`
	LowRate       decimal.Decimal `json:"lowRate"`
	MidRate       decimal.Decimal `json:"midRate"`
	HighRate      decimal.Decimal `json:"highRate"`
}

// DefaultTieredConfig returns the 400/1500 at 20%/10%/5% schedule.
func DefaultTieredConfig() TieredConfig {
	return TieredConfig{
		LowThreshold:  decimal.NewFromInt(400),
		HighThreshold: decimal.NewFromInt(1500),
		LowRate:       decimal.RequireFromString("0.20"),
		MidRate:       decimal.RequireFromString("0.10"),
		HighRate:      decimal.RequireFromString("0.05"),
	}
}

// Validate checks threshold ordering and that nothing is negative.
func (c TieredConfig) Validate() error {
	for _, v := range []decimal.Decimal{c.LowThreshold, c.HighThreshold, c.LowRate, c.MidRate, c.HighRate} {
		if v.IsNegative() {
			return ErrConfigInvalid
		}
	}
	if !c.LowThreshold.LessThan(c.HighThreshold) {
		return ErrConfigInvalid
	}
	return nil
}

// Config holds the payout settings of the ledger. It is flattened into the
// persisted state object.
type Config struct {
	WeeklyAllowance decimal.Decimal `json:"weeklyAllowance"`
	InterestMode    InterestMode    `json:"interestRateMode"`
	FixedRate       decimal.Decimal `json:"fixedInterestRate"`
	Tiered          TieredConfig    `json:"tieredInterestConfig"`
}

// DefaultConfig returns an allowance of 10 with tiered interest.
func DefaultConfig() Config {
	return Config{
		WeeklyAllowance: decimal.NewFromInt(10),
		InterestMode:    InterestTiered,
		FixedRate:       decimal.RequireFromString("0.10"),
		Tiered:          DefaultTieredConfig(),
	}
}

// ─── Savings Goals ──────────────────────────────────────────────────────────

// SavingsGoal is a named sub-ledger the wallet can transfer into.
type SavingsGoal struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	IsCompleted   bool            `json:"isCompleted"`
}

// ProgressPct returns the completion percentage, capped at 100.
func (g SavingsGoal) ProgressPct() float64 {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	pct := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100))
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return 100
	}
	return pct.InexactFloat64()
}

// ─── Ledger State ───────────────────────────────────────────────────────────

// LedgerState is the root aggregate. Transitions treat it as a value: they
// receive a state and return the next one, never mutating shared slices.
//
// Invariant at rest: TotalAssets == WalletBalance + Σ goal.CurrentAmount.
type LedgerState struct {
	AppName       string `json:"appName"`
	AdminPassword string `json:"adminPassword,omitempty"`

	WalletBalance           decimal.Decimal `json:"walletBalance"`
	TotalAssets             decimal.Decimal `json:"totalAssets"`
	WeekCount               int             `json:"weekCount"`
	ConsecutiveWeeksNoSpend int             `json:"consecutiveWeeksNoSpend"`
	HasSpentThisWeek        bool            `json:"hasSpentThisWeek"`

	Goals         []SavingsGoal   `json:"savingsGoals"`
	Transactions  []Transaction   `json:"transactions"`  // newest first
	SpendingLimit decimal.Decimal `json:"spendingLimit"` // 0 = unlimited
	Badges        []BadgeID       `json:"badges"`

	LastSettlementDate string `json:"lastSettlementDate"`

	// Revision counts saves of the stored snapshot. Stores set it on Load;
	// it is not part of the persisted document.
	Revision int64 `json:"-"`

	Config
}

// NewLedgerState returns the empty initial state with default settings.
func NewLedgerState() LedgerState {
	return LedgerState{
		AppName:       DefaultAppName,
		AdminPassword: DefaultAdminPassword,
		WalletBalance: decimal.Zero,
		TotalAssets:   decimal.Zero,
		Goals:         []SavingsGoal{},
		Transactions:  []Transaction{},
		SpendingLimit: decimal.Zero,
		Badges:        []BadgeID{},
		Config:        DefaultConfig(),
	}
}

// GoalsTotal returns Σ goal.CurrentAmount.
func (s LedgerState) GoalsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, g := range s.Goals {
		sum = sum.Add(g.CurrentAmount)
	}
	return sum
}

// Balanced reports whether the total-assets invariant holds.
func (s LedgerState) Balanced() bool {
	return s.TotalAssets.Equal(s.WalletBalance.Add(s.GoalsTotal()))
}

// Goal returns the index of the goal with the given id, or -1.
func (s LedgerState) Goal(id string) int {
	for i, g := range s.Goals {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// HasBadge reports whether a badge has already been unlocked.
func (s LedgerState) HasBadge(id BadgeID) bool {
	for _, b := range s.Badges {
		if b == id {
			return true
		}
	}
	return false
}

// StreakClose is true one clean week before the streak bonus.
func (s LedgerState) StreakClose() bool {
	return s.ConsecutiveWeeksNoSpend == 2
}

// Clone returns a copy whose slices can be modified without touching s.
func (s LedgerState) Clone() LedgerState {
	c := s
	c.Goals = append([]SavingsGoal(nil), s.Goals...)
	c.Transactions = append([]Transaction(nil), s.Transactions...)
	c.Badges = append([]BadgeID(nil), s.Badges...)
	return c
}
