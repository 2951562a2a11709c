package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// ─── Manual Transitions ─────────────────────────────────────────────────────

// RecordIncome credits the wallet. A non-positive amount is ignored: the
// state comes back untouched with ErrInvalidAmount and no entry is written.
func RecordIncome(s domain.LedgerState, amount decimal.Decimal, reason string, at time.Time) (domain.LedgerState, error) {
	if !amount.IsPositive() {
		return s, fmt.Errorf("income of %s: %w", amount, domain.ErrInvalidAmount)
	}
	next := s.Clone()
	next.WalletBalance = next.WalletBalance.Add(amount)
	next.TotalAssets = next.TotalAssets.Add(amount)
	next.Transactions = prepend(next.Transactions, domain.NewTransaction(domain.KindIncome, amount,
		"Extra income: "+reason, at, next.TotalAssets))
	return next, nil
}

// ExceedsSpendingLimit reports whether amount is over the advisory limit.
// The engine never enforces it; callers must ask for confirmation.
func ExceedsSpendingLimit(s domain.LedgerState, amount decimal.Decimal) bool {
	return s.SpendingLimit.IsPositive() && amount.GreaterThan(s.SpendingLimit)
}

// RecordExpense debits the wallet and breaks the no-spend streak.
func RecordExpense(s domain.LedgerState, amount decimal.Decimal, reason string, at time.Time) (domain.LedgerState, error) {
	if !amount.IsPositive() {
		return s, fmt.Errorf("expense of %s: %w", amount, domain.ErrInvalidAmount)
	}
	if amount.GreaterThan(s.WalletBalance) {
		return s, fmt.Errorf("expense of %s with wallet at %s: %w", amount, s.WalletBalance, domain.ErrInsufficientFunds)
	}
	next := s.Clone()
	next.WalletBalance = next.WalletBalance.Sub(amount)
	next.TotalAssets = next.TotalAssets.Sub(amount)
	next.HasSpentThisWeek = true
	next.ConsecutiveWeeksNoSpend = 0
	next.Transactions = prepend(next.Transactions, domain.NewTransaction(domain.KindExpense, amount.Neg(),
		"Spend: "+reason, at, next.TotalAssets))
	return next, nil
}

// SetSpendingLimit updates the advisory limit; zero means unlimited.
func SetSpendingLimit(s domain.LedgerState, limit decimal.Decimal) (domain.LedgerState, error) {
	if limit.IsNegative() {
		return s, fmt.Errorf("spending limit %s: %w", limit, domain.ErrInvalidAmount)
	}
	next := s.Clone()
	next.SpendingLimit = limit
	return next, nil
}

// SetTotalAssets is the administrative correction of the balance. Goal money
// is committed, so the total cannot go below Σ goals; the wallet absorbs the
// difference and a compensating entry records the delta.
func SetTotalAssets(s domain.LedgerState, amount decimal.Decimal, at time.Time) (domain.LedgerState, error) {
	committed := s.GoalsTotal()
	if amount.LessThan(committed) {
		return s, fmt.Errorf("total assets %s below goal savings %s: %w", amount, committed, domain.ErrInvalidAmount)
	}
	diff := amount.Sub(s.TotalAssets)

	next := s.Clone()
	next.TotalAssets = amount
	next.WalletBalance = amount.Sub(committed)
	if !diff.IsZero() {
		kind := domain.KindIncome
		if diff.IsNegative() {
			kind = domain.KindExpense
		}
		next.Transactions = prepend(next.Transactions, domain.NewTransaction(kind, diff,
			"Admin balance adjustment", at, amount))
	}
	return next, nil
}

// ─── Settings ───────────────────────────────────────────────────────────────

// Settings is a full replacement of the configurable fields.
type Settings struct {
	AppName         string              `json:"appName"`
	AdminPassword   string              `json:"adminPassword"`
	WeeklyAllowance decimal.Decimal     `json:"weeklyAllowance"`
	InterestMode    domain.InterestMode `json:"interestRateMode"`
	FixedRate       decimal.Decimal     `json:"fixedInterestRate"`
	Tiered          domain.TieredConfig `json:"tieredInterestConfig"`
}

// CurrentSettings extracts the editable settings from s.
func CurrentSettings(s domain.LedgerState) Settings {
	return Settings{
		AppName:         s.AppName,
		AdminPassword:   s.AdminPassword,
		WeeklyAllowance: s.WeeklyAllowance,
		InterestMode:    s.InterestMode,
		FixedRate:       s.FixedRate,
		Tiered:          s.Tiered,
	}
}

// UpdateSettings validates and applies settings. Only the rule set of the
// selected mode is taken from set; the other mode's stored values are kept.
func UpdateSettings(s domain.LedgerState, set Settings) (domain.LedgerState, error) {
	password := strings.TrimSpace(set.AdminPassword)
	if password == "" {
		return s, fmt.Errorf("empty admin password: %w", domain.ErrConfigInvalid)
	}
	if set.WeeklyAllowance.IsNegative() {
		return s, fmt.Errorf("weekly allowance %s: %w", set.WeeklyAllowance, domain.ErrConfigInvalid)
	}
	if _, err := domain.ParseInterestMode(string(set.InterestMode)); err != nil {
		return s, fmt.Errorf("interest mode %q: %w", set.InterestMode, err)
	}

	next := s.Clone()
	switch set.InterestMode {
	case domain.InterestFixed:
		if set.FixedRate.IsNegative() {
			return s, fmt.Errorf("fixed rate %s: %w", set.FixedRate, domain.ErrConfigInvalid)
		}
		next.FixedRate = set.FixedRate
	case domain.InterestTiered:
		if err := set.Tiered.Validate(); err != nil {
			return s, fmt.Errorf("tiered interest: %w", err)
		}
		next.Tiered = set.Tiered
	}

	next.AppName = strings.TrimSpace(set.AppName)
	if next.AppName == "" {
		next.AppName = domain.DefaultAppName
	}
	next.AdminPassword = password
	next.WeeklyAllowance = set.WeeklyAllowance
	next.InterestMode = set.InterestMode
	return next, nil
}
