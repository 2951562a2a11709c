// Package ledger is the settlement engine: every money movement of the wallet
// goes through one of its transitions.
//
// Transitions are pure functions of the form
//
//	func(state, args...) (nextState, ..., error)
//
// They never mutate the state they receive, and a failed transition returns
// the input unchanged. Service owns the live state and applies transitions
// one at a time.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// ─── Streak Bonus ───────────────────────────────────────────────────────────

const (
	// StreakBonusEvery is the number of clean weeks that earns a bonus.
	StreakBonusEvery = 3
)

// StreakBonus is paid every StreakBonusEvery consecutive clean weeks.
var StreakBonus = decimal.NewFromInt(10)

// ─── Settlement Calculator ──────────────────────────────────────────────────

// Breakdown is the payout of one weekly settlement.
type Breakdown struct {
	Allowance decimal.Decimal `json:"allowance"`
	Interest  decimal.Decimal `json:"interest"`
	Bonus     decimal.Decimal `json:"bonus"`
	Total     decimal.Decimal `json:"total"`
	Rate      decimal.Decimal `json:"rate"`
	PrevTotal decimal.Decimal `json:"prevTotal"`
	NewTotal  decimal.Decimal `json:"newTotal"`
	NewStreak int             `json:"newStreak"`
}

// ComputeSettlement returns what the next settlement would pay, without
// touching s. It backs both the preview and the real settlement.
func ComputeSettlement(s domain.LedgerState) Breakdown {
	prev := s.TotalAssets
	rate := Rate(s.Config, prev)
	interest := prev.Mul(rate)
	allowance := s.WeeklyAllowance

	newStreak := 0
	if !s.HasSpentThisWeek {
		newStreak = s.ConsecutiveWeeksNoSpend + 1
	}

	bonus := decimal.Zero
	if newStreak >= StreakBonusEvery && newStreak%StreakBonusEvery == 0 && !s.HasSpentThisWeek {
		bonus = StreakBonus
	}

	total := allowance.Add(interest).Add(bonus)
	return Breakdown{
		Allowance: allowance,
		Interest:  interest,
		Bonus:     bonus,
		Total:     total,
		Rate:      rate,
		PrevTotal: prev,
		NewTotal:  prev.Add(total),
		NewStreak: newStreak,
	}
}

// ApplySettlement credits one settlement and stamps today as settled.
//
// Entries are threaded: the allowance snapshot includes only the allowance,
// the interest snapshot includes both, the bonus snapshot includes all three.
func ApplySettlement(s domain.LedgerState, today string, at time.Time) (domain.LedgerState, Breakdown) {
	b := ComputeSettlement(s)
	next := s.Clone()

	running := b.PrevTotal.Add(b.Allowance)
	next.Transactions = prepend(next.Transactions, domain.NewTransaction(domain.KindIncome, b.Allowance,
		fmt.Sprintf("Auto settlement: week %d allowance", s.WeekCount+1), at, running))

	running = running.Add(b.Interest)
	next.Transactions = prepend(next.Transactions, domain.NewTransaction(domain.KindInterest, b.Interest,
		fmt.Sprintf("Auto settlement: weekly interest (rate %s%%)", b.Rate.Shift(2).StringFixed(0)), at, running))

	if b.Bonus.IsPositive() {
		running = running.Add(b.Bonus)
		next.Transactions = prepend(next.Transactions, domain.NewTransaction(domain.KindBonus, b.Bonus,
			fmt.Sprintf("Auto settlement: no-spend streak bonus (%d weeks)", StreakBonusEvery), at, running))
	}

	next.WalletBalance = next.WalletBalance.Add(b.Total)
	next.TotalAssets = b.NewTotal
	next.WeekCount++
	if b.Bonus.IsPositive() {
		next.ConsecutiveWeeksNoSpend = 0
	} else {
		next.ConsecutiveWeeksNoSpend = b.NewStreak
	}
	next.HasSpentThisWeek = false
	next.LastSettlementDate = today
	return next, b
}

// prepend keeps the log newest-first. It always allocates so the caller's
// backing array is never shared with the previous state.
func prepend(txs []domain.Transaction, tx domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs)+1)
	out = append(out, tx)
	return append(out, txs...)
}
