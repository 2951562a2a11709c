package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// ─── Goal Manager ───────────────────────────────────────────────────────────
// Goals are a sub-ledger of total assets: moving money in or out of a goal
// changes the wallet but never the total.

// CreateGoal adds an empty savings goal.
func CreateGoal(s domain.LedgerState, name string, target decimal.Decimal, imageURL string) (domain.LedgerState, domain.SavingsGoal, error) {
	if len(s.Goals) >= domain.MaxGoals {
		return s, domain.SavingsGoal{}, fmt.Errorf("%d goals already: %w", len(s.Goals), domain.ErrCapacityExceeded)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return s, domain.SavingsGoal{}, fmt.Errorf("goal name is empty: %w", domain.ErrInvalidGoal)
	}
	if !target.IsPositive() {
		return s, domain.SavingsGoal{}, fmt.Errorf("goal target %s: %w", target, domain.ErrInvalidAmount)
	}

	goal := domain.SavingsGoal{
		ID:            uuid.NewString(),
		Name:          name,
		TargetAmount:  target,
		CurrentAmount: decimal.Zero,
		ImageURL:      imageURL,
	}
	next := s.Clone()
	next.Goals = append(next.Goals, goal)
	return next, goal, nil
}

// DepositToGoal moves amount from the wallet into a goal. completed is true
// only on the deposit that first reaches the target; the flag then latches.
func DepositToGoal(s domain.LedgerState, goalID string, amount decimal.Decimal, at time.Time) (next domain.LedgerState, completed bool, err error) {
	if !amount.IsPositive() {
		return s, false, fmt.Errorf("deposit of %s: %w", amount, domain.ErrInvalidAmount)
	}
	i := s.Goal(goalID)
	if i < 0 {
		return s, false, fmt.Errorf("goal %q: %w", goalID, domain.ErrGoalNotFound)
	}
	if amount.GreaterThan(s.WalletBalance) {
		return s, false, fmt.Errorf("deposit of %s with wallet at %s: %w", amount, s.WalletBalance, domain.ErrInsufficientFunds)
	}

	next = s.Clone()
	g := &next.Goals[i]
	g.CurrentAmount = g.CurrentAmount.Add(amount)
	if !g.IsCompleted && g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount) {
		g.IsCompleted = true
		completed = true
	}
	next.WalletBalance = next.WalletBalance.Sub(amount)
	next.Transactions = prepend(next.Transactions, domain.NewTransaction(domain.KindTransferOut, amount.Neg(),
		"Deposit to goal: "+g.Name, at, next.TotalAssets))
	return next, completed, nil
}

// DeleteGoal removes a goal and refunds its savings to the wallet.
func DeleteGoal(s domain.LedgerState, goalID string, at time.Time) (domain.LedgerState, decimal.Decimal, error) {
	i := s.Goal(goalID)
	if i < 0 {
		return s, decimal.Zero, fmt.Errorf("goal %q: %w", goalID, domain.ErrGoalNotFound)
	}
	goal := s.Goals[i]
	refund := goal.CurrentAmount

	next := s.Clone()
	next.Goals = append(next.Goals[:i:i], next.Goals[i+1:]...)
	next.WalletBalance = next.WalletBalance.Add(refund)
	if refund.IsPositive() {
		next.Transactions = prepend(next.Transactions, domain.NewTransaction(domain.KindTransferIn, refund,
			"Goal deleted, refund: "+goal.Name, at, next.TotalAssets))
	}
	return next, refund, nil
}
