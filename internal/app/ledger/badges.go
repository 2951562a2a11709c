package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// ─── Badge Evaluator ────────────────────────────────────────────────────────

// Unlock is the outcome of one badge scan that unlocked something.
type Unlock struct {
	Badges []domain.BadgeID `json:"badges"`
	Bonus  decimal.Decimal  `json:"bonus"`
}

// NewlySatisfied returns catalog badges not yet unlocked whose condition
// holds for s, in catalog order.
func NewlySatisfied(s domain.LedgerState) []domain.BadgeID {
	var ids []domain.BadgeID
	for _, b := range domain.Badges {
		if !s.HasBadge(b.ID) && b.ID.Satisfied(s) {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// EvaluateBadges runs one scan. All badges unlocked by the scan share a
// single bonus of BadgeBonusRate × total assets at scan time.
func EvaluateBadges(s domain.LedgerState, at time.Time) (domain.LedgerState, *Unlock) {
	ids := NewlySatisfied(s)
	if len(ids) == 0 {
		return s, nil
	}

	bonus := s.TotalAssets.Mul(domain.BadgeBonusRate)
	next := s.Clone()
	next.Badges = append(next.Badges, ids...)
	next.WalletBalance = next.WalletBalance.Add(bonus)
	next.TotalAssets = next.TotalAssets.Add(bonus)
	next.Transactions = prepend(next.Transactions, domain.NewTransaction(domain.KindBonus, bonus,
		fmt.Sprintf("Badge reward: unlocked %d achievement(s) (10%% bonus)", len(ids)), at, next.TotalAssets))
	return next, &Unlock{Badges: ids, Bonus: bonus}
}

// EvaluateBadgeCascade rescans after each payout, since a bonus can itself
// push total assets over another badge's threshold. It ends after at most
// one scan per catalog badge.
func EvaluateBadgeCascade(s domain.LedgerState, at time.Time) (domain.LedgerState, []Unlock) {
	var unlocks []Unlock
	for range domain.Badges {
		next, u := EvaluateBadges(s, at)
		if u == nil {
			break
		}
		s = next
		unlocks = append(unlocks, *u)
	}
	return s, unlocks
}
