package domain

import "github.com/shopspring/decimal"

// ─── Badge Catalog ──────────────────────────────────────────────────────────
// The catalog is closed and known at build time. Each badge id maps to a pure
// predicate over the ledger; unlocking is recorded only as membership in
// LedgerState.Badges and is never revoked.

// BadgeID identifies an achievement.
type BadgeID string

const (
	BadgeFirstPot     BadgeID = "first_pot"
	BadgeSaverElite   BadgeID = "saver_elite"
	BadgeStreakMaster BadgeID = "streak_master"
	BadgeGoalGetter   BadgeID = "goal_getter"
	BadgeRichKid      BadgeID = "rich_kid"
)

// BadgeBonusRate is the share of total assets paid out per unlock scan.
var BadgeBonusRate = decimal.RequireFromString("0.10")

// Badge is the display metadata of a catalog entry.
type Badge struct {
	ID          BadgeID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// Badges is the catalog in evaluation order.
var Badges = []Badge{
	{ID: BadgeFirstPot, Name: "第一桶金", Description: "Total assets reach 100", Icon: "💰"},
	{ID: BadgeSaverElite, Name: "小小银行家", Description: "Total assets reach 1500", Icon: "🏦"},
	{ID: BadgeStreakMaster, Name: "自律大师", Description: "5 weeks in a row without spending", Icon: "🔥"},
	{ID: BadgeGoalGetter, Name: "梦想达成者", Description: "Complete at least one savings goal", Icon: "🎁"},
	{ID: BadgeRichKid, Name: "大富翁", Description: "Total assets reach 5000", Icon: "👑"},
}

// badgeConditions is the static dispatch table from id to predicate.
var badgeConditions = map[BadgeID]func(LedgerState) bool{
	BadgeFirstPot:     assetsAtLeast(100),
	BadgeSaverElite:   assetsAtLeast(1500),
	BadgeStreakMaster: func(s LedgerState) bool { return s.ConsecutiveWeeksNoSpend >= 5 },
	BadgeGoalGetter: func(s LedgerState) bool {
		for _, g := range s.Goals {
			if g.IsCompleted {
				return true
			}
		}
		return false
	},
	BadgeRichKid: assetsAtLeast(5000),
}

func assetsAtLeast(n int64) func(LedgerState) bool {
	threshold := decimal.NewFromInt(n)
	return func(s LedgerState) bool {
		return s.TotalAssets.GreaterThanOrEqual(threshold)
	}
}

// Satisfied reports whether the badge's condition holds for s.
// Unknown ids are never satisfied.
func (id BadgeID) Satisfied(s LedgerState) bool {
	cond, ok := badgeConditions[id]
	return ok && cond(s)
}

// LookupBadge returns the catalog entry for id.
func LookupBadge(id BadgeID) (Badge, bool) {
	for _, b := range Badges {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}
