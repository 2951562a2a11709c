package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// EventType classifies a ledger event.
type EventType string

const (
	EventTransaction   EventType = "transaction"
	EventSettlement    EventType = "settlement"
	EventBadgeUnlocked EventType = "badge_unlocked"
	EventGoalCompleted EventType = "goal_completed"
)

// Event is a notification emitted after a transition has been persisted.
type Event struct {
	Type        EventType        `json:"type"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	TotalAssets decimal.Decimal  `json:"totalAssets"`
	Badges      []domain.BadgeID `json:"badges,omitempty"`
	GoalID      string           `json:"goalId,omitempty"`
	At          time.Time        `json:"at"`
}

// Notifier receives events. Publish must not block the caller.
type Notifier interface {
	Publish(ev Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(Event) {}
