package ledger

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// Metrics receives operational measurements from the service.
type Metrics interface {
	// StartOp begins timing op; the returned func is called with its outcome.
	StartOp(ctx context.Context, op string, attrs map[string]string) func(err error)
	ObserveState(s domain.LedgerState)
	ObserveSettlement(r domain.SettlementReport)
	ObserveBadgeUnlocks(n int)
}

type nopMetrics struct{}

func (nopMetrics) StartOp(context.Context, string, map[string]string) func(error) {
	return func(error) {}
}
func (nopMetrics) ObserveState(domain.LedgerState)              {}
func (nopMetrics) ObserveSettlement(domain.SettlementReport)    {}
func (nopMetrics) ObserveBadgeUnlocks(int)                      {}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used to stamp transactions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier sets where events are published.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithLogger sets the structured logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service owns the live ledger. It serializes transitions, runs the badge
// cascade after each one and persists the result before making it visible.
type Service struct {
	mu    sync.Mutex
	state domain.LedgerState
	store domain.StateStore
	sched *Scheduler

	log     logrus.FieldLogger
	notify  Notifier
	metrics Metrics
	now     func() time.Time
}

// NewService loads the stored ledger and returns a ready service.
func NewService(ctx context.Context, store domain.StateStore, cal domain.Calendar, opts ...Option) (*Service, error) {
	s := &Service{
		store:   store,
		sched:   NewScheduler(cal),
		log:     logrus.StandardLogger(),
		notify:  nopNotifier{},
		metrics: nopMetrics{},
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	s.state = state
	s.metrics.ObserveState(state)
	s.log.WithFields(logrus.Fields{
		"total_assets": state.TotalAssets.String(),
		"wallet":       state.WalletBalance.String(),
		"week":         state.WeekCount,
	}).Info("ledger loaded")
	return s, nil
}

// ─── Reads ──────────────────────────────────────────────────────────────────
// Every read and transition reloads the ledger first. The CLI and a running
// daemon share one store, so the copy held here may be behind.

// refresh replaces the held ledger with the stored one. Callers hold s.mu.
func (s *Service) refresh(ctx context.Context) error {
	state, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	s.state = state
	return nil
}

// snapshot returns a fresh copy of the stored ledger.
func (s *Service) snapshot(ctx context.Context) (domain.LedgerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refresh(ctx); err != nil {
		return domain.LedgerState{}, err
	}
	return s.state.Clone(), nil
}

// State runs any due settlement and returns a copy of the ledger.
func (s *Service) State(ctx context.Context) (domain.LedgerState, error) {
	if _, err := s.CheckSettlement(ctx); err != nil {
		return domain.LedgerState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

// Preview returns what the next settlement would pay right now.
func (s *Service) Preview(ctx context.Context) (Breakdown, error) {
	st, err := s.snapshot(ctx)
	if err != nil {
		return Breakdown{}, err
	}
	return ComputeSettlement(st), nil
}

// CurrentRate returns the interest rate for the current total assets.
func (s *Service) CurrentRate(ctx context.Context) (decimal.Decimal, error) {
	st, err := s.snapshot(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return Rate(st.Config, st.TotalAssets), nil
}

// Settings returns the editable settings.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	st, err := s.snapshot(ctx)
	if err != nil {
		return Settings{}, err
	}
	return CurrentSettings(st), nil
}

// History returns the filtered and sorted transaction log.
func (s *Service) History(ctx context.Context, f Filter, o SortOrder) ([]domain.Transaction, error) {
	st, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Query(st.Transactions, f, o), nil
}

// Trend returns the latest limit balance snapshots, oldest first.
func (s *Service) Trend(ctx context.Context, limit int) ([]TrendPoint, error) {
	st, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Trend(st.Transactions, limit), nil
}

// Settlements returns up to limit settlement reports, newest first, and how
// many are recorded in total. Stores without a settlement log report none.
func (s *Service) Settlements(ctx context.Context, limit int) ([]domain.SettlementReport, int, error) {
	sl, ok := s.store.(domain.SettlementLog)
	if !ok {
		return []domain.SettlementReport{}, 0, nil
	}
	reports, err := sl.ListSettlements(ctx, limit)
	if err != nil {
		return nil, 0, err
	}
	n, err := sl.SettlementCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return reports, n, nil
}

// CheckAdmin verifies the admin password against the stored ledger.
func (s *Service) CheckAdmin(ctx context.Context, password string) error {
	st, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(st.AdminPassword)) != 1 {
		return domain.ErrUnauthorized
	}
	return nil
}

// ─── Settlement ─────────────────────────────────────────────────────────────

// CheckSettlement applies the weekly settlement if it is due. It returns nil
// when nothing was due; calling it repeatedly on one day settles once.
func (s *Service) CheckSettlement(ctx context.Context) (b *Breakdown, err error) {
	done := s.begin(ctx, "settle", nil)
	defer func() { done(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.refresh(ctx); err != nil {
		return nil, err
	}

	at := s.now()
	next, b := s.sched.Run(s.state, at)
	if b == nil {
		return nil, nil
	}

	ev := Event{
		Type:        EventSettlement,
		Description: fmt.Sprintf("Week %d settled", next.WeekCount),
		Amount:      b.Total,
		TotalAssets: b.NewTotal,
		At:          at,
	}
	if err := s.commit(ctx, "settle", next, at, ev); err != nil {
		return nil, err
	}

	report := domain.SettlementReport{
		Day:       next.LastSettlementDate,
		Week:      next.WeekCount,
		Allowance: b.Allowance,
		Interest:  b.Interest,
		Bonus:     b.Bonus,
		Rate:      b.Rate,
		PrevTotal: b.PrevTotal,
		NewTotal:  b.NewTotal,
		SettledAt: at,
	}
	s.metrics.ObserveSettlement(report)
	if sl, ok := s.store.(domain.SettlementLog); ok {
		if err := sl.RecordSettlement(ctx, report); err != nil {
			s.log.WithError(err).Warn("settlement report not recorded")
		}
	}
	return b, nil
}

// ─── Manual Transitions ─────────────────────────────────────────────────────

// RecordIncome adds money to the wallet.
func (s *Service) RecordIncome(ctx context.Context, amount decimal.Decimal, reason string) (err error) {
	done := s.begin(ctx, "income", map[string]string{"amount": amount.String()})
	defer func() { done(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.refresh(ctx); err != nil {
		return err
	}

	at := s.now()
	next, err := RecordIncome(s.state, amount, reason, at)
	if err != nil {
		return err
	}
	return s.commit(ctx, "income", next, at, txEvent(next))
}

// RecordExpense spends from the wallet. An amount above the spending limit
// fails with ErrConfirmationRequired unless confirmed is set.
func (s *Service) RecordExpense(ctx context.Context, amount decimal.Decimal, reason string, confirmed bool) (err error) {
	done := s.begin(ctx, "expense", map[string]string{"amount": amount.String()})
	defer func() { done(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.refresh(ctx); err != nil {
		return err
	}

	if !confirmed && ExceedsSpendingLimit(s.state, amount) {
		return fmt.Errorf("expense of %s over limit %s: %w", amount, s.state.SpendingLimit, domain.ErrConfirmationRequired)
	}
	at := s.now()
	next, err := RecordExpense(s.state, amount, reason, at)
	if err != nil {
		return err
	}
	return s.commit(ctx, "expense", next, at, txEvent(next))
}

// CreateGoal adds a savings goal.
func (s *Service) CreateGoal(ctx context.Context, name string, target decimal.Decimal, imageURL string) (g domain.SavingsGoal, err error) {
	done := s.begin(ctx, "goal_create", map[string]string{"target": target.String()})
	defer func() { done(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.refresh(ctx); err != nil {
		return domain.SavingsGoal{}, err
	}

	next, g, err := CreateGoal(s.state, name, target, imageURL)
	if err != nil {
		return domain.SavingsGoal{}, err
	}
	if err := s.commit(ctx, "goal_create", next, s.now()); err != nil {
		return domain.SavingsGoal{}, err
	}
	return g, nil
}

// DepositToGoal moves wallet money into a goal. It reports whether this
// deposit completed the goal.
func (s *Service) DepositToGoal(ctx context.Context, goalID string, amount decimal.Decimal) (completed bool, err error) {
	done := s.begin(ctx, "goal_deposit", map[string]string{"goal_id": goalID, "amount": amount.String()})
	defer func() { done(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.refresh(ctx); err != nil {
		return false, err
	}

	at := s.now()
	next, completed, err := DepositToGoal(s.state, goalID, amount, at)
	if err != nil {
		return false, err
	}
	events := []Event{txEvent(next)}
	if completed {
		g := next.Goals[next.Goal(goalID)]
		events = append(events, Event{
			Type:        EventGoalCompleted,
			Description: "Goal reached: " + g.Name,
			Amount:      g.CurrentAmount,
			TotalAssets: next.TotalAssets,
			GoalID:      g.ID,
			At:          at,
		})
	}
	if err := s.commit(ctx, "goal_deposit", next, at, events...); err != nil {
		return false, err
	}
	return completed, nil
}

// DeleteGoal removes a goal and returns the refunded amount.
func (s *Service) DeleteGoal(ctx context.Context, goalID string) (refund decimal.Decimal, err error) {
	done := s.begin(ctx, "goal_delete", map[string]string{"goal_id": goalID})
	defer func() { done(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.refresh(ctx); err != nil {
		return decimal.Zero, err
	}

	at := s.now()
	next, refund, err := DeleteGoal(s.state, goalID, at)
	if err != nil {
		return decimal.Zero, err
	}
	var events []Event
	if refund.IsPositive() {
		events = append(events, txEvent(next))
	}
	if err := s.commit(ctx, "goal_delete", next, at, events...); err != nil {
		return decimal.Zero, err
	}
	return refund, nil
}

// ─── Admin Transitions ──────────────────────────────────────────────────────

// SetSpendingLimit updates the advisory spending limit.
func (s *Service) SetSpendingLimit(ctx context.Context, limit decimal.Decimal) (err error) {
	done := s.begin(ctx, "set_limit", map[string]string{"limit": limit.String()})
	defer func() { done(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.refresh(ctx); err != nil {
		return err
	}

	next, err := SetSpendingLimit(s.state, limit)
	if err != nil {
		return err
	}
	return s.commit(ctx, "set_limit", next, s.now())
}

// SetTotalAssets corrects total assets to amount.
func (s *Service) SetTotalAssets(ctx context.Context, amount decimal.Decimal) (err error) {
	done := s.begin(ctx, "set_total", map[string]string{"amount": amount.String()})
	defer func() { done(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.refresh(ctx); err != nil {
		return err
	}

	at := s.now()
	next, err := SetTotalAssets(s.state, amount, at)
	if err != nil {
		return err
	}
	var events []Event
	if len(next.Transactions) > len(s.state.Transactions) {
		events = append(events, txEvent(next))
	}
	return s.commit(ctx, "set_total", next, at, events...)
}

// UpdateSettings replaces the editable settings.
func (s *Service) UpdateSettings(ctx context.Context, set Settings) (err error) {
	done := s.begin(ctx, "settings", map[string]string{"mode": string(set.InterestMode)})
	defer func() { done(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.refresh(ctx); err != nil {
		return err
	}

	next, err := UpdateSettings(s.state, set)
	if err != nil {
		return err
	}
	return s.commit(ctx, "settings", next, s.now())
}

// ─── Commit ─────────────────────────────────────────────────────────────────

// commit runs the badge cascade on next, persists it and only then makes it
// the live state. A save that lost a race with another writer fails with
// domain.ErrStaleState and leaves nothing applied. Callers hold s.mu.
func (s *Service) commit(ctx context.Context, op string, next domain.LedgerState, at time.Time, events ...Event) error {
	next, unlocks := EvaluateBadgeCascade(next, at)
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save ledger after %s: %w", op, err)
	}
	next.Revision++
	s.state = next

	for _, u := range unlocks {
		events = append(events, Event{
			Type:        EventBadgeUnlocked,
			Description: fmt.Sprintf("Unlocked %d achievement(s)", len(u.Badges)),
			Amount:      u.Bonus,
			TotalAssets: next.TotalAssets,
			Badges:      u.Badges,
			At:          at,
		})
		s.metrics.ObserveBadgeUnlocks(len(u.Badges))
	}
	s.metrics.ObserveState(next)

	entry := s.log.WithFields(logrus.Fields{
		"op":           op,
		"wallet":       next.WalletBalance.String(),
		"total_assets": next.TotalAssets.String(),
	})
	if len(unlocks) > 0 {
		entry = entry.WithField("badge_scans", len(unlocks))
	}
	entry.Info("ledger updated")

	for _, ev := range events {
		s.notify.Publish(ev)
	}
	return nil
}

// begin starts the metrics span for op. The returned func logs rejected
// requests at Warn and internal failures at Error.
func (s *Service) begin(ctx context.Context, op string, attrs map[string]string) func(error) {
	done := s.metrics.StartOp(ctx, op, attrs)
	return func(err error) {
		done(err)
		switch {
		case err == nil:
		case IsUserError(err):
			s.log.WithField("op", op).WithError(err).Warn("ledger operation rejected")
		default:
			s.log.WithField("op", op).WithError(err).Error("ledger operation failed")
		}
	}
}

// txEvent describes the newest transaction of s.
func txEvent(s domain.LedgerState) Event {
	if len(s.Transactions) == 0 {
		return Event{Type: EventTransaction, TotalAssets: s.TotalAssets}
	}
	tx := s.Transactions[0]
	return Event{
		Type:        EventTransaction,
		Description: tx.Description,
		Amount:      tx.Amount,
		TotalAssets: tx.BalanceSnapshot,
		At:          tx.Timestamp,
	}
}

// IsUserError reports whether err is a rejected request rather than a
// storage or internal failure.
func IsUserError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidAmount, domain.ErrConfigInvalid, domain.ErrInvalidGoal,
		domain.ErrInsufficientFunds, domain.ErrCapacityExceeded, domain.ErrGoalNotFound,
		domain.ErrConfirmationRequired, domain.ErrUnauthorized, domain.ErrStaleState,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
