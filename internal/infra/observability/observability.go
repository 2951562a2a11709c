// Package observability provides operation spans and Prometheus metrics for
// the ledger service.
package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Metrics
// ═══════════════════════════════════════════════════════════════════════════

// ─── Operation Metrics ──────────────────────────────────────────────────────

// OpsTotal counts service operations by outcome.
var OpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "smartsaver",
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Total ledger operations by name and result.",
}, []string{"op", "result"})

// OpDuration tracks operation latency, persistence included.
var OpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "smartsaver",
	Subsystem: "ledger",
	Name:      "operation_duration_ms",
	Help:      "Ledger operation latency in milliseconds.",
	Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250},
}, []string{"op"})

// ─── Balance Metrics ────────────────────────────────────────────────────────

// TotalAssets tracks wallet plus goal savings.
var TotalAssets = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "smartsaver",
	Subsystem: "ledger",
	Name:      "total_assets",
	Help:      "Current total assets (wallet plus goals).",
})

// WalletBalance tracks the spendable balance.
var WalletBalance = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "smartsaver",
	Subsystem: "ledger",
	Name:      "wallet_balance",
	Help:      "Current spendable wallet balance.",
})

// NoSpendStreak tracks consecutive clean weeks.
var NoSpendStreak = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "smartsaver",
	Subsystem: "ledger",
	Name:      "no_spend_streak_weeks",
	Help:      "Consecutive settled weeks without spending.",
})

// GoalsActive tracks the number of savings goals.
var GoalsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "smartsaver",
	Subsystem: "goals",
	Name:      "active",
	Help:      "Number of savings goals currently held.",
})

// ─── Settlement Metrics ─────────────────────────────────────────────────────

// SettlementsTotal counts applied weekly settlements.
var SettlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "smartsaver",
	Subsystem: "settlement",
	Name:      "applied_total",
	Help:      "Total weekly settlements applied.",
})

// SettlementPayout tracks payout components of the last settlement.
var SettlementPayout = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "smartsaver",
	Subsystem: "settlement",
	Name:      "last_payout",
	Help:      "Last settlement payout by component.",
}, []string{"component"})

// BadgesUnlocked counts badge unlocks.
var BadgesUnlocked = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "smartsaver",
	Subsystem: "badges",
	Name:      "unlocked_total",
	Help:      "Total badges unlocked.",
})

// ─── Recorder ───────────────────────────────────────────────────────────────

// Recorder feeds the tracer and the package metrics from service events.
type Recorder struct {
	tracer *Tracer
}

// NewRecorder returns a recorder writing spans to tracer (may be nil).
func NewRecorder(tracer *Tracer) *Recorder {
	return &Recorder{tracer: tracer}
}

// StartOp counts and times op, and records a span with attrs when the
// recorder has a tracer.
func (r *Recorder) StartOp(ctx context.Context, op string, attrs map[string]string) func(err error) {
	start := time.Now()
	var end func(error)
	if r.tracer != nil {
		end = r.tracer.Begin(ctx, op, attrs)
	}
	return func(err error) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		OpsTotal.WithLabelValues(op, result).Inc()
		OpDuration.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000)
		if end != nil {
			end(err)
		}
	}
}

// ObserveState updates the balance gauges.
func (r *Recorder) ObserveState(s domain.LedgerState) {
	TotalAssets.Set(s.TotalAssets.InexactFloat64())
	WalletBalance.Set(s.WalletBalance.InexactFloat64())
	NoSpendStreak.Set(float64(s.ConsecutiveWeeksNoSpend))
	GoalsActive.Set(float64(len(s.Goals)))
}

// ObserveSettlement records an applied settlement.
func (r *Recorder) ObserveSettlement(rep domain.SettlementReport) {
	SettlementsTotal.Inc()
	SettlementPayout.WithLabelValues("allowance").Set(rep.Allowance.InexactFloat64())
	SettlementPayout.WithLabelValues("interest").Set(rep.Interest.InexactFloat64())
	SettlementPayout.WithLabelValues("bonus").Set(rep.Bonus.InexactFloat64())
}

// ObserveBadgeUnlocks counts n newly unlocked badges.
func (r *Recorder) ObserveBadgeUnlocks(n int) {
	BadgesUnlocked.Add(float64(n))
}
