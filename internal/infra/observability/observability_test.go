package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// ─── Tracer ─────────────────────────────────────────────────────────────────

func TestTracer_RecordsLedgerOp(t *testing.T) {
	tr := NewTracer(10)

	tr.Begin(context.Background(), "goal_deposit", map[string]string{"goal_id": "g1", "amount": "5"})(nil)

	spans := tr.Spans(0)
	if len(spans) != 1 {
		t.Fatalf("Spans(0) returned %d, want 1", len(spans))
	}
	sp := spans[0]
	if sp.Op != "goal_deposit" || sp.Failed() {
		t.Errorf("span = %+v, want successful goal_deposit", sp)
	}
	if sp.Attrs["goal_id"] != "g1" || sp.Attrs["amount"] != "5" {
		t.Errorf("attrs = %v, want goal_id=g1 amount=5", sp.Attrs)
	}
	if sp.TraceID != sp.ID {
		t.Errorf("untraced op: TraceID = %q, want its own ID %q", sp.TraceID, sp.ID)
	}
}

func TestTracer_RecordsRejection(t *testing.T) {
	tr := NewTracer(10)

	tr.Begin(context.Background(), "expense", nil)(domain.ErrInsufficientFunds)

	sp := tr.Spans(1)[0]
	if !sp.Failed() || sp.Error != domain.ErrInsufficientFunds.Error() {
		t.Errorf("Error = %q, want %q", sp.Error, domain.ErrInsufficientFunds.Error())
	}
}

func TestTracer_SharesTraceIDWithinRequest(t *testing.T) {
	tr := NewTracer(10)
	ctx := WithTraceID(context.Background(), "req-7")

	tr.Begin(ctx, "settle", nil)(nil)
	tr.Begin(ctx, "income", map[string]string{"amount": "3"})(nil)
	tr.Begin(context.Background(), "income", nil)(nil)

	spans := tr.Spans(0)
	if spans[1].TraceID != "req-7" || spans[2].TraceID != "req-7" {
		t.Errorf("request spans trace IDs = %q, %q, want req-7", spans[2].TraceID, spans[1].TraceID)
	}
	if spans[0].TraceID == "req-7" {
		t.Error("op outside the request joined its trace")
	}
	if spans[1].ID == spans[2].ID {
		t.Errorf("span IDs not unique: %q", spans[1].ID)
	}
}

func TestTracer_KeepsNewestSpans(t *testing.T) {
	tr := NewTracer(3)
	for _, op := range []string{"income", "expense", "goal_create", "goal_deposit", "settle"} {
		tr.Begin(context.Background(), op, nil)(nil)
	}

	spans := tr.Spans(0)
	if len(spans) != 3 {
		t.Fatalf("Spans(0) returned %d, want 3", len(spans))
	}
	want := []string{"settle", "goal_deposit", "goal_create"}
	for i, op := range want {
		if spans[i].Op != op {
			t.Errorf("spans[%d].Op = %q, want %q", i, spans[i].Op, op)
		}
	}
	if got := tr.Spans(2); len(got) != 2 || got[0].Op != "settle" {
		t.Errorf("Spans(2) = %+v, want the two newest", got)
	}
}

func TestTracer_Empty(t *testing.T) {
	if got := NewTracer(0).Spans(5); len(got) != 0 {
		t.Errorf("Spans on empty tracer = %d, want 0", len(got))
	}
}

// ─── Recorder ───────────────────────────────────────────────────────────────

func TestRecorder_StartOp_RecordsSpanAndCounter(t *testing.T) {
	tr := NewTracer(10)
	r := NewRecorder(tr)
	ctx := WithTraceID(context.Background(), "req-1")

	before := testutil.ToFloat64(OpsTotal.WithLabelValues("set_limit", "error"))
	done := r.StartOp(ctx, "set_limit", map[string]string{"limit": "-1"})
	done(domain.ErrInvalidAmount)

	if got := testutil.ToFloat64(OpsTotal.WithLabelValues("set_limit", "error")); got != before+1 {
		t.Errorf("operations_total{set_limit,error} = %v, want %v", got, before+1)
	}
	spans := tr.Spans(1)
	if len(spans) != 1 || spans[0].Op != "set_limit" || !spans[0].Failed() {
		t.Fatalf("spans = %+v, want one failed set_limit span", spans)
	}
	if spans[0].TraceID != "req-1" || spans[0].Attrs["limit"] != "-1" {
		t.Errorf("span = %+v, want trace req-1 with limit attr", spans[0])
	}
}

func TestRecorder_NilTracer(t *testing.T) {
	r := NewRecorder(nil)
	r.StartOp(context.Background(), "income", map[string]string{"amount": "1"})(nil)
}

func TestRecorder_ObserveState(t *testing.T) {
	r := NewRecorder(nil)
	s := domain.NewLedgerState()
	s.TotalAssets = decimal.RequireFromString("120.5")
	s.WalletBalance = decimal.RequireFromString("100.5")
	s.ConsecutiveWeeksNoSpend = 2
	s.Goals = []domain.SavingsGoal{{ID: "g", CurrentAmount: decimal.NewFromInt(20)}}

	r.ObserveState(s)

	if got := testutil.ToFloat64(TotalAssets); got != 120.5 {
		t.Errorf("total_assets = %v, want 120.5", got)
	}
	if got := testutil.ToFloat64(WalletBalance); got != 100.5 {
		t.Errorf("wallet_balance = %v, want 100.5", got)
	}
	if got := testutil.ToFloat64(NoSpendStreak); got != 2 {
		t.Errorf("no_spend_streak_weeks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(GoalsActive); got != 1 {
		t.Errorf("goals_active = %v, want 1", got)
	}
}

func TestRecorder_ObserveSettlementAndBadges(t *testing.T) {
	r := NewRecorder(nil)
	settled := testutil.ToFloat64(SettlementsTotal)
	badges := testutil.ToFloat64(BadgesUnlocked)

	r.ObserveSettlement(domain.SettlementReport{
		Allowance: decimal.NewFromInt(10),
		Interest:  decimal.NewFromInt(100),
		Bonus:     decimal.Zero,
	})
	r.ObserveBadgeUnlocks(2)

	if got := testutil.ToFloat64(SettlementsTotal); got != settled+1 {
		t.Errorf("settlements = %v, want %v", got, settled+1)
	}
	if got := testutil.ToFloat64(SettlementPayout.WithLabelValues("interest")); got != 100 {
		t.Errorf("last_payout{interest} = %v, want 100", got)
	}
	if got := testutil.ToFloat64(BadgesUnlocked); got != badges+2 {
		t.Errorf("badges = %v, want %v", got, badges+2)
	}
}
