package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsaver/smartsaver/internal/app/ledger"
	"github.com/smartsaver/smartsaver/internal/domain"
	"github.com/smartsaver/smartsaver/internal/infra/memstore"
	"github.com/smartsaver/smartsaver/internal/infra/observability"
)

// ─── Ledger API Tests ───────────────────────────────────────────────────────

type fixedCalendar struct {
	today         string
	settlementDay bool
}

func (c fixedCalendar) Today() string         { return c.today }
func (c fixedCalendar) IsSettlementDay() bool { return c.settlementDay }

func setupServer(t *testing.T, cal fixedCalendar, configure ...func(*Server)) (*Server, *httptest.Server) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	hub := NewEventHub()
	svc, err := ledger.NewService(context.Background(), memstore.New(), cal,
		ledger.WithLogger(log), ledger.WithNotifier(hub))
	require.NoError(t, err)

	srv := NewServer(svc, log)
	srv.SetEventHub(hub)
	srv.EnableMetrics()
	for _, c := range configure {
		c(srv)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string, header ...string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func ledgerOf(t *testing.T, body map[string]interface{}) domain.LedgerState {
	t.Helper()
	raw, err := json.Marshal(body["ledger"])
	require.NoError(t, err)
	st, err := domain.DecodeState(raw)
	require.NoError(t, err)
	return st
}

func TestHealth(t *testing.T) {
	_, ts := setupServer(t, fixedCalendar{})
	resp, body := do(t, ts, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestState_HidesAdminPassword(t *testing.T) {
	_, ts := setupServer(t, fixedCalendar{})
	resp, body := do(t, ts, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ledgerMap := body["ledger"].(map[string]interface{})
	_, present := ledgerMap["adminPassword"]
	assert.False(t, present)
	assert.Equal(t, domain.DefaultAppName, ledgerMap["appName"])
	assert.Equal(t, "0.2", body["currentRate"])
	assert.Equal(t, true, body["balanced"])
}

func TestState_SettlesOnSettlementDay(t *testing.T) {
	_, ts := setupServer(t, fixedCalendar{today: "Sun Oct 01 2023", settlementDay: true})

	_, body := do(t, ts, http.MethodGet, "/api/state", "")
	st := ledgerOf(t, body)
	assert.Equal(t, 1, st.WeekCount)
	assert.True(t, st.TotalAssets.Equal(decimal.NewFromInt(10)))

	resp, body := do(t, ts, http.MethodPost, "/api/settlement/check", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["settled"])

	_, body = do(t, ts, http.MethodGet, "/api/settlements", "")
	assert.Len(t, body["settlements"], 1)
	assert.Equal(t, float64(1), body["total"])
}

func TestIncomeAndExpense(t *testing.T) {
	_, ts := setupServer(t, fixedCalendar{})

	resp, body := do(t, ts, http.MethodPost, "/api/income", `{"amount": "95", "reason": "chores"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, ledgerOf(t, body).TotalAssets.Equal(decimal.NewFromInt(95)))

	_, body = do(t, ts, http.MethodPost, "/api/income", `{"amount": 10, "reason": "gift"}`)
	st := ledgerOf(t, body)
	assert.True(t, st.TotalAssets.Equal(decimal.RequireFromString("115.5")), "got %s", st.TotalAssets)
	assert.True(t, st.HasBadge(domain.BadgeFirstPot))

	resp, _ = do(t, ts, http.MethodPost, "/api/expense", `{"amount": "500", "reason": "car"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/api/income", `{"amount": "-1", "reason": "x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/api/income", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExpense_SpendingLimitConfirmation(t *testing.T) {
	_, ts := setupServer(t, fixedCalendar{})
	admin := []string{AdminHeader, domain.DefaultAdminPassword}

	do(t, ts, http.MethodPost, "/api/income", `{"amount": "50", "reason": "gift"}`)
	resp, _ := do(t, ts, http.MethodPut, "/api/admin/spending-limit", `{"limit": "10"}`, admin...)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, ts, http.MethodPost, "/api/expense", `{"amount": "20", "reason": "toy"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["error"].(map[string]interface{})["message"], "confirmation")

	resp, body = do(t, ts, http.MethodPost, "/api/expense", `{"amount": "20", "reason": "toy", "confirmed": true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, ledgerOf(t, body).WalletBalance.Equal(decimal.NewFromInt(30)))
}

func TestGoals(t *testing.T) {
	_, ts := setupServer(t, fixedCalendar{})
	do(t, ts, http.MethodPost, "/api/income", `{"amount": "40", "reason": "gift"}`)

	resp, body := do(t, ts, http.MethodPost, "/api/goals", `{"name": "kite", "targetAmount": "20"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["id"].(string)

	resp, body = do(t, ts, http.MethodPost, "/api/goals/"+id+"/deposit", `{"amount": "50"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "deposit over wallet")

	resp, body = do(t, ts, http.MethodPost, "/api/goals/"+id+"/deposit", `{"amount": "20"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["completed"])

	_, body = do(t, ts, http.MethodGet, "/api/goals", "")
	goals := body["goals"].([]interface{})
	require.Len(t, goals, 1)
	assert.Equal(t, float64(100), goals[0].(map[string]interface{})["progressPct"])

	resp, _ = do(t, ts, http.MethodPost, "/api/goals/missing/deposit", `{"amount": "1"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodDelete, "/api/goals/"+id, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "delete needs the admin password")
	resp, _ = do(t, ts, http.MethodDelete, "/api/goals/"+id, "", AdminHeader, "guess")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, body = do(t, ts, http.MethodGet, "/api/goals", "")
	require.Len(t, body["goals"], 1, "rejected delete keeps the goal")

	resp, body = do(t, ts, http.MethodDelete, "/api/goals/"+id, "", AdminHeader, domain.DefaultAdminPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "20", body["refund"])
}

func TestTransactionsAndTrend(t *testing.T) {
	_, ts := setupServer(t, fixedCalendar{})
	do(t, ts, http.MethodPost, "/api/income", `{"amount": "40", "reason": "gift"}`)
	do(t, ts, http.MethodPost, "/api/expense", `{"amount": "5", "reason": "candy"}`)

	_, body := do(t, ts, http.MethodGet, "/api/transactions?filter=expense", "")
	assert.Len(t, body["transactions"], 1)

	_, body = do(t, ts, http.MethodGet, "/api/transactions?sort=DATE_ASC", "")
	txs := body["transactions"].([]interface{})
	require.Len(t, txs, 2)
	assert.Equal(t, "INCOME", txs[0].(map[string]interface{})["type"])

	resp, _ := do(t, ts, http.MethodGet, "/api/transactions?sort=SIDEWAYS", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = do(t, ts, http.MethodGet, "/api/trend", "")
	assert.Len(t, body["points"], 2)
}

func TestBadges(t *testing.T) {
	_, ts := setupServer(t, fixedCalendar{})
	_, body := do(t, ts, http.MethodGet, "/api/badges", "")
	assert.Len(t, body["badges"], len(domain.Badges))
	assert.Equal(t, float64(0), body["unlocked_count"])
}

func TestAdmin_RequiresPassword(t *testing.T) {
	_, ts := setupServer(t, fixedCalendar{})

	resp, _ := do(t, ts, http.MethodPost, "/api/admin/verify", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/api/admin/verify", "", AdminHeader, "nope")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/api/admin/verify", "", AdminHeader, domain.DefaultAdminPassword)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdmin_SetTotalAndSettings(t *testing.T) {
	_, ts := setupServer(t, fixedCalendar{})
	admin := []string{AdminHeader, domain.DefaultAdminPassword}

	resp, body := do(t, ts, http.MethodPut, "/api/admin/total", `{"amount": "80"}`, admin...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, ledgerOf(t, body).TotalAssets.Equal(decimal.NewFromInt(80)))

	_, body = do(t, ts, http.MethodGet, "/api/admin/settings", "", admin...)
	assert.Equal(t, "TIERED", body["interestRateMode"])

	resp, _ = do(t, ts, http.MethodPut, "/api/admin/settings",
		`{"appName": "Piggy", "adminPassword": "", "weeklyAllowance": "5", "interestRateMode": "FIXED", "fixedInterestRate": "0.05"}`, admin...)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, ts, http.MethodPut, "/api/admin/settings",
		`{"appName": "Piggy", "adminPassword": "1234", "weeklyAllowance": "5", "interestRateMode": "FIXED", "fixedInterestRate": "0.05"}`, admin...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Piggy", body["appName"])

	resp, _ = do(t, ts, http.MethodGet, "/api/admin/settings", "", admin...)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "old password no longer valid")
}

func TestAdmin_RateLimited(t *testing.T) {
	_, ts := setupServer(t, fixedCalendar{}, func(s *Server) { s.SetAdminRateLimit(2) })

	for i := 0; i < 2; i++ {
		resp, _ := do(t, ts, http.MethodPost, "/api/admin/verify", "", AdminHeader, "guess")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, _ := do(t, ts, http.MethodPost, "/api/admin/verify", "", AdminHeader, domain.DefaultAdminPassword)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := setupServer(t, fixedCalendar{})
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// ─── Event Hub ──────────────────────────────────────────────────────────────

func TestSpans_GroupedByRequestID(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	tracer := observability.NewTracer(10)
	svc, err := ledger.NewService(context.Background(), memstore.New(), fixedCalendar{},
		ledger.WithLogger(log), ledger.WithMetrics(observability.NewRecorder(tracer)))
	require.NoError(t, err)
	srv := NewServer(svc, log)
	srv.SetTracer(tracer)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, _ := do(t, ts, http.MethodPost, "/api/income", `{"amount": "95", "reason": "chores"}`,
		middleware.RequestIDHeader, "req-42")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, ts, http.MethodGet, "/api/admin/spans", "", AdminHeader, domain.DefaultAdminPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := json.Marshal(body["spans"])
	require.NoError(t, err)
	var spans []observability.Span
	require.NoError(t, json.Unmarshal(raw, &spans))

	var income []observability.Span
	for _, sp := range spans {
		if sp.Op == "income" {
			income = append(income, sp)
		}
	}
	require.Len(t, income, 1)
	assert.Equal(t, "req-42", income[0].TraceID)
	assert.Equal(t, "95", income[0].Attrs["amount"])
	assert.False(t, income[0].Failed())
}

func TestEventHub_SubscribeBroadcast(t *testing.T) {
	hub := NewEventHub()
	ch, unsub := hub.Subscribe()
	assert.Equal(t, 1, hub.ClientCount())

	hub.Publish(ledger.Event{Type: ledger.EventGoalCompleted, GoalID: "g1"})

	select {
	case data := <-ch:
		var ev map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, "goal_completed", ev["type"])
		assert.Equal(t, "g1", ev["goalId"])
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	unsub()
	unsub()
	assert.Equal(t, 0, hub.ClientCount())
}

func TestEventHub_SlowClientDropped(t *testing.T) {
	hub := NewEventHub()
	_, unsub := hub.Subscribe()
	defer unsub()

	for i := 0; i < 100; i++ {
		hub.Publish(ledger.Event{Type: ledger.EventTransaction})
	}
}

func TestEventsSSE_StreamsSettlement(t *testing.T) {
	srv, ts := setupServer(t, fixedCalendar{today: "Sun Oct 01 2023", settlementDay: true})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events/live", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return srv.EventHub().ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	do(t, ts, http.MethodPost, "/api/settlement/check", "")

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: "))
	assert.Contains(t, line, `"type":"settlement"`)
}
