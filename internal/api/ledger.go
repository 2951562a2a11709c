package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/smartsaver/smartsaver/internal/app/ledger"
	"github.com/smartsaver/smartsaver/internal/domain"
)

// ─── Ledger API ─────────────────────────────────────────────────────────────
// REST endpoints for the web UI and CLI.
//
// GET    /api/state               ledger snapshot plus rate and streak hint
// GET    /api/settlement/preview  what the next settlement would pay
// POST   /api/settlement/check    settle now if due
// GET    /api/settlements         settlement audit log
// POST   /api/income              record extra income
// POST   /api/expense             record spending
// GET    /api/goals               savings goals with progress
// POST   /api/goals               create a goal
// POST   /api/goals/{id}/deposit  move wallet money into a goal
// DELETE /api/goals/{id}          delete a goal, refunding its savings (admin)
// GET    /api/transactions        filtered and sorted history
// GET    /api/trend               total assets over the latest entries
// GET    /api/badges              badge catalog with unlock status

type goalView struct {
	domain.SavingsGoal
	ProgressPct float64 `json:"progressPct"`
}

func goalViews(goals []domain.SavingsGoal) []goalView {
	out := make([]goalView, 0, len(goals))
	for _, g := range goals {
		out = append(out, goalView{SavingsGoal: g, ProgressPct: g.ProgressPct()})
	}
	return out
}

// decodeBody parses a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// queryInt reads an integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil {
		return v
	}
	return def
}

// handleState returns the full ledger.
// GET /api/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.State(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	st.AdminPassword = ""

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ledger":      st,
		"goals":       goalViews(st.Goals),
		"currentRate": ledger.Rate(st.Config, st.TotalAssets),
		"streakClose": st.StreakClose(),
		"balanced":    st.Balanced(),
	})
}

// handlePreview returns the settlement preview.
// GET /api/settlement/preview
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Preview(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleCheckSettlement settles if today is due.
// POST /api/settlement/check
func (s *Server) handleCheckSettlement(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.CheckSettlement(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if b == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"settled": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"settled":   true,
		"breakdown": b,
	})
}

// handleSettlements lists settlement reports.
// GET /api/settlements?limit=N
func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	reports, total, err := s.svc.Settlements(r.Context(), queryInt(r, "limit", 52))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"settlements": reports,
		"total":       total,
	})
}

type moneyRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Confirmed bool            `json:"confirmed"`
}

// handleIncome records extra income.
// POST /api/income {"amount": "5", "reason": "chores"}
func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	var req moneyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.RecordIncome(r.Context(), req.Amount, req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	s.handleState(w, r)
}

// handleExpense records spending. Amounts over the spending limit need
// "confirmed": true.
// POST /api/expense {"amount": "5", "reason": "toy", "confirmed": false}
func (s *Server) handleExpense(w http.ResponseWriter, r *http.Request) {
	var req moneyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.RecordExpense(r.Context(), req.Amount, req.Reason, req.Confirmed); err != nil {
		writeDomainError(w, err)
		return
	}
	s.handleState(w, r)
}

// handleListGoals returns the savings goals.
// GET /api/goals
func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.State(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"goals":    goalViews(st.Goals),
		"maxGoals": domain.MaxGoals,
	})
}

// handleCreateGoal creates a savings goal.
// POST /api/goals {"name": "bike", "targetAmount": "200", "imageUrl": ""}
func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string          `json:"name"`
		TargetAmount decimal.Decimal `json:"targetAmount"`
		ImageURL     string          `json:"imageUrl"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	g, err := s.svc.CreateGoal(r.Context(), req.Name, req.TargetAmount, req.ImageURL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, goalView{SavingsGoal: g})
}

// handleDepositGoal moves wallet money into a goal.
// POST /api/goals/{id}/deposit {"amount": "20"}
func (s *Server) handleDepositGoal(w http.ResponseWriter, r *http.Request) {
	var req moneyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	completed, err := s.svc.DepositToGoal(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"completed": completed,
	})
}

// handleDeleteGoal deletes a goal and refunds its savings. Requires the
// admin password.
// DELETE /api/goals/{id}
func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	refund, err := s.svc.DeleteGoal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"refund": refund,
	})
}

// handleTransactions returns the history.
// GET /api/transactions?filter=TRANSFERS&sort=AMOUNT_DESC
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ledger.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := ledger.ParseSortOrder(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := s.svc.History(r.Context(), f, o)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
	})
}

// handleTrend returns the asset trend series.
// GET /api/trend?limit=20
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	points, err := s.svc.Trend(r.Context(), queryInt(r, "limit", ledger.TrendLimit))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"points": points,
	})
}

// handleBadges returns the badge catalog with unlock status.
// GET /api/badges
func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.State(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type badgeResponse struct {
		domain.Badge
		Unlocked bool `json:"unlocked"`
	}
	all := make([]badgeResponse, 0, len(domain.Badges))
	for _, b := range domain.Badges {
		all = append(all, badgeResponse{Badge: b, Unlocked: st.HasBadge(b.ID)})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"badges":         all,
		"unlocked_count": len(st.Badges),
		"total_count":    len(domain.Badges),
	})
}

// ─── Admin API ──────────────────────────────────────────────────────────────
// Every route requires the X-Admin-Password header.
//
// POST /api/admin/verify          check the password
// PUT  /api/admin/total           correct total assets
// PUT  /api/admin/spending-limit  set the advisory spending limit
// GET  /api/admin/settings        read settings
// PUT  /api/admin/settings        replace settings
// GET  /api/admin/spans           recent operation spans

func (s *Server) handleAdminVerify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func (s *Server) handleSetTotal(w http.ResponseWriter, r *http.Request) {
	var req moneyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.SetTotalAssets(r.Context(), req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	s.handleState(w, r)
}

func (s *Server) handleSetSpendingLimit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Limit decimal.Decimal `json:"limit"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.SetSpendingLimit(r.Context(), req.Limit); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"spendingLimit": req.Limit})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	set, err := s.svc.Settings(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var set ledger.Settings
	if !decodeBody(w, r, &set) {
		return
	}
	if err := s.svc.UpdateSettings(r.Context(), set); err != nil {
		writeDomainError(w, err)
		return
	}
	s.handleGetSettings(w, r)
}

func (s *Server) handleSpans(w http.ResponseWriter, r *http.Request) {
	if s.tracer == nil {
		writeError(w, http.StatusServiceUnavailable, "tracing not enabled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"spans": s.tracer.Spans(queryInt(r, "limit", 100)),
	})
}
