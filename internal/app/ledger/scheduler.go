package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// ─── Settlement Scheduler ───────────────────────────────────────────────────
// Two states: Idle and SettlementDue. The Idle → SettlementDue edge fires
// when today is the settlement weekday and today has not been settled yet;
// the settlement is applied in the same step and recording today's token
// returns the machine to Idle. Missed weeks are not backfilled.

// Scheduler decides when a weekly settlement fires.
type Scheduler struct {
	cal domain.Calendar
}

// NewScheduler creates a scheduler driven by cal.
func NewScheduler(cal domain.Calendar) *Scheduler {
	return &Scheduler{cal: cal}
}

// Due reports whether a settlement should fire for s right now.
func (sc *Scheduler) Due(s domain.LedgerState) bool {
	return sc.cal.IsSettlementDay() && s.LastSettlementDate != sc.cal.Today()
}

// Run applies a settlement if one is due. It returns s unchanged and a nil
// breakdown otherwise, so calling it twice on the same day is a no-op.
func (sc *Scheduler) Run(s domain.LedgerState, at time.Time) (domain.LedgerState, *Breakdown) {
	if !sc.Due(s) {
		return s, nil
	}
	next, b := ApplySettlement(s, sc.cal.Today(), at)
	return next, &b
}

// ─── Wall Calendar ──────────────────────────────────────────────────────────

// DayTokenLayout renders a day the way stored snapshots already do
// ("Sun Oct 01 2023").
const DayTokenLayout = "Mon Jan 02 2006"

// WeekdayCalendar is a domain.Calendar backed by a clock.
type WeekdayCalendar struct {
	Weekday  time.Weekday
	Location *time.Location
	Now      func() time.Time
}

// NewWeekdayCalendar returns a wall-clock calendar settling on weekday.
func NewWeekdayCalendar(weekday time.Weekday, loc *time.Location) *WeekdayCalendar {
	if loc == nil {
		loc = time.Local
	}
	return &WeekdayCalendar{Weekday: weekday, Location: loc, Now: time.Now}
}

func (c *WeekdayCalendar) now() time.Time {
	return c.Now().In(c.Location)
}

// Today returns the current day token.
func (c *WeekdayCalendar) Today() string {
	return c.now().Format(DayTokenLayout)
}

// IsSettlementDay reports whether today is the configured weekday.
func (c *WeekdayCalendar) IsSettlementDay() bool {
	return c.now().Weekday() == c.Weekday
}

// ParseWeekday accepts full or three-letter English weekday names.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}
