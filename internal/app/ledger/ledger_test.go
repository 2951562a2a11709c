package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// ─── Test Helpers ───────────────────────────────────────────────────────────

var testNow = time.Date(2023, time.October, 1, 9, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, got.Equal(d(want)), "got %s, want %s %v", got, want, msgAndArgs)
}

// stateWith returns a fresh ledger holding total in the wallet.
func stateWith(total string) domain.LedgerState {
	s := domain.NewLedgerState()
	s.TotalAssets = d(total)
	s.WalletBalance = d(total)
	return s
}

type fakeCalendar struct {
	today         string
	settlementDay bool
}

func (c *fakeCalendar) Today() string         { return c.today }
func (c *fakeCalendar) IsSettlementDay() bool { return c.settlementDay }

// ─── Interest Policy ────────────────────────────────────────────────────────

func TestRate_Tiered(t *testing.T) {
	cfg := domain.DefaultConfig()
	tests := []struct {
		total string
		want  string
	}{
		{"0", "0.20"},
		{"400", "0.20"},
		{"400.01", "0.10"},
		{"1500", "0.10"},
		{"1500.01", "0.05"},
		{"99999", "0.05"},
	}
	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			assertDec(t, tt.want, Rate(cfg, d(tt.total)))
		})
	}
}

func TestRate_Fixed(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.InterestMode = domain.InterestFixed
	cfg.FixedRate = d("0.03")
	assertDec(t, "0.03", Rate(cfg, d("0")))
	assertDec(t, "0.03", Rate(cfg, d("5000")))
}

func TestRate_CustomTiers(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Tiered = domain.TieredConfig{
		LowThreshold: d("100"), HighThreshold: d("200"),
		LowRate: d("0.3"), MidRate: d("0.2"), HighRate: d("0.1"),
	}
	assertDec(t, "0.3", Rate(cfg, d("100")))
	assertDec(t, "0.2", Rate(cfg, d("150")))
	assertDec(t, "0.1", Rate(cfg, d("201")))
}
