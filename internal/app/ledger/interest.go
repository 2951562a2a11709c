package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// Rate returns the weekly interest rate applicable to total.
//
// FIXED mode ignores total. TIERED mode compares strictly, so a total equal
// to a threshold earns the lower bracket's rate.
func Rate(cfg domain.Config, total decimal.Decimal) decimal.Decimal {
	if cfg.InterestMode == domain.InterestFixed {
		return cfg.FixedRate
	}
	t := cfg.Tiered
	switch {
	case total.GreaterThan(t.HighThreshold):
		return t.HighRate
	case total.GreaterThan(t.LowThreshold):
		return t.MidRate
	default:
		return t.LowRate
	}
}
