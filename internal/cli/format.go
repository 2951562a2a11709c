package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// formatMoney renders a decimal amount in currency code.
func formatMoney(amount decimal.Decimal, code string) string {
	// money.New never returns a nil currency, unlike GetCurrency.
	cur := *money.New(0, code).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// formatSigned prefixes credits with "+".
func formatSigned(amount decimal.Decimal, code string) string {
	if amount.IsPositive() {
		return "+" + formatMoney(amount, code)
	}
	return formatMoney(amount, code)
}

// formatRate renders 0.1 as "10%".
func formatRate(rate decimal.Decimal) string {
	return rate.Shift(2).StringFixed(0) + "%"
}

// progressBar draws pct (0-100) in width cells.
func progressBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

func printKV(w io.Writer, key string, value interface{}) {
	fmt.Fprintf(w, "  %-18s %v\n", key+":", value)
}
