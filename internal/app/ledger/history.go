package ledger

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// ─── History Queries ────────────────────────────────────────────────────────

// Filter narrows the transaction log.
type Filter string

const (
	FilterAll       Filter = "ALL"
	FilterTransfers Filter = "TRANSFERS" // TRANSFER_IN and TRANSFER_OUT
)

// SortOrder orders the filtered log.
type SortOrder string

const (
	SortDateDesc   SortOrder = "DATE_DESC"
	SortDateAsc    SortOrder = "DATE_ASC"
	SortAmountDesc SortOrder = "AMOUNT_DESC"
	SortAmountAsc  SortOrder = "AMOUNT_ASC"
)

// ParseFilter accepts ALL, TRANSFERS or any transaction kind. Empty means ALL.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterTransfers:
		return f, nil
	}
	for _, k := range domain.Kinds {
		if string(f) == string(k) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// ParseSortOrder accepts one of the SortOrder values. Empty means DATE_DESC.
func ParseSortOrder(s string) (SortOrder, error) {
	o := SortOrder(strings.ToUpper(strings.TrimSpace(s)))
	switch o {
	case "":
		return SortDateDesc, nil
	case SortDateDesc, SortDateAsc, SortAmountDesc, SortAmountAsc:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

func (f Filter) match(tx domain.Transaction) bool {
	switch f {
	case FilterAll, "":
		return true
	case FilterTransfers:
		return tx.Kind.IsTransfer()
	default:
		return string(tx.Kind) == string(f)
	}
}

// Query returns a filtered, sorted copy of txs. Amount orders compare
// absolute values. Every order is stable, so entries with equal keys, such
// as the rows of one settlement, keep their log order.
func Query(txs []domain.Transaction, f Filter, o SortOrder) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.match(tx) {
			out = append(out, tx)
		}
	}

	switch o {
	case SortDateDesc:
		slices.SortStableFunc(out, func(a, b domain.Transaction) int {
			return b.Timestamp.Compare(a.Timestamp)
		})
	case SortDateAsc:
		slices.SortStableFunc(out, func(a, b domain.Transaction) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
	case SortAmountDesc:
		slices.SortStableFunc(out, func(a, b domain.Transaction) int {
			return b.Amount.Abs().Cmp(a.Amount.Abs())
		})
	case SortAmountAsc:
		slices.SortStableFunc(out, func(a, b domain.Transaction) int {
			return a.Amount.Abs().Cmp(b.Amount.Abs())
		})
	}
	return out
}

// ─── Trend ──────────────────────────────────────────────────────────────────

// TrendLimit is the default number of points in the asset trend.
const TrendLimit = 20

// TrendPoint is one sample of total assets over time.
type TrendPoint struct {
	Index       int             `json:"index"`
	Balance     decimal.Decimal `json:"balance"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
}

// Trend returns the balance snapshots of the latest limit entries in
// chronological order.
func Trend(txs []domain.Transaction, limit int) []TrendPoint {
	if limit <= 0 || limit > len(txs) {
		limit = len(txs)
	}
	points := make([]TrendPoint, 0, limit)
	for i := limit - 1; i >= 0; i-- {
		tx := txs[i]
		points = append(points, TrendPoint{
			Index:       len(points),
			Balance:     tx.BalanceSnapshot,
			Date:        tx.Timestamp,
			Description: tx.Description,
		})
	}
	return points
}
