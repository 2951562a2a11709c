package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Transaction Types ──────────────────────────────────────────────────────

// Kind represents the business reason for a money movement.
type Kind string

const (
	KindIncome      Kind = "INCOME"
	KindExpense     Kind = "EXPENSE"
	KindInterest    Kind = "INTEREST"
	KindBonus       Kind = "BONUS"
	KindTransferIn  Kind = "TRANSFER_IN"
	KindTransferOut Kind = "TRANSFER_OUT"
)

// Kinds lists every transaction kind in display order.
var Kinds = []Kind{KindIncome, KindExpense, KindInterest, KindBonus, KindTransferIn, KindTransferOut}

// IsTransfer reports whether money moved between wallet and a goal.
func (k Kind) IsTransfer() bool {
	return k == KindTransferIn || k == KindTransferOut
}

// Transaction is a single immutable row of the ledger log.
// Amount is signed from the wallet's perspective: positive is a credit.
type Transaction struct {
	ID              string          `json:"id"`
	Kind            Kind            `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Timestamp       time.Time       `json:"date"`
	BalanceSnapshot decimal.Decimal `json:"balanceSnapshot"` // total assets right after this entry
}

// NewTransaction stamps a new entry with a random id.
func NewTransaction(kind Kind, amount decimal.Decimal, description string, at time.Time, snapshot decimal.Decimal) Transaction {
	return Transaction{
		ID:              uuid.NewString(),
		Kind:            kind,
		Amount:          amount,
		Description:     description,
		Timestamp:       at,
		BalanceSnapshot: snapshot,
	}
}
