package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.
// A failed transition always leaves the ledger exactly as it was.

var (
	// Validation errors
	ErrInvalidAmount = errors.New("invalid amount")
	ErrConfigInvalid = errors.New("invalid configuration")
	ErrInvalidGoal   = errors.New("invalid savings goal")

	// Funds errors
	ErrInsufficientFunds = errors.New("insufficient funds in wallet")

	// Goal errors
	ErrCapacityExceeded = errors.New("savings goal list is full")
	ErrGoalNotFound     = errors.New("savings goal not found")

	// Caller-side gates
	ErrConfirmationRequired = errors.New("expense exceeds spending limit, confirmation required")
	ErrUnauthorized         = errors.New("admin password required")

	// Storage errors
	ErrStaleState = errors.New("ledger was changed by another writer")
)
