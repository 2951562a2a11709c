// Ledger schema and operations.
// Persistence for the ledger snapshot and the weekly settlement reports.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// ─── Ledger Schema ──────────────────────────────────────────────────────────

// LedgerMigrations returns the schema statements, one per string.
func LedgerMigrations() []string {
	return []string{
		// The whole ledger is one JSON document; there is only ever one row.
		`CREATE TABLE IF NOT EXISTS ledger_snapshot (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			data       TEXT NOT NULL,
			revision   INTEGER NOT NULL DEFAULT 1,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// One row per applied weekly settlement
		`CREATE TABLE IF NOT EXISTS settlement_reports (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			day        TEXT NOT NULL UNIQUE,
			week       INTEGER NOT NULL,
			allowance  TEXT NOT NULL,
			interest   TEXT NOT NULL,
			bonus      TEXT NOT NULL,
			rate       TEXT NOT NULL,
			prev_total TEXT NOT NULL,
			new_total  TEXT NOT NULL,
			settled_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_settlement_week ON settlement_reports(week)`,
	}
}

// ─── Snapshot Operations ────────────────────────────────────────────────────

// Load returns the stored ledger, or the initial ledger if none was saved.
func (db *DB) Load(ctx context.Context) (domain.LedgerState, error) {
	var (
		data     string
		revision int64
	)
	err := db.db.QueryRowContext(ctx, `SELECT data, revision FROM ledger_snapshot WHERE id = 1`).Scan(&data, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewLedgerState(), nil
	}
	if err != nil {
		return domain.LedgerState{}, fmt.Errorf("load snapshot: %w", err)
	}
	s, err := domain.DecodeState([]byte(data))
	if err != nil {
		return domain.LedgerState{}, err
	}
	s.Revision = revision
	return s, nil
}

// Save replaces the stored ledger if it is still at s.Revision. The update
// and the revision check are one statement, so two processes sharing the
// file cannot both win.
func (db *DB) Save(ctx context.Context, s domain.LedgerState) error {
	data, err := domain.EncodeState(s)
	if err != nil {
		return err
	}
	res, err := db.db.ExecContext(ctx, `
		INSERT INTO ledger_snapshot (id, data, revision, updated_at)
		VALUES (1, ?, 1, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			data       = excluded.data,
			revision   = ledger_snapshot.revision + 1,
			updated_at = datetime('now')
		WHERE ledger_snapshot.revision = ?
	`, string(data), s.Revision)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("save snapshot at revision %d: %w", s.Revision, domain.ErrStaleState)
	}
	return nil
}

// ─── Settlement Report Operations ───────────────────────────────────────────

// RecordSettlement saves a settlement report. Recording the same day twice
// keeps the first row.
func (db *DB) RecordSettlement(ctx context.Context, r domain.SettlementReport) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO settlement_reports (day, week, allowance, interest, bonus, rate, prev_total, new_total, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO NOTHING
	`, r.Day, r.Week, r.Allowance.String(), r.Interest.String(), r.Bonus.String(), r.Rate.String(),
		r.PrevTotal.String(), r.NewTotal.String(), r.SettledAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record settlement %s: %w", r.Day, err)
	}
	return nil
}

// ListSettlements returns up to limit reports, newest first. A limit of zero
// or less returns all of them.
func (db *DB) ListSettlements(ctx context.Context, limit int) ([]domain.SettlementReport, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.db.QueryContext(ctx, `
		SELECT day, week, allowance, interest, bonus, rate, prev_total, new_total, settled_at
		FROM settlement_reports ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.SettlementReport{}
	for rows.Next() {
		var (
			r                                domain.SettlementReport
			allowance, interest, bonus, rate string
			prevTotal, newTotal, settledAt   string
		)
		if err := rows.Scan(&r.Day, &r.Week, &allowance, &interest, &bonus, &rate, &prevTotal, &newTotal, &settledAt); err != nil {
			return nil, err
		}
		for _, f := range []struct {
			dst *decimal.Decimal
			src string
		}{
			{&r.Allowance, allowance}, {&r.Interest, interest}, {&r.Bonus, bonus},
			{&r.Rate, rate}, {&r.PrevTotal, prevTotal}, {&r.NewTotal, newTotal},
		} {
			if *f.dst, err = decimal.NewFromString(f.src); err != nil {
				return nil, fmt.Errorf("settlement %s: %w", r.Day, err)
			}
		}
		r.SettledAt, _ = time.Parse(time.RFC3339, settledAt)
		result = append(result, r)
	}
	return result, rows.Err()
}

// SettlementCount returns the number of recorded settlements.
func (db *DB) SettlementCount(ctx context.Context) (int, error) {
	var n int
	err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM settlement_reports`).Scan(&n)
	return n, err
}
