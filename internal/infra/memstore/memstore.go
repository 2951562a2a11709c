// Package memstore is an in-memory domain.StateStore. It keeps the snapshot
// JSON-encoded so a round trip behaves like a persistent store.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// Store holds one encoded snapshot and a settlement log.
type Store struct {
	mu          sync.Mutex
	data        []byte
	revision    int64
	settlements []domain.SettlementReport
	saves       int
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Load decodes the stored snapshot, or returns the initial ledger.
func (s *Store) Load(_ context.Context) (domain.LedgerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return domain.NewLedgerState(), nil
	}
	st, err := domain.DecodeState(s.data)
	if err != nil {
		return domain.LedgerState{}, err
	}
	st.Revision = s.revision
	return st, nil
}

// Save replaces the snapshot if st is at the stored revision.
func (s *Store) Save(_ context.Context, st domain.LedgerState) error {
	data, err := domain.EncodeState(st)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Revision != s.revision {
		return fmt.Errorf("save at revision %d, stored %d: %w", st.Revision, s.revision, domain.ErrStaleState)
	}
	s.data = data
	s.revision++
	s.saves++
	return nil
}

// Saves returns how many snapshots have been written.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// RecordSettlement appends a settlement report.
func (s *Store) RecordSettlement(_ context.Context, r domain.SettlementReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settlements = append(s.settlements, r)
	return nil
}

// ListSettlements returns up to limit reports, newest first.
func (s *Store) ListSettlements(_ context.Context, limit int) ([]domain.SettlementReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.settlements)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.SettlementReport, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.settlements[i])
	}
	return out, nil
}

// SettlementCount returns the number of recorded reports.
func (s *Store) SettlementCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.settlements), nil
}
