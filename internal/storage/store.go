// Package storage persists periods.
//
// Two implementations of PeriodStore are provided: SQLiteRepository, the
// durable single-table store, and MemoryStore, used for the memory backend
// and in tests. Neither enforces amount invariants; callers validate first.
package storage

import (
	"context"

	"bilancio/internal/core"
)

// PeriodStore is the persistence contract for periods.
type PeriodStore interface {
	// Upsert inserts the period or fully replaces the stored one with the same id.
	Upsert(ctx context.Context, p core.Period) error
	// ListPeriodIDs returns every stored id in first-save order.
	ListPeriodIDs(ctx context.Context) ([]string, error)
	// Get returns the stored period, core.ErrNotFound when absent or
	// core.ErrMalformedRecord when the stored data cannot be decoded.
	Get(ctx context.Context, periodID string) (core.Period, error)
	Close() error
}
