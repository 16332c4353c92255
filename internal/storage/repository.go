package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ PeriodStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the pool is handed out
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withConn runs fn on a connection checked out for this operation only.
// The connection goes back to the pool whether fn succeeds or not.
func (r *SQLiteRepository) withConn(ctx context.Context, fn func(q *Queries) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(New(conn))
}

// Upsert implements PeriodStore. The write is a single statement.
func (r *SQLiteRepository) Upsert(ctx context.Context, p core.Period) error {
	params, err := encodePeriod(p)
	if err != nil {
		return err
	}
	params.UpdatedAt = time.Now().UnixMilli()

	err = r.withConn(ctx, func(q *Queries) error {
		return q.UpsertPeriod(ctx, params)
	})
	if err != nil {
		return fmt.Errorf("upsert period %s: %w", p.ID, err)
	}

	slog.InfoContext(ctx, "Period saved to SQLite",
		"period_id", p.ID,
		"incomes", len(p.Incomes),
		"expenses", len(p.Expenses))
	return nil
}

// ListPeriodIDs implements PeriodStore.
func (r *SQLiteRepository) ListPeriodIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.withConn(ctx, func(q *Queries) error {
		var err error
		ids, err = q.ListPeriodIDs(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list period ids: %w", err)
	}
	return ids, nil
}

// Get implements PeriodStore.
func (r *SQLiteRepository) Get(ctx context.Context, periodID string) (core.Period, error) {
	var row PeriodRow
	err := r.withConn(ctx, func(q *Queries) error {
		var err error
		row, err = q.GetPeriod(ctx, periodID)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Period{}, fmt.Errorf("get period %s: %w", periodID, core.ErrNotFound)
	}
	if err != nil {
		return core.Period{}, fmt.Errorf("get period %s: %w", periodID, err)
	}

	p, err := decodePeriod(row)
	if err != nil {
		slog.ErrorContext(ctx, "Stored period failed to decode", "period_id", periodID, "error", err)
		return core.Period{}, err
	}
	return p, nil
}

// Count returns the number of stored periods.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.withConn(ctx, func(q *Queries) error {
		var err error
		n, err = q.CountPeriods(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count periods: %w", err)
	}
	return n, nil
}

func encodePeriod(p core.Period) (UpsertPeriodParams, error) {
	incomes, err := json.Marshal(nonNil(p.Incomes))
	if err != nil {
		return UpsertPeriodParams{}, fmt.Errorf("encode incomes: %w", err)
	}
	expenses, err := json.Marshal(nonNil(p.Expenses))
	if err != nil {
		return UpsertPeriodParams{}, fmt.Errorf("encode expenses: %w", err)
	}
	return UpsertPeriodParams{
		PeriodID:   p.ID,
		Incomes:    string(incomes),
		Expenses:   string(expenses),
		Comment:    p.Comment,
		BudgetGoal: p.BudgetGoal.String(),
	}, nil
}

func decodePeriod(row PeriodRow) (core.Period, error) {
	p := core.Period{
		ID:        row.PeriodID,
		Comment:   row.Comment,
		UpdatedAt: time.UnixMilli(row.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(row.Incomes), &p.Incomes); err != nil {
		return core.Period{}, fmt.Errorf("%w: %s incomes: %v", core.ErrMalformedRecord, row.PeriodID, err)
	}
	if err := json.Unmarshal([]byte(row.Expenses), &p.Expenses); err != nil {
		return core.Period{}, fmt.Errorf("%w: %s expenses: %v", core.ErrMalformedRecord, row.PeriodID, err)
	}
	goal, err := decimal.NewFromString(row.BudgetGoal)
	if err != nil {
		return core.Period{}, fmt.Errorf("%w: %s budget goal: %v", core.ErrMalformedRecord, row.PeriodID, err)
	}
	p.BudgetGoal = goal
	p.Incomes = nonNil(p.Incomes)
	p.Expenses = nonNil(p.Expenses)
	return p, nil
}

func nonNil(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	if m == nil {
		return map[string]decimal.Decimal{}
	}
	return m
}
