package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// PeriodRow is the raw table row; the JSON columns are decoded by the repository.
type PeriodRow struct {
	ID         int64
	PeriodID   string
	Incomes    string
	Expenses   string
	Comment    string
	BudgetGoal string
	UpdatedAt  int64
}

const upsertPeriod = `
INSERT INTO periods (period_id, incomes, expenses, comment, budget_goal, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(period_id) DO UPDATE SET
    incomes     = excluded.incomes,
    expenses    = excluded.expenses,
    comment     = excluded.comment,
    budget_goal = excluded.budget_goal,
    updated_at  = excluded.updated_at
`

type UpsertPeriodParams struct {
	PeriodID   string
	Incomes    string
	Expenses   string
	Comment    string
	BudgetGoal string
	UpdatedAt  int64
}

func (q *Queries) UpsertPeriod(ctx context.Context, arg UpsertPeriodParams) error {
	_, err := q.db.ExecContext(ctx, upsertPeriod,
		arg.PeriodID,
		arg.Incomes,
		arg.Expenses,
		arg.Comment,
		arg.BudgetGoal,
		arg.UpdatedAt,
	)
	return err
}

// Rows keep the id assigned on first insert, so ORDER BY id is first-save order.
const listPeriodIDs = `SELECT period_id FROM periods ORDER BY id`

func (q *Queries) ListPeriodIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listPeriodIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var periodID string
		if err := rows.Scan(&periodID); err != nil {
			return nil, err
		}
		items = append(items, periodID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPeriod = `
SELECT id, period_id, incomes, expenses, comment, budget_goal, updated_at
FROM periods
WHERE period_id = ?
`

func (q *Queries) GetPeriod(ctx context.Context, periodID string) (PeriodRow, error) {
	row := q.db.QueryRowContext(ctx, getPeriod, periodID)
	var i PeriodRow
	err := row.Scan(
		&i.ID,
		&i.PeriodID,
		&i.Incomes,
		&i.Expenses,
		&i.Comment,
		&i.BudgetGoal,
		&i.UpdatedAt,
	)
	return i, err
}

const countPeriods = `SELECT COUNT(*) FROM periods`

func (q *Queries) CountPeriods(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPeriods)
	var count int64
	err := row.Scan(&count)
	return count, err
}
