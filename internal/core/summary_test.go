package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals(t *testing.T) {
	p := Period{
		Incomes:  map[string]decimal.Decimal{"Salary": d(1000), "Other income": d(0)},
		Expenses: map[string]decimal.Decimal{"Rent": d(300), "Groceries": d(200)},
	}
	got := ComputeTotals(p)
	assert.True(t, got.Income.Equal(d(1000)))
	assert.True(t, got.Expense.Equal(d(500)))
	assert.True(t, got.Remaining.Equal(d(500)))

	empty := ComputeTotals(Period{})
	assert.True(t, empty.Income.IsZero())
	assert.True(t, empty.Expense.IsZero())
	assert.True(t, empty.Remaining.IsZero())
}

func TestBudgetStatus(t *testing.T) {
	noGoal := BudgetStatus(d(500), d(0))
	assert.Equal(t, NoGoal, noGoal.State)
	assert.Nil(t, noGoal.Progress)

	over := BudgetStatus(d(500), d(400))
	assert.Equal(t, OverBudget, over.State)
	assert.True(t, over.Over.Equal(d(100)))
	require.NotNil(t, over.Progress)
	assert.Equal(t, 1.0, *over.Progress)

	within := BudgetStatus(d(300), d(400))
	assert.Equal(t, WithinBudget, within.State)
	assert.True(t, within.Over.IsZero())
	require.NotNil(t, within.Progress)
	assert.InDelta(t, 0.75, *within.Progress, 1e-9)

	exact := BudgetStatus(d(400), d(400))
	assert.Equal(t, WithinBudget, exact.State)
}

func TestTotalsScale(t *testing.T) {
	tot := Totals{Income: d(10), Expense: d(4), Remaining: d(6)}.Scale(d(3))
	assert.True(t, tot.Income.Equal(d(30)))
	assert.True(t, tot.Expense.Equal(d(12)))
	assert.True(t, tot.Remaining.Equal(d(18)))
}
