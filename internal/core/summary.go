package core

import "github.com/shopspring/decimal"

// Totals is the income/expense summary of one period.
type Totals struct {
	Income    decimal.Decimal `json:"income"`
	Expense   decimal.Decimal `json:"expense"`
	Remaining decimal.Decimal `json:"remaining"`
}

// BudgetState classifies total expense against the budget goal.
type BudgetState string

const (
	NoGoal       BudgetState = "no_goal"
	WithinBudget BudgetState = "within_budget"
	OverBudget   BudgetState = "over_budget"
)

// Budget is the outcome of comparing expense with the goal.
// Progress is nil when no goal is set.
type Budget struct {
	State    BudgetState     `json:"state"`
	Goal     decimal.Decimal `json:"goal"`
	Over     decimal.Decimal `json:"over"`
	Progress *float64        `json:"progress"`
}

// HistoryEntry is one point of the income/expense history.
type HistoryEntry struct {
	PeriodID string          `json:"period_id"`
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
}

// ComputeTotals sums incomes and expenses of a period.
func ComputeTotals(p Period) Totals {
	income := Sum(p.Incomes)
	expense := Sum(p.Expenses)
	return Totals{
		Income:    income,
		Expense:   expense,
		Remaining: income.Sub(expense),
	}
}

// Scale converts the totals with an exchange rate.
func (t Totals) Scale(rate decimal.Decimal) Totals {
	return Totals{
		Income:    t.Income.Mul(rate),
		Expense:   t.Expense.Mul(rate),
		Remaining: t.Remaining.Mul(rate),
	}
}

// BudgetStatus compares total expense with the goal.
func BudgetStatus(totalExpense, goal decimal.Decimal) Budget {
	if !goal.IsPositive() {
		return Budget{State: NoGoal, Goal: goal}
	}
	ratio := totalExpense.Div(goal).InexactFloat64()
	if ratio > 1 {
		ratio = 1
	}
	b := Budget{State: WithinBudget, Goal: goal, Progress: &ratio}
	if totalExpense.GreaterThan(goal) {
		b.State = OverBudget
		b.Over = totalExpense.Sub(goal)
	}
	return b
}
