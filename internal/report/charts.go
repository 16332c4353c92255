// Package report turns aggregated figures into chart-ready series: the
// income/expense trend, the Sankey breakdown, per-category bars and the
// forecast charts. Amounts are expected to be already converted.
package report

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/forecast"
)

const TotalIncomeLabel = "Total Income"

// Series is one named line or bar group.
type Series struct {
	Name   string            `json:"name"`
	X      []string          `json:"x"`
	Y      []decimal.Decimal `json:"y"`
	Colour string            `json:"colour,omitempty"`
}

// Trend is the income and expense line chart over all periods.
type Trend struct {
	Income  Series `json:"income"`
	Expense Series `json:"expense"`
}

// Sankey is a flow diagram: incomes flow into the total, the total into expenses.
type Sankey struct {
	Labels []string          `json:"labels"`
	Source []int             `json:"source"`
	Target []int             `json:"target"`
	Value  []decimal.Decimal `json:"value"`
}

// Bars holds income and expense bars per category.
type Bars struct {
	Income  Series `json:"income"`
	Expense Series `json:"expense"`
}

// TrendSeries builds the trend lines from a history.
func TrendSeries(history []core.HistoryEntry) Trend {
	t := Trend{
		Income:  Series{Name: "income", Colour: "green"},
		Expense: Series{Name: "expense", Colour: "red"},
	}
	for _, h := range history {
		t.Income.X = append(t.Income.X, h.PeriodID)
		t.Income.Y = append(t.Income.Y, h.Income)
		t.Expense.X = append(t.Expense.X, h.PeriodID)
		t.Expense.Y = append(t.Expense.Y, h.Expense)
	}
	return t
}

// SankeyFor builds the breakdown of one period. Nodes follow the configured
// category order; categories missing from the period carry zero.
func SankeyFor(p core.Period, cats core.Categories) Sankey {
	s := Sankey{}
	s.Labels = append(s.Labels, cats.Incomes...)
	total := len(s.Labels)
	s.Labels = append(s.Labels, TotalIncomeLabel)
	s.Labels = append(s.Labels, cats.Expenses...)

	for i, name := range cats.Incomes {
		s.Source = append(s.Source, i)
		s.Target = append(s.Target, total)
		s.Value = append(s.Value, amount(p.Incomes, name))
	}
	for i, name := range cats.Expenses {
		s.Source = append(s.Source, total)
		s.Target = append(s.Target, total+1+i)
		s.Value = append(s.Value, amount(p.Expenses, name))
	}
	return s
}

// CategoryBars builds the stacked per-category bar chart of one period.
func CategoryBars(p core.Period, cats core.Categories) Bars {
	b := Bars{
		Income:  Series{Name: "Income", Colour: "green"},
		Expense: Series{Name: "Expense", Colour: "red"},
	}
	for _, name := range cats.Incomes {
		b.Income.X = append(b.Income.X, name)
		b.Income.Y = append(b.Income.Y, amount(p.Incomes, name))
	}
	for _, name := range cats.Expenses {
		b.Expense.X = append(b.Expense.X, name)
		b.Expense.Y = append(b.Expense.Y, amount(p.Expenses, name))
	}
	return b
}

// Gauge is the health score dial with its colour bands.
type Gauge struct {
	Value float64     `json:"value"`
	Band  string      `json:"band"`
	Steps []GaugeStep `json:"steps"`
}

type GaugeStep struct {
	From   float64 `json:"from"`
	To     float64 `json:"to"`
	Colour string  `json:"colour"`
}

// ForecastCharts are the charts of the insights view.
type ForecastCharts struct {
	ActualExpense    []float64 `json:"actual_expense"`
	FittedExpense    []float64 `json:"fitted_expense"`
	Index            []int     `json:"index"`
	PredictedIndex   int       `json:"predicted_index"`
	PredictedExpense float64   `json:"predicted_expense"`
	IncomeVsExpense  Bars      `json:"income_vs_expense"`
	SavingsVsExpense Series    `json:"savings_vs_expense"`
	Health           Gauge     `json:"health"`
}

// ForecastChartsFor builds the insights charts.
func ForecastChartsFor(in forecast.Insights) ForecastCharts {
	fc := ForecastCharts{
		ActualExpense:    in.Expenses,
		FittedExpense:    in.Fitted,
		PredictedIndex:   in.NextIndex,
		PredictedExpense: in.PredictedExpense,
		IncomeVsExpense: Bars{
			Income:  Series{Name: "Income", Colour: "green", X: in.Periods, Y: decimals(in.Incomes)},
			Expense: Series{Name: "Expense", Colour: "red", X: in.Periods, Y: decimals(in.Expenses)},
		},
		SavingsVsExpense: Series{
			Name: "Suggested Savings vs Predicted Expense",
			X:    []string{"Suggested Savings", "Predicted Expense"},
			Y:    decimals([]float64{in.SuggestedSavings, in.PredictedExpense}),
		},
		Health: Gauge{
			Value: in.HealthScore,
			Band:  string(in.Band),
			Steps: []GaugeStep{
				{From: 0, To: 50, Colour: string(forecast.BandRed)},
				{From: 50, To: 80, Colour: string(forecast.BandYellow)},
				{From: 80, To: 100, Colour: string(forecast.BandGreen)},
			},
		},
	}
	for i := range in.Expenses {
		fc.Index = append(fc.Index, i+1)
	}
	return fc
}

func amount(m map[string]decimal.Decimal, name string) decimal.Decimal {
	if v, ok := m[name]; ok {
		return v
	}
	return decimal.Zero
}

func decimals(xs []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(xs))
	for i, x := range xs {
		out[i] = decimal.NewFromFloat(x).Round(2)
	}
	return out
}
