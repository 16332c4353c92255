package forecast

import "bilancio/internal/core"

// Insights is everything derived from the history for the forecast view.
type Insights struct {
	Periods          []string  `json:"periods"`
	Incomes          []float64 `json:"incomes"`
	Expenses         []float64 `json:"expenses"`
	Fitted           []float64 `json:"fitted"`
	NextIndex        int       `json:"next_index"`
	PredictedExpense float64   `json:"predicted_expense"`
	AverageIncome    float64   `json:"average_income"`
	SuggestedSavings float64   `json:"suggested_savings"`
	HealthScore      float64   `json:"health_score"`
	Band             Band      `json:"band"`
	Model            Model     `json:"model"`
}

// Analyze fits the expense history and derives the forecast figures.
// It returns core.ErrInsufficientData for fewer than two entries.
func Analyze(history []core.HistoryEntry) (Insights, error) {
	in := Insights{
		Periods:  make([]string, len(history)),
		Incomes:  make([]float64, len(history)),
		Expenses: make([]float64, len(history)),
	}
	for i, h := range history {
		in.Periods[i] = h.PeriodID
		in.Incomes[i] = h.Income.InexactFloat64()
		in.Expenses[i] = h.Expense.InexactFloat64()
	}

	model, err := Fit(in.Expenses)
	if err != nil {
		return Insights{}, err
	}

	in.Model = model
	in.Fitted = model.Fitted()
	in.NextIndex = model.N + 1
	in.PredictedExpense = model.Next()
	in.AverageIncome = mean(in.Incomes)
	in.SuggestedSavings = SuggestedSavings(in.AverageIncome, in.PredictedExpense)
	in.HealthScore = HealthScore(in.PredictedExpense, in.AverageIncome)
	in.Band = BandFor(in.HealthScore)
	return in, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
