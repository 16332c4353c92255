// Package forecast fits a straight line through past total expenses and
// extrapolates one period ahead.
//
// The feature is the position of a period in the history (1..N), not its
// calendar date, so the order in which periods are listed changes the fit.
package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"bilancio/internal/core"
)

// Model is the fitted line expense = Slope*index + Intercept.
type Model struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	N         int     `json:"n"`
}

// Fit runs an ordinary least-squares fit over expenses indexed 1..N.
func Fit(expenses []float64) (Model, error) {
	n := len(expenses)
	if n < 2 {
		return Model{}, fmt.Errorf("%w: need at least 2 periods, have %d", core.ErrInsufficientData, n)
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	intercept, slope := stat.LinearRegression(xs, expenses, nil, false)
	return Model{Slope: slope, Intercept: intercept, N: n}, nil
}

// Predict evaluates the line at index.
func (m Model) Predict(index int) float64 {
	return m.Slope*float64(index) + m.Intercept
}

// Next is the one-step-ahead forecast, at index N+1.
func (m Model) Next() float64 {
	return m.Predict(m.N + 1)
}

// Fitted evaluates the line at every historical index.
func (m Model) Fitted() []float64 {
	out := make([]float64, m.N)
	for i := range out {
		out[i] = m.Predict(i + 1)
	}
	return out
}

// HealthScore maps predicted expense against average income to [0, 100].
func HealthScore(predictedExpense, avgIncome float64) float64 {
	if avgIncome <= 0 {
		return 0
	}
	score := 100 - 100*predictedExpense/avgIncome
	return math.Min(100, math.Max(0, score))
}

// SuggestedSavings is what remains of the average income after the predicted expense.
func SuggestedSavings(avgIncome, predictedExpense float64) float64 {
	return math.Max(0, avgIncome-predictedExpense)
}

// Band is the gauge colour range a health score falls in.
type Band string

const (
	BandRed    Band = "red"
	BandYellow Band = "yellow"
	BandGreen  Band = "green"
)

// BandFor classifies a health score: red below 50, yellow below 80, green otherwise.
func BandFor(score float64) Band {
	switch {
	case score < 50:
		return BandRed
	case score < 80:
		return BandYellow
	default:
		return BandGreen
	}
}
