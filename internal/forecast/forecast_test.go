package forecast

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
)

func TestFit_InsufficientData(t *testing.T) {
	for _, h := range [][]float64{nil, {}, {100}} {
		_, err := Fit(h)
		assert.ErrorIs(t, err, core.ErrInsufficientData)
	}
}

func TestFit_TwoPoints(t *testing.T) {
	m, err := Fit([]float64{600, 800})
	require.NoError(t, err)
	assert.InDelta(t, 200, m.Slope, 1e-9)
	assert.InDelta(t, 400, m.Intercept, 1e-9)
	assert.InDelta(t, 1000, m.Next(), 1e-9)
	assert.InDeltaSlice(t, []float64{600, 800}, m.Fitted(), 1e-9)
}

func TestFit_WithThirdValue(t *testing.T) {
	m, err := Fit([]float64{100, 200, 150})
	require.NoError(t, err)
	// x̄=2, ȳ=150, slope = Σ(x-x̄)(y-ȳ)/Σ(x-x̄)² = (50+0)/2 = 25
	assert.InDelta(t, 25, m.Slope, 1e-9)
	assert.InDelta(t, 100, m.Intercept, 1e-9)
	assert.InDelta(t, 200, m.Predict(4), 1e-9)
}

func TestHealthScore(t *testing.T) {
	cases := []struct {
		pred, avg, want float64
	}{
		{1000, 1000, 0},
		{500, 1000, 50},
		{1500, 1000, 0},
		{100, 0, 0},
		{100, -5, 0},
		{-100, 1000, 100},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, HealthScore(tc.pred, tc.avg), 1e-9, "pred=%v avg=%v", tc.pred, tc.avg)
	}
}

func TestSuggestedSavingsAndBand(t *testing.T) {
	assert.Equal(t, 0.0, SuggestedSavings(1000, 1200))
	assert.Equal(t, 250.0, SuggestedSavings(1000, 750))

	assert.Equal(t, BandRed, BandFor(0))
	assert.Equal(t, BandYellow, BandFor(50))
	assert.Equal(t, BandYellow, BandFor(79.9))
	assert.Equal(t, BandGreen, BandFor(80))
}

func TestAnalyze_EndToEndFigures(t *testing.T) {
	history := []core.HistoryEntry{
		{PeriodID: "2025_January", Income: decimal.NewFromInt(1000), Expense: decimal.NewFromInt(600)},
		{PeriodID: "2025_February", Income: decimal.NewFromInt(1000), Expense: decimal.NewFromInt(800)},
	}
	in, err := Analyze(history)
	require.NoError(t, err)
	assert.Equal(t, 3, in.NextIndex)
	assert.InDelta(t, 1000, in.PredictedExpense, 1e-9)
	assert.InDelta(t, 1000, in.AverageIncome, 1e-9)
	assert.InDelta(t, 0, in.HealthScore, 1e-9)
	assert.InDelta(t, 0, in.SuggestedSavings, 1e-9)
	assert.Equal(t, BandRed, in.Band)
	assert.Equal(t, []string{"2025_January", "2025_February"}, in.Periods)

	_, err = Analyze(history[:1])
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}
