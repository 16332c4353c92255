package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/currency"
	"bilancio/internal/forecast"
	"bilancio/internal/report"
	"bilancio/internal/storage"
)

// RateSource looks up exchange rates. Lookups never fail; a fallback result
// carries the identity rate and the cause.
type RateSource interface {
	Rate(ctx context.Context, base, target string) currency.Result
}

// PeriodReport is one period converted into the display currency.
type PeriodReport struct {
	PeriodID string                     `json:"period_id"`
	Currency string                     `json:"currency"`
	Rate     decimal.Decimal            `json:"rate"`
	Warning  string                     `json:"warning,omitempty"`
	Totals   core.Totals                `json:"totals"`
	Budget   core.Budget                `json:"budget"`
	Comment  string                     `json:"comment"`
	Incomes  map[string]decimal.Decimal `json:"incomes"`
	Expenses map[string]decimal.Decimal `json:"expenses"`
	Sankey   report.Sankey              `json:"sankey"`
	Bars     report.Bars                `json:"bars"`
}

// TrendReport is the converted history of every saved period.
type TrendReport struct {
	Currency string              `json:"currency"`
	Rate     decimal.Decimal     `json:"rate"`
	Warning  string              `json:"warning,omitempty"`
	History  []core.HistoryEntry `json:"history"`
	Chart    report.Trend        `json:"chart"`
}

// InsightsReport is the forecast over every saved period, in base currency.
type InsightsReport struct {
	Insights forecast.Insights     `json:"insights"`
	Charts   report.ForecastCharts `json:"charts"`
}

// ReportService aggregates stored periods into reports.
type ReportService struct {
	store storage.PeriodStore
	rates RateSource
	cats  core.Categories
	base  string
}

func NewReportService(store storage.PeriodStore, rates RateSource, cats core.Categories, baseCurrency string) *ReportService {
	return &ReportService{
		store: store,
		rates: rates,
		cats:  cats,
		base:  baseCurrency,
	}
}

func (s *ReportService) BaseCurrency() string {
	return s.base
}

// History returns one entry per id, in the order given. A period that was
// never saved reads as zero income and expense; a malformed one aborts.
func (s *ReportService) History(ctx context.Context, ids []string) ([]core.HistoryEntry, error) {
	out := make([]core.HistoryEntry, 0, len(ids))
	for _, id := range ids {
		p, err := s.store.Get(ctx, id)
		switch {
		case errors.Is(err, core.ErrNotFound):
			slog.WarnContext(ctx, "Period missing from history, counting as zero", "period_id", id)
			out = append(out, core.HistoryEntry{PeriodID: id, Income: decimal.Zero, Expense: decimal.Zero})
			continue
		case err != nil:
			return nil, fmt.Errorf("history %s: %w", id, err)
		}
		t := core.ComputeTotals(p)
		out = append(out, core.HistoryEntry{PeriodID: id, Income: t.Income, Expense: t.Expense})
	}
	return out, nil
}

// PeriodReport builds the report of one period in the target currency.
// An empty target means the base currency.
func (s *ReportService) PeriodReport(ctx context.Context, id, target string) (PeriodReport, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return PeriodReport{}, fmt.Errorf("period report %s: %w", id, err)
	}

	rate := s.rate(ctx, target)
	converted := p.WithAllCategories(s.cats).Scale(rate.Rate)
	totals := core.ComputeTotals(p).Scale(rate.Rate)
	goal := p.BudgetGoal.Mul(rate.Rate)

	return PeriodReport{
		PeriodID: p.ID,
		Currency: rate.Target,
		Rate:     rate.Rate,
		Warning:  rate.Warning(),
		Totals:   totals,
		Budget:   core.BudgetStatus(totals.Expense, goal),
		Comment:  p.Comment,
		Incomes:  converted.Incomes,
		Expenses: converted.Expenses,
		Sankey:   report.SankeyFor(converted, s.cats),
		Bars:     report.CategoryBars(converted, s.cats),
	}, nil
}

// Trend returns the history of every saved period in the target currency.
func (s *ReportService) Trend(ctx context.Context, target string) (TrendReport, error) {
	ids, err := s.store.ListPeriodIDs(ctx)
	if err != nil {
		return TrendReport{}, fmt.Errorf("list periods: %w", err)
	}
	history, err := s.History(ctx, ids)
	if err != nil {
		return TrendReport{}, err
	}

	rate := s.rate(ctx, target)
	for i := range history {
		history[i].Income = history[i].Income.Mul(rate.Rate)
		history[i].Expense = history[i].Expense.Mul(rate.Rate)
	}

	return TrendReport{
		Currency: rate.Target,
		Rate:     rate.Rate,
		Warning:  rate.Warning(),
		History:  history,
		Chart:    report.TrendSeries(history),
	}, nil
}

// Insights fits the expense history in listing order. It returns
// core.ErrInsufficientData when fewer than two periods are saved.
func (s *ReportService) Insights(ctx context.Context) (InsightsReport, error) {
	ids, err := s.store.ListPeriodIDs(ctx)
	if err != nil {
		return InsightsReport{}, fmt.Errorf("list periods: %w", err)
	}
	history, err := s.History(ctx, ids)
	if err != nil {
		return InsightsReport{}, err
	}
	in, err := forecast.Analyze(history)
	if err != nil {
		return InsightsReport{}, err
	}
	return InsightsReport{Insights: in, Charts: report.ForecastChartsFor(in)}, nil
}

func (s *ReportService) rate(ctx context.Context, target string) currency.Result {
	if target == "" {
		target = s.base
	}
	return s.rates.Rate(ctx, s.base, target)
}
