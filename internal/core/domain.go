package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Period is one month of incomes and expenses, keyed by ID ("2025_January").
	Period struct {
		ID         string                     `json:"period_id"`
		Incomes    map[string]decimal.Decimal `json:"incomes"`
		Expenses   map[string]decimal.Decimal `json:"expenses"`
		Comment    string                     `json:"comment"`
		BudgetGoal decimal.Decimal            `json:"budget_goal"`
		UpdatedAt  time.Time                  `json:"updated_at"`
	}

	// Categories is the closed set of category names a period may carry.
	// Order is the display order.
	Categories struct {
		Incomes  []string `json:"incomes"`
		Expenses []string `json:"expenses"`
	}
)

// Default categories, as offered by the data entry form.
var (
	DefaultIncomeCategories  = []string{"Salary", "Other income"}
	DefaultExpenseCategories = []string{"Rent", "Utilities", "Groceries", "Car", "Other Expenses", "Saving"}
)

var (
	ErrNotFound              = errors.New("period not found")
	ErrMalformedRecord       = errors.New("malformed period record")
	ErrConversionUnavailable = errors.New("currency conversion unavailable")
	ErrInsufficientData      = errors.New("not enough data")

	ErrInvalidPeriodID = errors.New("invalid period id")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrUnknownCategory = errors.New("unknown category")
)

// DefaultCategories returns a copy of the built-in categories.
func DefaultCategories() Categories {
	return Categories{
		Incomes:  append([]string(nil), DefaultIncomeCategories...),
		Expenses: append([]string(nil), DefaultExpenseCategories...),
	}
}

// NewPeriodID builds the storage key for a year and month.
func NewPeriodID(year int, month time.Month) string {
	return strconv.Itoa(year) + "_" + month.String()
}

// ParsePeriodID splits a period id into year and month.
func ParsePeriodID(id string) (int, time.Month, error) {
	yearStr, monthStr, ok := strings.Cut(id, "_")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPeriodID, id)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1 || year > 9999 {
		return 0, 0, fmt.Errorf("%w: bad year in %q", ErrInvalidPeriodID, id)
	}
	for m := time.January; m <= time.December; m++ {
		if m.String() != monthStr {
			continue
		}
		// one spelling per month, so "+2025" or "02025" cannot alias a stored id
		if NewPeriodID(year, m) != id {
			return 0, 0, fmt.Errorf("%w: non-canonical id %q", ErrInvalidPeriodID, id)
		}
		return year, m, nil
	}
	return 0, 0, fmt.Errorf("%w: bad month in %q", ErrInvalidPeriodID, id)
}

// Validate checks the caller-side invariants: a well-formed id, known
// categories and non-negative amounts.
func (p Period) Validate(cats Categories) error {
	if _, _, err := ParsePeriodID(p.ID); err != nil {
		return err
	}
	if err := validateAmounts("income", p.Incomes, cats.Incomes); err != nil {
		return err
	}
	if err := validateAmounts("expense", p.Expenses, cats.Expenses); err != nil {
		return err
	}
	if p.BudgetGoal.IsNegative() {
		return fmt.Errorf("budget goal: %w", ErrNegativeAmount)
	}
	return nil
}

func validateAmounts(kind string, amounts map[string]decimal.Decimal, allowed []string) error {
	for name, v := range amounts {
		if !contains(allowed, name) {
			return fmt.Errorf("%s %q: %w", kind, name, ErrUnknownCategory)
		}
		if v.IsNegative() {
			return fmt.Errorf("%s %q: %w", kind, name, ErrNegativeAmount)
		}
	}
	return nil
}

// WithAllCategories returns a copy where every configured category is present,
// missing ones set to zero.
func (p Period) WithAllCategories(cats Categories) Period {
	out := p.Clone()
	for _, c := range cats.Incomes {
		if _, ok := out.Incomes[c]; !ok {
			out.Incomes[c] = decimal.Zero
		}
	}
	for _, c := range cats.Expenses {
		if _, ok := out.Expenses[c]; !ok {
			out.Expenses[c] = decimal.Zero
		}
	}
	return out
}

// Clone deep-copies the period maps.
func (p Period) Clone() Period {
	out := p
	out.Incomes = cloneAmounts(p.Incomes)
	out.Expenses = cloneAmounts(p.Expenses)
	return out
}

// Scale returns a copy with every amount multiplied by rate.
func (p Period) Scale(rate decimal.Decimal) Period {
	out := p.Clone()
	for k, v := range out.Incomes {
		out.Incomes[k] = v.Mul(rate)
	}
	for k, v := range out.Expenses {
		out.Expenses[k] = v.Mul(rate)
	}
	out.BudgetGoal = p.BudgetGoal.Mul(rate)
	return out
}

func cloneAmounts(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
