// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of period bodies. A period may arrive as
// JSON or as a form post where every amount is keyed "income.<Category>"
// or "expense.<Category>".

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// maxBodyBytes bounds a period body; a month never needs more.
const maxBodyBytes = 64 << 10

const (
	incomePrefix  = "income."
	expensePrefix = "expense."
)

var errBodyTooLarge = errors.New("request body too large")

// PeriodForm is a period as entered by the client, amounts still as text.
type PeriodForm struct {
	Incomes    map[string]string
	Expenses   map[string]string
	Comment    string
	BudgetGoal string
}

// periodJSON accepts amounts as JSON strings or numbers.
type periodJSON struct {
	Incomes    map[string]amountText `json:"incomes"`
	Expenses   map[string]amountText `json:"expenses"`
	Comment    string                `json:"comment"`
	BudgetGoal amountText            `json:"budget_goal"`
}

type amountText string

func (a *amountText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number: %w", err)
	}
	*a = amountText(n.String())
	return nil
}

// ParsePeriodBody reads a JSON or form-encoded period body. Category names
// and the comment are sanitized; amounts are left for ToPeriod.
func ParsePeriodBody(w http.ResponseWriter, r *http.Request) (PeriodForm, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return PeriodForm{}, errBodyTooLarge
		}
		return PeriodForm{}, fmt.Errorf("read body: %w", err)
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		return parsePeriodJSON(body)
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return PeriodForm{}, fmt.Errorf("parse form: %w", err)
	}
	return parsePeriodValues(values), nil
}

func parsePeriodJSON(body []byte) (PeriodForm, error) {
	var in periodJSON
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return PeriodForm{}, fmt.Errorf("parse JSON: %w", err)
	}

	form := PeriodForm{
		Incomes:    make(map[string]string, len(in.Incomes)),
		Expenses:   make(map[string]string, len(in.Expenses)),
		Comment:    sanitizeInput(in.Comment),
		BudgetGoal: string(in.BudgetGoal),
	}
	for k, v := range in.Incomes {
		form.Incomes[sanitizeInput(k)] = string(v)
	}
	for k, v := range in.Expenses {
		form.Expenses[sanitizeInput(k)] = string(v)
	}
	return form, nil
}

func parsePeriodValues(values url.Values) PeriodForm {
	form := PeriodForm{
		Incomes:    make(map[string]string),
		Expenses:   make(map[string]string),
		Comment:    sanitizeInput(values.Get("comment")),
		BudgetGoal: values.Get("budget_goal"),
	}
	for key := range values {
		switch {
		case strings.HasPrefix(key, incomePrefix):
			form.Incomes[sanitizeInput(strings.TrimPrefix(key, incomePrefix))] = values.Get(key)
		case strings.HasPrefix(key, expensePrefix):
			form.Expenses[sanitizeInput(strings.TrimPrefix(key, expensePrefix))] = values.Get(key)
		}
	}
	return form
}

// ToPeriod parses every amount. A bad amount is reported with its field
// and wraps core.ErrInvalidAmount or core.ErrNegativeAmount.
func (f PeriodForm) ToPeriod(id string) (core.Period, error) {
	p := core.Period{
		ID:       id,
		Incomes:  make(map[string]decimal.Decimal, len(f.Incomes)),
		Expenses: make(map[string]decimal.Decimal, len(f.Expenses)),
		Comment:  f.Comment,
	}

	for name, raw := range f.Incomes {
		v, err := core.ParseAmount(raw)
		if err != nil {
			return core.Period{}, fmt.Errorf("income %s: %w", strconv.Quote(name), err)
		}
		p.Incomes[name] = v
	}
	for name, raw := range f.Expenses {
		v, err := core.ParseAmount(raw)
		if err != nil {
			return core.Period{}, fmt.Errorf("expense %s: %w", strconv.Quote(name), err)
		}
		p.Expenses[name] = v
	}

	goal, err := core.ParseAmount(f.BudgetGoal)
	if err != nil {
		return core.Period{}, fmt.Errorf("budget goal: %w", err)
	}
	p.BudgetGoal = goal
	return p, nil
}
