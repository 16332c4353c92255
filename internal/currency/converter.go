// Package currency looks up exchange rates from an external rate source.
//
// Lookups never fail from the caller's point of view: when the source is
// unreachable, answers with an error status, or lacks the target currency,
// the identity rate 1 is returned and the Result is marked as a fallback so
// the caller can warn the user while still displaying unconverted amounts.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"bilancio/internal/cache"
	"bilancio/internal/core"
)

const DefaultRatesURL = "https://api.exchangerate-api.com/v4/latest"

const defaultFetchTimeout = 10 * time.Second

// Currency is a supported display currency.
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

// DefaultCurrencies are the currencies offered for display.
var DefaultCurrencies = []Currency{
	{Code: "TND", Symbol: "TND"},
	{Code: "USD", Symbol: "$"},
	{Code: "EUR", Symbol: "€"},
}

// Result is the outcome of a rate lookup.
type Result struct {
	Base     string
	Target   string
	Rate     decimal.Decimal
	Fallback bool
	Err      error
}

// Warning returns a user-facing message when the lookup fell back to identity.
func (r Result) Warning() string {
	if !r.Fallback {
		return ""
	}
	return fmt.Sprintf("exchange rate %s->%s unavailable, amounts shown in %s", r.Base, r.Target, r.Base)
}

// Converter fetches and caches rate tables per base currency.
type Converter struct {
	baseURL string
	client  *http.Client
	rates   cache.Cache[map[string]decimal.Decimal]
	group   singleflight.Group
}

type Option func(*Converter)

// WithHTTPClient overrides the client used to reach the rate source.
func WithHTTPClient(c *http.Client) Option {
	return func(cv *Converter) { cv.client = c }
}

// WithCache overrides the rate table cache.
func WithCache(c cache.Cache[map[string]decimal.Decimal]) Option {
	return func(cv *Converter) { cv.rates = c }
}

func NewConverter(baseURL string, opts ...Option) *Converter {
	if baseURL == "" {
		baseURL = DefaultRatesURL
	}
	c := &Converter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultFetchTimeout},
		rates:   cache.NewLRUCache[map[string]decimal.Decimal](16, time.Hour),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RatesCache exposes the rate cache so it can be registered for cleanup.
func (c *Converter) RatesCache() cache.Cache[map[string]decimal.Decimal] {
	return c.rates
}

// Rate returns how many units of target one unit of base is worth.
func (c *Converter) Rate(ctx context.Context, base, target string) Result {
	base = strings.ToUpper(strings.TrimSpace(base))
	target = strings.ToUpper(strings.TrimSpace(target))
	res := Result{Base: base, Target: target, Rate: decimal.NewFromInt(1)}
	if base == target {
		return res
	}

	table, err := c.table(ctx, base)
	if err == nil {
		rate, ok := table[target]
		if ok && rate.IsPositive() {
			res.Rate = rate
			return res
		}
		err = fmt.Errorf("no rate for %s", target)
	}

	res.Fallback = true
	res.Err = fmt.Errorf("%w: %s->%s: %v", core.ErrConversionUnavailable, base, target, err)
	slog.WarnContext(ctx, "Currency conversion skipped, using identity rate",
		"component", "currency",
		"base", base,
		"target", target,
		"error", err)
	return res
}

func (c *Converter) table(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	if t, ok := c.rates.Get(base); ok {
		return t, nil
	}
	// The fetch is shared by every waiting caller, so it must outlive the
	// cancellation of whichever request started it.
	v, err, _ := c.group.Do(base, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout())
		defer cancel()
		t, err := c.fetch(fetchCtx, base)
		if err != nil {
			return nil, err
		}
		c.rates.Set(base, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]decimal.Decimal), nil
}

func (c *Converter) fetchTimeout() time.Duration {
	if c.client != nil && c.client.Timeout > 0 {
		return c.client.Timeout
	}
	return defaultFetchTimeout
}

func (c *Converter) fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	var body struct {
		Rates map[string]decimal.Decimal `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("rate source returned no rates")
	}

	slog.DebugContext(ctx, "Exchange rates fetched", "component", "currency", "base", base, "count", len(body.Rates))
	return body.Rates, nil
}
