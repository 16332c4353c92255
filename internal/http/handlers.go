package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/core"
	"bilancio/internal/currency"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
)

// periodView is a stored period with its derived figures.
type periodView struct {
	Period core.Period `json:"period"`
	Totals core.Totals `json:"totals"`
	Budget core.Budget `json:"budget"`
}

func newPeriodView(p core.Period) periodView {
	t := core.ComputeTotals(p)
	return periodView{Period: p, Totals: t, Budget: core.BudgetStatus(t.Expense, p.BudgetGoal)}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the store answers within a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if _, err := s.periods.List(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
		s.logger.ErrorContext(ctx, "Readiness check failed",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldError, err)
	} else {
		checks["storage"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Payload(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	writeMetric(w, "periods_saved_total", "counter", "Periods saved through the API", atomic.LoadInt64(&s.appMetrics.periodsSaved))
	writeMetric(w, "conversion_fallbacks_total", "counter", "Reports served at identity rate", atomic.LoadInt64(&s.appMetrics.conversionFallback))
	writeMetric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)

	if s.caches != nil {
		sizes := s.caches.Sizes()
		names := make([]string, 0, len(sizes))
		for name := range sizes {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n")
		fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
		for _, name := range names {
			fmt.Fprintf(w, "cache_entries{name=%q} %d\n", name, sizes[name])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}

// handleConfig tells the client which categories and currencies exist.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	OK(struct {
		Categories   core.Categories     `json:"categories"`
		Currencies   []currency.Currency `json:"currencies"`
		BaseCurrency string              `json:"base_currency"`
	}{
		Categories:   s.periods.Categories(),
		Currencies:   s.currencies,
		BaseCurrency: s.reports.BaseCurrency(),
	}).Write(w)
}

func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	ids, err := s.periods.List(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	OK(map[string][]string{"periods": ids}).Write(w)
}

func (s *Server) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := s.periods.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	OK(newPeriodView(p)).Write(w)
}

// handleSavePeriod replaces the period stored under the URL id.
func (s *Server) handleSavePeriod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	form, err := ParsePeriodBody(w, r)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, err.Error()).Write(w)
			return
		}
		BadRequestError(err.Error()).Write(w)
		return
	}

	p, err := form.ToPeriod(id)
	if err != nil {
		s.fail(w, r, applog.OpValidate, err)
		return
	}

	saved, err := s.periods.Save(r.Context(), p)
	if err != nil {
		s.fail(w, r, applog.OpUpsert, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.periodsSaved, 1)
	view := newPeriodView(saved)
	s.events.LogPeriodSaved(r.Context(), saved.ID, view.Totals.Income.String(), view.Totals.Expense.String())
	OK(view).Write(w)
}

func (s *Server) handlePeriodReport(w http.ResponseWriter, r *http.Request) {
	target, err := currencyParam(r, s.currencies)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	id := chi.URLParam(r, "id")
	rep, err := s.reports.PeriodReport(r.Context(), id, target)
	if err != nil {
		s.fail(w, r, applog.OpReport, err)
		return
	}
	s.noteFallback(r.Context(), id, rep.Currency, rep.Warning)
	OK(rep).Write(w)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	target, err := currencyParam(r, s.currencies)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	rep, err := s.reports.Trend(r.Context(), target)
	if err != nil {
		s.fail(w, r, applog.OpReport, err)
		return
	}
	s.noteFallback(r.Context(), "", rep.Currency, rep.Warning)
	OK(rep).Write(w)
}

// handleInsights answers 200 in both cases: too little history is a
// normal state for a new user, not an error.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Insights(r.Context())
	if errors.Is(err, core.ErrInsufficientData) {
		OK(map[string]string{
			"status":  "insufficient_data",
			"message": "at least two saved periods are needed for a forecast",
		}).Write(w)
		return
	}
	if err != nil {
		s.fail(w, r, applog.OpForecast, err)
		return
	}

	OK(struct {
		Status string `json:"status"`
		services.InsightsReport
	}{Status: "ok", InsightsReport: rep}).Write(w)
}

func (s *Server) noteFallback(ctx context.Context, periodID, target, warning string) {
	if warning == "" {
		return
	}
	atomic.AddInt64(&s.appMetrics.conversionFallback, 1)
	s.events.LogConversionFallback(ctx, periodID, target, errors.New(warning))
}

// fail writes the response for err and logs it. Server-side failures are
// logged at error level, caller mistakes at debug.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	logger := applog.FromContext(r.Context())

	switch {
	case errors.Is(err, core.ErrMalformedRecord):
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Malformed period record", err,
			applog.ComponentHTTP, op, applog.NewFields().WithErrorType(applog.ErrorTypeMalformed))
	case resp.statusCode >= http.StatusInternalServerError:
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err,
			applog.ComponentHTTP, op, applog.NewFields().WithErrorType(applog.ErrorTypeInternal))
	default:
		logger.DebugContext(r.Context(), "Request rejected",
			applog.FieldOperation, op,
			applog.FieldError, err)
	}
	resp.Write(w)
}
