package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"bilancio/internal/cache"
	"bilancio/internal/currency"
	applog "bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
)

// Options wires the server to its services.
type Options struct {
	Addr               string
	Periods            *services.PeriodService
	Reports            *services.ReportService
	Currencies         []currency.Currency
	RateLimitPerMinute int
	TrustedProxies     []string

	// Optional
	Logger *applog.Logger
	Caches *cache.Manager
}

// appMetrics tracks application counters exposed on /metrics.
type appMetrics struct {
	periodsSaved       int64
	conversionFallback int64
	uptime             time.Time
}

type Server struct {
	http.Server

	periods    *services.PeriodService
	reports    *services.ReportService
	currencies []currency.Currency
	caches     *cache.Manager

	logger      *applog.Logger
	events      *applog.StructuredLogger
	detector    *security.Detector
	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter
	appMetrics  *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Periods == nil || opts.Reports == nil {
		return nil, errors.New("period and report services are required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background()).WithComponent(applog.ComponentHTTP)
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("trusted proxies: %w", err)
		}
	}

	s := &Server{
		periods:     opts.Periods,
		reports:     opts.Reports,
		currencies:  opts.Currencies,
		caches:      opts.Caches,
		logger:      logger,
		events:      applog.NewStructuredLogger(logger),
		detector:    detector,
		tracer:      trace.NewMiddleware(detector.ExtractClientIP, logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		appMetrics:  &appMetrics{uptime: time.Now()},
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(chimw.Compress(5, "application/json"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such route").Write(w)
	})
	r.MethodNotAllowed(methodNotAllowed(r))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldComponent, applog.ComponentRateLimit,
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", s.handleConfig)
		r.Get("/periods", s.handleListPeriods)
		r.Get("/periods/{id}", s.handleGetPeriod)
		r.With(limit).Put("/periods/{id}", s.handleSavePeriod)
		r.Get("/periods/{id}/report", s.handlePeriodReport)
		r.Get("/trend", s.handleTrend)
		r.Get("/insights", s.handleInsights)
	})

	return r
}

// methodNotAllowed answers 405 with the Allow header listing the methods
// the router does serve for the path.
func methodNotAllowed(router chi.Routes) http.HandlerFunc {
	methods := []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodPatch, http.MethodDelete}
	return func(w http.ResponseWriter, r *http.Request) {
		allowed := make([]string, 0, len(methods))
		for _, m := range methods {
			if router.Match(chi.NewRouteContext(), m, r.URL.Path) {
				allowed = append(allowed, m)
			}
		}
		MethodNotAllowedError(strings.Join(allowed, ", ")).Write(w)
	}
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
