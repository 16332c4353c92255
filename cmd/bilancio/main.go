package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/backend"
	"bilancio/internal/cache"
	"bilancio/internal/cli"
	"bilancio/internal/currency"
	apphttp "bilancio/internal/http"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
)

const (
	cacheSweepInterval = 10 * time.Minute
	shutdownTimeout    = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	rates := cache.NewLRUCache[map[string]decimal.Decimal](32, cfg.RatesCacheTTL)
	caches := cache.NewManager()
	caches.Register("exchange_rates", rates)
	caches.Start(context.Background(), cacheSweepInterval)

	converter := currency.NewConverter(cfg.RatesAPIURL,
		currency.WithHTTPClient(&http.Client{Timeout: cfg.RatesTimeout}),
		currency.WithCache(rates))

	categories := cfg.Categories()
	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Periods:            services.NewPeriodService(res.Store, res.Publisher, categories),
		Reports:            services.NewReportService(res.Store, converter, categories, cfg.BaseCurrency),
		Currencies:         cfg.Currencies,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             applog.New(applog.ConfigFor(os.Stdout, cfg.LogLevel, applog.ComponentHTTP)),
		Caches:             caches,
	})
	if err != nil {
		logger.Error("Failed to configure HTTP server", "error", err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting bilancio server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"base_currency", cfg.BaseCurrency,
		"events", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
