package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting bilancio-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if backendCfg.Type != backend.SQLiteBackend {
		logger.Error("The worker reads periods saved by the server and needs the sqlite backend",
			"backend", backendCfg.Type.String())
		os.Exit(1)
	}

	// The worker consumes events; it never publishes them.
	storeCfg := backendCfg
	storeCfg.AMQPURL = ""

	factory := backend.NewFactory(logger)
	res, err := factory.CreateBackend(context.Background(), storeCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer func() { _ = res.Cleanup() }()

	exporter, err := factory.CreateExporter(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize exporter", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(res.Store, exporter)
	processor := worker.NewResyncProcessor(syncWorker, worker.ResyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
	})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Resync processor stop error", "error", err)
		}
	})

	// Catch up on anything saved while the worker was down.
	if n, err := syncWorker.ResyncAll(ctx); err != nil {
		logger.Error("Startup resync incomplete", "exported", n, "error", err)
	} else {
		logger.Info("Startup resync complete", "exported", n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumePeriodSaved(gctx, syncWorker.HandlePeriodSaved)
	})
	if err := processor.Start(gctx); err != nil {
		logger.Error("Failed to start resync processor", "error", err)
		os.Exit(1)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
