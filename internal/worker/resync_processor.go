package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ResyncProcessorConfig holds configuration for the periodic resync.
type ResyncProcessorConfig struct {
	// PollInterval is how often every period is exported again (default: 1h)
	PollInterval time.Duration

	// MaxRetries is how many consecutive failed passes are logged as
	// warnings before they are escalated to errors (default: 3)
	MaxRetries int
}

func DefaultResyncProcessorConfig() ResyncProcessorConfig {
	return ResyncProcessorConfig{
		PollInterval: time.Hour,
		MaxRetries:   3,
	}
}

// Resyncer exports every stored period.
type Resyncer interface {
	ResyncAll(ctx context.Context) (int, error)
}

// ResyncProcessor runs full resyncs on a ticker. It repairs the sheet when
// period saved messages were lost.
type ResyncProcessor struct {
	worker Resyncer
	config ResyncProcessorConfig

	mu       sync.Mutex
	running  bool
	failures int
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewResyncProcessor(worker Resyncer, config ResyncProcessorConfig) *ResyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultResyncProcessorConfig().PollInterval
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultResyncProcessorConfig().MaxRetries
	}
	return &ResyncProcessor{
		worker: worker,
		config: config,
	}
}

// Start begins the resync loop. Returns an error if already running.
func (p *ResyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("resync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Resync processor started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop signals the loop and waits for the current pass to finish.
func (p *ResyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Resync processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Resync processor stop timed out")
		return ctx.Err()
	}
}

func (p *ResyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// startup check
	p.runOnce(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

// runOnce runs one pass and tracks consecutive failures.
func (p *ResyncProcessor) runOnce(ctx context.Context) {
	exported, err := p.worker.ResyncAll(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err == nil {
		p.failures = 0
		return
	}
	p.failures++
	if p.failures >= p.config.MaxRetries {
		slog.ErrorContext(ctx, "Resync keeps failing",
			"consecutive_failures", p.failures,
			"exported", exported,
			"error", err)
		return
	}
	slog.WarnContext(ctx, "Resync pass failed",
		"attempt", p.failures,
		"exported", exported,
		"error", err)
}

// ConsecutiveFailures reports how many passes in a row have failed.
func (p *ResyncProcessor) ConsecutiveFailures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}
