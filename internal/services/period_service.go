package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// Publisher announces saved periods to other processes.
type Publisher interface {
	PublishPeriodSaved(ctx context.Context, periodID string) error
}

// PeriodService validates and persists periods, then publishes a saved event.
type PeriodService struct {
	store     storage.PeriodStore
	publisher Publisher
	cats      core.Categories
}

// NewPeriodService creates the service. publisher may be nil.
func NewPeriodService(store storage.PeriodStore, publisher Publisher, cats core.Categories) *PeriodService {
	return &PeriodService{
		store:     store,
		publisher: publisher,
		cats:      cats,
	}
}

func (s *PeriodService) Categories() core.Categories {
	return s.cats
}

// Save validates p, fills the missing configured categories with zero and
// replaces whatever was stored under p.ID. It returns the stored period.
func (s *PeriodService) Save(ctx context.Context, p core.Period) (core.Period, error) {
	if err := p.Validate(s.cats); err != nil {
		return core.Period{}, err
	}
	p = p.WithAllCategories(s.cats)

	if err := s.store.Upsert(ctx, p); err != nil {
		return core.Period{}, fmt.Errorf("save period %s: %w", p.ID, err)
	}

	slog.DebugContext(ctx, "Period stored",
		"period_id", p.ID,
		"incomes", len(p.Incomes),
		"expenses", len(p.Expenses))

	// the period is stored; a lost event is repaired by the worker's resync
	if err := s.publish(ctx, p.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish period saved message",
			"period_id", p.ID, "error", err)
	}

	return p, nil
}

func (s *PeriodService) publish(ctx context.Context, id string) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping period saved message")
		return nil
	}
	return s.publisher.PublishPeriodSaved(ctx, id)
}

// List returns the saved period ids in first-save order.
func (s *PeriodService) List(ctx context.Context) ([]string, error) {
	ids, err := s.store.ListPeriodIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return ids, nil
}

func (s *PeriodService) Get(ctx context.Context, id string) (core.Period, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Period{}, fmt.Errorf("get period %s: %w", id, err)
	}
	return p, nil
}

// Close closes the store and, when it is closable, the publisher.
func (s *PeriodService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	return errors.Join(errs...)
}
