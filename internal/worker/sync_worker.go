package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/sheets"
	"bilancio/internal/storage"
)

// SyncWorker mirrors stored periods into the export sheet.
type SyncWorker struct {
	store    storage.PeriodStore
	exporter sheets.PeriodExporter
}

func NewSyncWorker(store storage.PeriodStore, exporter sheets.PeriodExporter) *SyncWorker {
	return &SyncWorker{
		store:    store,
		exporter: exporter,
	}
}

// HandlePeriodSaved processes one period saved message from AMQP.
// The message only names the period; the stored record is what gets exported.
func (w *SyncWorker) HandlePeriodSaved(ctx context.Context, msg *amqp.PeriodSavedMessage) error {
	slog.InfoContext(ctx, "Processing period saved message",
		"period_id", msg.PeriodID,
		"message_id", msg.MessageID)

	err := w.ExportPeriod(ctx, msg.PeriodID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		// nothing to export; redelivery would not help
		slog.WarnContext(ctx, "Period in message not found in storage, skipping",
			"period_id", msg.PeriodID)
		return nil
	case errors.Is(err, core.ErrMalformedRecord):
		slog.ErrorContext(ctx, "Period in message is malformed, skipping",
			"period_id", msg.PeriodID, "error", err)
		return nil
	}
	return err
}

// ExportPeriod loads one period and writes it to the sheet.
func (w *SyncWorker) ExportPeriod(ctx context.Context, id string) error {
	p, err := w.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get period from storage: %w", err)
	}

	if err := w.exporter.ExportPeriod(ctx, p, core.ComputeTotals(p)); err != nil {
		return fmt.Errorf("export period %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Period exported", "period_id", id)
	return nil
}

// ResyncAll exports every stored period. Failures do not stop the pass;
// it returns the number exported and the joined errors.
func (w *SyncWorker) ResyncAll(ctx context.Context) (int, error) {
	ids, err := w.store.ListPeriodIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list periods: %w", err)
	}

	var (
		exported int
		errs     []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		if err := w.ExportPeriod(ctx, id); err != nil {
			slog.WarnContext(ctx, "Resync of period failed", "period_id", id, "error", err)
			errs = append(errs, err)
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Resync completed",
		"total", len(ids),
		"exported", exported,
		"failed", len(errs))
	return exported, errors.Join(errs...)
}
