package sheets

import (
	"context"

	"bilancio/internal/core"
)

// Ports for outbound adapters.
type (
	// PeriodExporter mirrors a saved period into an external sheet.
	// Exporting the same period twice replaces its row.
	PeriodExporter interface {
		ExportPeriod(ctx context.Context, p core.Period, totals core.Totals) error
	}
)
