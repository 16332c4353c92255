package memory

import (
	"context"
	"fmt"
	"sync"

	"bilancio/internal/core"
	ports "bilancio/internal/sheets"
)

// Row is one exported period as the sheet would hold it.
type Row struct {
	Period core.Period
	Totals core.Totals
}

// Exporter keeps exported rows in memory, ordered by first export.
type Exporter struct {
	mu    sync.Mutex
	order []string
	rows  map[string]Row
	err   error
}

var _ ports.PeriodExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{rows: map[string]Row{}}
}

// FailWith makes every following export return err; nil restores normal behaviour.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *Exporter) ExportPeriod(_ context.Context, p core.Period, totals core.Totals) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	if p.ID == "" {
		return fmt.Errorf("export period: %w", core.ErrInvalidPeriodID)
	}
	if _, ok := e.rows[p.ID]; !ok {
		e.order = append(e.order, p.ID)
	}
	e.rows[p.ID] = Row{Period: p.Clone(), Totals: totals}
	return nil
}

// Rows returns the exported rows in sheet order.
func (e *Exporter) Rows() []Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Row, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.rows[id])
	}
	return out
}
