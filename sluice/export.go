package sluice

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
)

// -----------------------------------------------------------------------------
// Exporter
// -----------------------------------------------------------------------------

// Exporter serializes tables to delimited text under a byte budget.
//
// The size check is post-hoc: each chunk is written in full and the sink is
// measured afterwards, so the final artifact may exceed the budget by up to
// one chunk's worth of bytes. The budget governs when the exporter stops,
// not a hard upper bound on artifact size.
type Exporter struct {
	logger *slog.Logger
}

// NewExporter creates an exporter.
//
// Use option functions to override defaults:
//   - WithLogger(l) to log truncation and write failures (default: discard)
func NewExporter(opts ...Option) (*Exporter, error) {
	cfg := &exporterConfig{
		logger: discardLogger(),
	}
	for _, opt := range opts {
		if err := opt.applyExporter(cfg); err != nil {
			return nil, fmt.Errorf("sluice: %w", err)
		}
	}
	return &Exporter{logger: cfg.logger}, nil
}

// Export writes the table to the sink in chunks of budget.ChunkRows rows:
// the header exactly once, then chunk after chunk until either the table is
// exhausted or the sink's cumulative size reaches budget.LimitBytes.
//
// The returned result always carries the accounting (rows written vs. total,
// last measured size, typed status), so partial completion is observable even
// when no error is returned. An I/O failure yields StatusFailed together with
// a non-nil error and the best-effort counts up to the failure.
//
// Export is not reentrant against a shared sink.
func (e *Exporter) Export(table *Table, sink Sink, budget ExportBudget) (ExportResult, error) {
	if err := budget.Validate(); err != nil {
		return ExportResult{Status: StatusFailed}, err
	}
	if table == nil {
		return ExportResult{Status: StatusFailed}, errors.New("sluice: table is required")
	}
	if sink == nil {
		return ExportResult{Status: StatusFailed}, errors.New("sluice: sink is required")
	}

	res := ExportResult{TotalRows: table.NumRows()}
	w := csv.NewWriter(sink)

	if err := w.Write(table.Columns()); err != nil {
		return e.fail(res, sink, budget, fmt.Errorf("write header: %w", err))
	}

	for chunk := range table.Chunks(budget.ChunkRows) {
		for _, row := range chunk.Rows {
			if err := w.Write(row); err != nil {
				return e.fail(res, sink, budget, fmt.Errorf("write row: %w", err))
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return e.fail(res, sink, budget, fmt.Errorf("flush chunk: %w", err))
		}

		size, err := sink.Size()
		if err != nil {
			return e.fail(res, sink, budget, fmt.Errorf("measure sink: %w", err))
		}

		res.RowsWritten = chunk.End
		res.SizeBytes = size

		if size >= budget.LimitBytes {
			break
		}
	}

	// Flush covers the empty-table case, where only the header was written.
	w.Flush()
	if err := w.Error(); err != nil {
		return e.fail(res, sink, budget, fmt.Errorf("flush: %w", err))
	}
	size, err := sink.Size()
	if err != nil {
		return e.fail(res, sink, budget, fmt.Errorf("measure sink: %w", err))
	}
	res.SizeBytes = size

	if res.RowsWritten == res.TotalRows {
		res.Status = StatusComplete
		return res, nil
	}

	res.Status = StatusPartial
	e.logger.Info("size budget reached, export truncated",
		slog.Int64("limit_bytes", budget.LimitBytes),
		slog.Int64("size_bytes", res.SizeBytes),
		slog.Int("rows_written", res.RowsWritten),
		slog.Int("total_rows", res.TotalRows))
	return res, nil
}

// fail finalizes a result after an I/O failure: best-effort size measurement,
// StatusFailed, and a wrapped error for the caller.
func (e *Exporter) fail(res ExportResult, sink Sink, budget ExportBudget, err error) (ExportResult, error) {
	if size, sizeErr := sink.Size(); sizeErr == nil {
		res.SizeBytes = size
	}
	res.Status = StatusFailed
	e.logger.Error("export failed",
		slog.Int64("limit_bytes", budget.LimitBytes),
		slog.Int("rows_written", res.RowsWritten),
		slog.Any("error", err))
	return res, fmt.Errorf("sluice: export: %w", err)
}
