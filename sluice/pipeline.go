package sluice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config is the caller-supplied surface for a pipeline run. All values come
// from the caller; the pipeline reads no environment variables.
type Config struct {
	// Range is the inclusive month range to fetch.
	Range MonthRange

	// Categories is the set of dataset categories to fetch per month.
	Categories []string

	// CacheRoot is the local directory fetched partitions are persisted to.
	CacheRoot string

	// OutDir is the directory export artifacts and manifests are written to.
	OutDir string

	// ChunkRows is the number of rows serialized per chunk.
	ChunkRows int

	// LimitBytes is the byte ceiling for each export artifact.
	LimitBytes int64
}

// Validate reports configuration mistakes. It runs before any I/O: an
// invalid range or a non-positive budget is a programming error, not a
// runtime condition.
func (c Config) Validate() error {
	if err := c.Range.validate(); err != nil {
		return err
	}
	if len(c.Categories) == 0 {
		return errors.New("sluice: at least one category is required")
	}
	if c.CacheRoot == "" {
		return errors.New("sluice: cache root is required")
	}
	if c.OutDir == "" {
		return errors.New("sluice: output directory is required")
	}
	return c.Budget().Validate()
}

// Budget returns the export budget the configuration describes.
func (c Config) Budget() ExportBudget {
	return ExportBudget{LimitBytes: c.LimitBytes, ChunkRows: c.ChunkRows}
}

// -----------------------------------------------------------------------------
// Pipeline
// -----------------------------------------------------------------------------

// RunResult is the outcome for one partition: where the artifact and its
// manifest landed, the export accounting, and the publish locator if the
// artifact was shipped.
type RunResult struct {
	Key          PartitionKey
	Export       ExportResult
	OutputPath   string
	ManifestPath string
	Locator      string

	// Err is set when the partition could not be loaded, exported, or
	// published. The other fields still carry whatever was accomplished.
	Err error
}

// RunReport aggregates a whole pipeline run. Partial completion is always
// observable here: fetch failures, truncated exports, and publish errors all
// appear explicitly.
type RunReport struct {
	Failures []FetchFailure
	Exports  []RunResult
}

// Pipeline drives the whole flow sequentially: fetch the range, load each
// partition into a table, export a size-capped artifact, publish it.
//
// The design assumes a single caller driving the pipeline start-to-finish;
// nothing here is safe for concurrent use against shared directories.
type Pipeline struct {
	cfg       Config
	fetcher   *Fetcher
	exporter  *Exporter
	publisher Publisher
	logger    *slog.Logger
}

// NewPipeline creates a pipeline over the given source and cache store.
// Configuration is validated here, before any I/O happens.
//
// Use option functions to override defaults:
//   - WithLogger(l) for run progress and failures (default: discard)
//   - WithPublisher(p) to ship artifacts after export (default: none)
func NewPipeline(cfg Config, source Source, cache Store, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pcfg := &pipelineConfig{
		logger: discardLogger(),
	}
	for _, opt := range opts {
		if err := opt.applyPipeline(pcfg); err != nil {
			return nil, fmt.Errorf("sluice: %w", err)
		}
	}

	fetcher, err := NewFetcher(source, cache, WithLogger(pcfg.logger))
	if err != nil {
		return nil, err
	}
	exporter, err := NewExporter(WithLogger(pcfg.logger))
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:       cfg,
		fetcher:   fetcher,
		exporter:  exporter,
		publisher: pcfg.publisher,
		logger:    pcfg.logger,
	}, nil
}

// Run executes the pipeline: one fetch pass over the range, then one bounded
// export (and optional publish) per fetched partition. Per-partition problems
// are recorded in the report and never abort the run; the returned error is
// reserved for being unable to create the output directory.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	if err := os.MkdirAll(p.cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("sluice: create output directory: %w", err)
	}

	fetchReport, err := p.fetcher.Fetch(ctx, p.cfg.Range, p.cfg.Categories)
	if err != nil {
		return nil, err
	}

	report := &RunReport{Failures: fetchReport.Failures}
	for _, partition := range fetchReport.Partitions {
		report.Exports = append(report.Exports, p.exportPartition(ctx, partition))
	}
	return report, nil
}

// exportPartition loads one partition, exports it under the budget, writes
// the manifest sidecar, and publishes the artifact when a publisher is set.
func (p *Pipeline) exportPartition(ctx context.Context, partition Partition) RunResult {
	result := RunResult{Key: partition.Key}

	table, err := LoadParquet(partition.Bytes)
	if err != nil {
		result.Err = fmt.Errorf("sluice: load %s: %w", partition.Key, err)
		result.Export.Status = StatusFailed
		p.logger.Error("partition load failed",
			slog.String("partition", partition.Key.String()),
			slog.Any("error", err))
		return result
	}

	artifactName := strings.TrimSuffix(partition.Key.FileName(), ".parquet") + ".csv"
	result.OutputPath = filepath.Join(p.cfg.OutDir, artifactName)

	sink, err := CreateFileSink(result.OutputPath)
	if err != nil {
		result.Err = fmt.Errorf("sluice: create sink: %w", err)
		result.Export.Status = StatusFailed
		return result
	}

	budget := p.cfg.Budget()
	result.Export, err = p.exporter.Export(table, sink, budget)
	if closeErr := sink.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("sluice: close sink: %w", closeErr)
	}
	if err != nil {
		result.Err = err
		return result
	}

	p.logger.Info("partition exported",
		slog.String("partition", partition.Key.String()),
		slog.String("status", result.Export.Status.String()),
		slog.Int("rows_written", result.Export.RowsWritten),
		slog.Int("total_rows", result.Export.TotalRows),
		slog.Int64("size_bytes", result.Export.SizeBytes))

	manifest := NewManifest(partition.Key, result.Export, budget)

	if p.publisher != nil {
		locator, pubErr := p.publisher.Publish(ctx, result.OutputPath)
		if pubErr != nil {
			result.Err = fmt.Errorf("sluice: publish %s: %w", partition.Key, pubErr)
			p.logger.Error("artifact publish failed",
				slog.String("partition", partition.Key.String()),
				slog.Any("error", pubErr))
		} else {
			result.Locator = locator
			manifest.Locator = locator
			p.logger.Info("artifact published",
				slog.String("partition", partition.Key.String()),
				slog.String("locator", locator))
		}
	}

	result.ManifestPath = strings.TrimSuffix(result.OutputPath, ".csv") + ".manifest.json"
	if err := WriteManifest(result.ManifestPath, manifest); err != nil {
		result.ManifestPath = ""
		if result.Err == nil {
			result.Err = fmt.Errorf("sluice: write manifest: %w", err)
		}
	}

	return result
}
