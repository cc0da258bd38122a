package sluice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// -----------------------------------------------------------------------------
// Fetcher
// -----------------------------------------------------------------------------

// Fetcher materializes source partitions for a month range, persisting each
// fetched file into a local cache keyed by category and year.
//
// Fetching is fully sequential: one blocking retrieval per partition, in
// chronological order. A single partition failure never aborts the range
// fetch; it is recorded in the report and iteration continues.
type Fetcher struct {
	source Source
	cache  Store
	logger *slog.Logger
}

// NewFetcher creates a fetcher over the given source and cache.
//
// Use option functions to override defaults:
//   - WithLogger(l) to log per-partition failures (default: discard)
func NewFetcher(source Source, cache Store, opts ...Option) (*Fetcher, error) {
	if source == nil {
		return nil, errors.New("sluice: source is required")
	}
	if cache == nil {
		return nil, errors.New("sluice: cache store is required")
	}

	cfg := &fetcherConfig{
		logger: discardLogger(),
	}
	for _, opt := range opts {
		if err := opt.applyFetcher(cfg); err != nil {
			return nil, fmt.Errorf("sluice: %w", err)
		}
	}

	return &Fetcher{
		source: source,
		cache:  cache,
		logger: cfg.logger,
	}, nil
}

// Fetch retrieves one partition per (month, category) pair in the range and
// persists each to the cache. Partitions that cannot be retrieved or
// persisted are recorded as failures; the returned error is reserved for an
// invalid range (which fails fast, before any I/O).
func (f *Fetcher) Fetch(ctx context.Context, r MonthRange, categories []string) (*FetchReport, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	report := &FetchReport{}
	for key := range r.Keys(categories) {
		data, err := f.source.Fetch(ctx, key)
		if err != nil {
			report.Failures = append(report.Failures, fetchFailure(key, err))
			f.logger.Warn("partition fetch failed",
				slog.String("partition", key.String()),
				slog.Any("error", err))
			continue
		}

		cachePath := key.CachePath()
		if err := f.cache.Put(ctx, cachePath, bytes.NewReader(data)); err != nil {
			report.Failures = append(report.Failures, FetchFailure{Key: key, Err: err})
			f.logger.Warn("partition cache write failed",
				slog.String("partition", key.String()),
				slog.Any("error", err))
			continue
		}

		report.Partitions = append(report.Partitions, Partition{
			Key:   key,
			Bytes: data,
			Path:  cachePath,
		})
		f.logger.Info("partition fetched",
			slog.String("partition", key.String()),
			slog.Int("bytes", len(data)))
	}

	return report, nil
}

// fetchFailure builds a failure record, extracting the HTTP status when the
// cause was a bad response.
func fetchFailure(key PartitionKey, err error) FetchFailure {
	failure := FetchFailure{Key: key, Err: err}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		failure.StatusCode = statusErr.Code
	}
	return failure
}
