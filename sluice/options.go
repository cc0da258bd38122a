package sluice

import (
	"errors"
	"fmt"
	"log/slog"
)

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

// Option configures Fetcher, Exporter, or Pipeline construction.
// Options implement methods for the constructors they support.
// Using an option with an unsupported constructor returns an error.
type Option interface {
	applyFetcher(*fetcherConfig) error
	applyExporter(*exporterConfig) error
	applyPipeline(*pipelineConfig) error
}

// ErrOptionNotValidForFetcher indicates an option was used with NewFetcher
// that does not apply to fetchers.
var ErrOptionNotValidForFetcher = errors.New("option not valid for fetcher")

// ErrOptionNotValidForExporter indicates an option was used with NewExporter
// that does not apply to exporters.
var ErrOptionNotValidForExporter = errors.New("option not valid for exporter")

type fetcherConfig struct {
	logger *slog.Logger
}

type exporterConfig struct {
	logger *slog.Logger
}

type pipelineConfig struct {
	logger    *slog.Logger
	publisher Publisher
}

// discardLogger is the default when no WithLogger option is given: components
// stay quiet and independently testable without global logger setup.
func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// loggerOption implements Option for WithLogger.
type loggerOption struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for fetch failures, export truncation, and
// pipeline progress. Default: a discard logger.
func WithLogger(l *slog.Logger) Option {
	return &loggerOption{logger: l}
}

func (o *loggerOption) applyFetcher(cfg *fetcherConfig) error {
	cfg.logger = o.logger
	return nil
}

func (o *loggerOption) applyExporter(cfg *exporterConfig) error {
	cfg.logger = o.logger
	return nil
}

func (o *loggerOption) applyPipeline(cfg *pipelineConfig) error {
	cfg.logger = o.logger
	return nil
}

// publisherOption implements Option for WithPublisher (pipeline-only).
type publisherOption struct {
	publisher Publisher
}

// WithPublisher sets the publisher the pipeline ships finished artifacts
// with. Default: none (artifacts stay local).
// This option is only valid for NewPipeline.
func WithPublisher(p Publisher) Option {
	return &publisherOption{publisher: p}
}

func (o *publisherOption) applyFetcher(*fetcherConfig) error {
	return fmt.Errorf("WithPublisher: %w", ErrOptionNotValidForFetcher)
}

func (o *publisherOption) applyExporter(*exporterConfig) error {
	return fmt.Errorf("WithPublisher: %w", ErrOptionNotValidForExporter)
}

func (o *publisherOption) applyPipeline(cfg *pipelineConfig) error {
	cfg.publisher = o.publisher
	return nil
}
