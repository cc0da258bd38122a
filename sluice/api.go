// Package sluice prepares size-bounded tabular exports from a larger
// time-partitioned source dataset.
//
// Sluice focuses on the sequential export pipeline: fetching one source file
// per monthly partition, serializing an in-memory table to a sink in fixed-size
// row chunks under a byte budget, and accounting for how much of the table was
// actually emitted. Publishing the artifact to an object store is delegated to
// a Publisher (see the s3 subpackage).
package sluice

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// -----------------------------------------------------------------------------
// Core types
// -----------------------------------------------------------------------------

// Partition holds one fetched source file.
//
// Bytes is the raw remote content; Path is the location within the local cache
// where the same bytes were persisted. A Partition's lifecycle ends once it is
// loaded into a Table.
type Partition struct {
	// Key identifies the (category, year, month) this partition covers.
	Key PartitionKey

	// Bytes is the raw fetched content.
	Bytes []byte

	// Path is the cache-relative location the content was persisted to.
	Path string
}

// FetchFailure records a single partition that could not be retrieved.
//
// A failure never aborts the surrounding range fetch; it is surfaced only as
// an entry in the FetchReport.
type FetchFailure struct {
	// Key identifies the partition that failed.
	Key PartitionKey

	// StatusCode is the HTTP status that caused the failure, or 0 when the
	// failure was a transport or cache error rather than a bad response.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// FetchReport is the outcome of a range fetch: the partitions that were
// retrieved plus a record for every partition that was not.
type FetchReport struct {
	Partitions []Partition
	Failures   []FetchFailure
}

// -----------------------------------------------------------------------------
// Export budget and result
// -----------------------------------------------------------------------------

// ExportBudget bounds a single export call.
type ExportBudget struct {
	// LimitBytes is the byte ceiling. The exporter stops emitting further
	// chunks once the sink's cumulative size reaches or exceeds it.
	LimitBytes int64

	// ChunkRows is the number of rows serialized per chunk.
	ChunkRows int
}

// Validate reports whether the budget is usable. Both fields must be positive.
func (b ExportBudget) Validate() error {
	if b.LimitBytes <= 0 {
		return fmt.Errorf("sluice: %w (limit bytes must be positive)", ErrInvalidBudget)
	}
	if b.ChunkRows <= 0 {
		return fmt.Errorf("sluice: %w (chunk rows must be positive)", ErrInvalidBudget)
	}
	return nil
}

// ExportStatus classifies the outcome of an export call.
type ExportStatus int

// Export outcomes. Partial completion is a first-class result, not an error:
// callers detect truncation by comparing RowsWritten against TotalRows or by
// checking for StatusPartial.
const (
	// StatusComplete means every table row was written.
	StatusComplete ExportStatus = iota

	// StatusPartial means the size budget stopped the export before all rows
	// were written.
	StatusPartial

	// StatusFailed means an I/O failure interrupted the export. The result
	// still reports the rows written before the failure.
	StatusFailed
)

func (s ExportStatus) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ExportResult is the accounting for one export call.
type ExportResult struct {
	// RowsWritten is the end index of the last chunk written to the sink.
	RowsWritten int

	// TotalRows is the table's full row count.
	TotalRows int

	// SizeBytes is the sink's last measured cumulative size.
	SizeBytes int64

	// Status classifies the outcome.
	Status ExportStatus
}

// -----------------------------------------------------------------------------
// Collaborator interfaces
// -----------------------------------------------------------------------------

// Source retrieves the raw bytes for one partition.
//
// Implementations perform a single blocking retrieval and do not retry;
// re-runs are the caller's responsibility.
type Source interface {
	Fetch(ctx context.Context, key PartitionKey) ([]byte, error)
}

// Store abstracts the local partition cache.
//
// Put overwrites existing content: re-fetching a partition is idempotent.
type Store interface {
	// Put writes data to the given cache-relative path, creating intermediate
	// directories as needed.
	Put(ctx context.Context, path string, r io.Reader) error

	// Get retrieves data from the given path.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists checks whether a path exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// Sink is an append-only output whose cumulative size can be measured.
//
// The exporter assumes monotonic growth: Size never decreases between chunk
// writes. Concurrent exports against the same sink are unsupported.
type Sink interface {
	io.Writer

	// Size returns the cumulative number of bytes visible in the sink.
	Size() (int64, error)
}

// Publisher ships a finished artifact to a remote store and returns an opaque
// locator string (for example an s3:// URI). The pipeline treats it as a black
// box: a string on success, an error otherwise.
type Publisher interface {
	Publish(ctx context.Context, localPath string) (string, error)
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Error sentinel values for common conditions.
var (
	// ErrNotFound indicates a requested cache path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRange indicates a month range whose start is after its end.
	ErrInvalidRange = errors.New("invalid range: start after end")

	// ErrInvalidBudget indicates an export budget with a non-positive limit
	// or chunk size.
	ErrInvalidBudget = errors.New("invalid budget")

	// ErrInvalidPath indicates a path that would escape the cache root.
	ErrInvalidPath = errors.New("invalid path: escapes cache root")
)
