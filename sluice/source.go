package sluice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// -----------------------------------------------------------------------------
// HTTP Source
// -----------------------------------------------------------------------------

// StatusError indicates a response with a non-200 status. Any status other
// than 200 is a fetch failure for that partition.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// defaultFetchTimeout bounds a single partition retrieval. Partition files
// can run to hundreds of megabytes, so the timeout is generous.
const defaultFetchTimeout = 10 * time.Minute

// HTTPSource retrieves partitions with a single blocking GET per key against
// a fixed base URL plus the deterministic partition file name.
//
// Responses served with Content-Encoding: gzip are transparently decoded;
// the bytes returned are always the uncompressed partition content.
type HTTPSource struct {
	base   string
	client *http.Client
}

// HTTPSourceOption configures HTTPSource behavior.
type HTTPSourceOption func(*HTTPSource)

// WithHTTPClient sets the client used for retrievals.
// Default: a client with a 10 minute timeout.
func WithHTTPClient(c *http.Client) HTTPSourceOption {
	return func(s *HTTPSource) {
		s.client = c
	}
}

// NewHTTPSource creates a Source fetching from the given base URL.
func NewHTTPSource(baseURL string, opts ...HTTPSourceOption) (*HTTPSource, error) {
	if baseURL == "" {
		return nil, errors.New("sluice: base URL is required")
	}

	s := &HTTPSource{
		base:   strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{Timeout: defaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// URL returns the remote resource identifier for a partition key.
func (s *HTTPSource) URL(key PartitionKey) string {
	return s.base + "/" + key.FileName()
}

// Fetch retrieves one partition. Returns a *StatusError for non-200
// responses. No retry is attempted.
func (s *HTTPSource) Fetch(ctx context.Context, key PartitionKey) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("sluice: build request for %s: %w", key, err)
	}
	// Requesting gzip explicitly disables the transport's automatic
	// decompression, so the Content-Encoding header stays visible below.
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sluice: fetch %s: %w", key, err)
	}
	defer closer(resp.Body)()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("sluice: decode %s: %w", key, err)
		}
		defer closer(gz)()
		body = gz
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("sluice: read %s: %w", key, err)
	}
	return data, nil
}
