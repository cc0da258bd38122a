// Package s3 provides an S3-compatible publisher for sluice export
// artifacts.
//
// This adapter supports AWS S3, MinIO, LocalStack, Cloudflare R2, and other
// S3-compatible object stores. Publishing is a black-box collaborator from
// the pipeline's point of view: it uploads a local artifact and returns an
// opaque s3:// locator on success.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// API defines the subset of the S3 client interface used by the publisher.
// This enables testing with mock implementations.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Config holds configuration for the publisher.
type Config struct {
	// Bucket is the S3 bucket name. Required.
	Bucket string

	// Prefix is an optional key prefix for all uploads.
	// If set, a trailing slash is added if missing.
	Prefix string
}

// Publisher uploads export artifacts to an S3-compatible backend.
//
// Unlike a snapshot store, publishing overwrites: re-running a pipeline for
// the same partition replaces the previous artifact at the same key.
type Publisher struct {
	client API
	bucket string
	prefix string
}

// New creates a publisher with the given client and configuration.
//
// The client must be pre-configured with credentials, region, and endpoint.
// Use github.com/aws/aws-sdk-go-v2/config to load configuration.
//
// Example:
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	client := s3.NewFromConfig(cfg)
//	pub, err := s3pub.New(client, s3pub.Config{Bucket: "my-bucket"})
func New(client API, cfg Config) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("s3: client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &Publisher{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
	}, nil
}

// Publish uploads the file at localPath and returns its locator
// (s3://bucket/key). The upload is verified with a HeadObject call before
// the locator is returned.
func (p *Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("s3: open artifact: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("s3: stat artifact: %w", err)
	}

	key := p.prefix + path.Base(filepath.ToSlash(localPath))

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("s3: upload %s: %w", key, err)
	}

	_, err = p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("s3: upload verification failed for %s: object missing", key)
		}
		return "", fmt.Errorf("s3: verify %s: %w", key, err)
	}

	return "s3://" + p.bucket + "/" + key, nil
}

// isNotFound checks if an error indicates the object was not found.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}
	return false
}

// -----------------------------------------------------------------------------
// Mock S3 Client for Testing
// -----------------------------------------------------------------------------

// MockS3Client is a test double for API.
type MockS3Client struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// Call counters for test assertions
	PutObjectCalls  int
	HeadObjectCalls int

	// PutObjectErr, when set, is returned by every PutObject call.
	PutObjectErr error

	// DropUploads, when true, makes PutObject succeed without recording the
	// object, so the verification HeadObject reports it missing.
	DropUploads bool
}

// NewMockS3Client creates a new mock S3 client for testing.
func NewMockS3Client() *MockS3Client {
	return &MockS3Client{
		objects: make(map[string][]byte),
	}
}

// Object returns the stored content for a key, for test assertions.
func (m *MockS3Client) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, ok
}

// PutObject implements API.PutObject for testing.
func (m *MockS3Client) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(params.Key)
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutObjectCalls++
	if m.PutObjectErr != nil {
		return nil, m.PutObjectErr
	}
	if !m.DropUploads {
		m.objects[key] = data
	}
	return &s3.PutObjectOutput{}, nil
}

// HeadObject implements API.HeadObject for testing.
func (m *MockS3Client) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	key := aws.ToString(params.Key)

	m.mu.Lock()
	m.HeadObjectCalls++
	_, exists := m.objects[key]
	m.mu.Unlock()

	if !exists {
		return nil, &smithyAPIError{code: "NotFound", message: "object not found"}
	}
	return &s3.HeadObjectOutput{}, nil
}

// smithyAPIError implements smithy.APIError for testing.
type smithyAPIError struct {
	code    string
	message string
}

func (e *smithyAPIError) Error() string {
	return e.message
}

func (e *smithyAPIError) ErrorCode() string {
	return e.code
}

func (e *smithyAPIError) ErrorMessage() string {
	return e.message
}

func (e *smithyAPIError) ErrorFault() smithy.ErrorFault {
	return smithy.FaultUnknown
}
