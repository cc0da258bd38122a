package sluice

import (
	"bytes"
	"os"
	"sync"
)

// -----------------------------------------------------------------------------
// File Sink
// -----------------------------------------------------------------------------

// FileSink is a Sink backed by a local file. The file is truncated on
// creation; writes append and Size reflects everything written so far.
//
// The caller must keep the sink open for the whole export call and Close it
// on every exit path, including the early-stop path.
type FileSink struct {
	file *os.File
	path string
}

// CreateFileSink creates (or truncates) the file at path and returns a sink
// over it.
func CreateFileSink(path string) (*FileSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: file, path: path}, nil
}

// Write appends to the file.
func (s *FileSink) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

// Size returns the file's current size in bytes.
func (s *FileSink) Size() (int64, error) {
	info, err := s.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Path returns the file's location.
func (s *FileSink) Path() string {
	return s.path
}

// Close flushes and releases the file.
func (s *FileSink) Close() error {
	return s.file.Close()
}

// -----------------------------------------------------------------------------
// Memory Sink
// -----------------------------------------------------------------------------

// MemorySink is an in-memory Sink, primarily for tests.
type MemorySink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write appends to the buffer.
func (s *MemorySink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

// Size returns the number of bytes written so far.
func (s *MemorySink) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(s.buf.Len()), nil
}

// Bytes returns a copy of everything written.
func (s *MemorySink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, s.buf.Len())
	copy(out, s.buf.Bytes())
	return out
}
