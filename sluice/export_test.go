package sluice

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// fixedWidthTable builds a table whose serialized rows all have the same
// width, so chunk sizes are predictable in tests.
func fixedWidthTable(t *testing.T, rows int) *Table {
	t.Helper()
	table, err := NewTable([]string{"id", "fare"})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < rows; i++ {
		// "0000001,12.50\n" is 14 bytes per row.
		if err := table.AppendRow([]string{fmt.Sprintf("%07d", i), "12.50"}); err != nil {
			t.Fatal(err)
		}
	}
	return table
}

const (
	testHeaderBytes = 8  // "id,fare\n"
	testRowBytes    = 14 // "0000001,12.50\n"
)

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	e, err := NewExporter()
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestExport_InvalidBudget_FailsBeforeIO(t *testing.T) {
	e := newTestExporter(t)
	sink := NewMemorySink()

	for _, budget := range []ExportBudget{
		{LimitBytes: 0, ChunkRows: 10},
		{LimitBytes: 100, ChunkRows: 0},
		{LimitBytes: -1, ChunkRows: -1},
	} {
		res, err := e.Export(fixedWidthTable(t, 5), sink, budget)
		if !errors.Is(err, ErrInvalidBudget) {
			t.Fatalf("expected ErrInvalidBudget for budget %+v, got: %v", budget, err)
		}
		if res.Status != StatusFailed {
			t.Errorf("expected StatusFailed for budget %+v, got %v", budget, res.Status)
		}
	}

	if size, _ := sink.Size(); size != 0 {
		t.Errorf("expected no bytes written before validation, sink has %d", size)
	}
}

func TestExport_LimitAboveFullSize_ExportsAllRows(t *testing.T) {
	e := newTestExporter(t)
	table := fixedWidthTable(t, 25)
	sink := NewMemorySink()

	fullSize := int64(testHeaderBytes + 25*testRowBytes)
	res, err := e.Export(table, sink, ExportBudget{LimitBytes: fullSize + 1000, ChunkRows: 10})
	if err != nil {
		t.Fatal(err)
	}

	if res.Status != StatusComplete {
		t.Errorf("expected StatusComplete, got %v", res.Status)
	}
	if res.RowsWritten != 25 || res.TotalRows != 25 {
		t.Errorf("expected 25/25 rows, got %d/%d", res.RowsWritten, res.TotalRows)
	}
	if res.SizeBytes != fullSize {
		t.Errorf("expected size %d, got %d", fullSize, res.SizeBytes)
	}
	if res.SizeBytes >= fullSize+1000 {
		t.Errorf("complete export should end below the limit, size %d", res.SizeBytes)
	}
}

func TestExport_FirstChunkAlreadyOverLimit_WritesExactlyOneChunk(t *testing.T) {
	e := newTestExporter(t)
	table := fixedWidthTable(t, 25)
	sink := NewMemorySink()

	// The size check is post-hoc, so the first chunk lands in full even when
	// the limit is smaller than any chunk.
	res, err := e.Export(table, sink, ExportBudget{LimitBytes: 1, ChunkRows: 10})
	if err != nil {
		t.Fatal(err)
	}

	if res.RowsWritten != 10 {
		t.Errorf("expected exactly one chunk (10 rows), got %d", res.RowsWritten)
	}
	if res.Status != StatusPartial {
		t.Errorf("expected StatusPartial, got %v", res.Status)
	}
	if res.SizeBytes < 1 {
		t.Errorf("expected final size at or above the limit, got %d", res.SizeBytes)
	}
}

func TestExport_LimitBetweenChunkSizes_StopsAfterCrossingChunk(t *testing.T) {
	e := newTestExporter(t)
	table := fixedWidthTable(t, 25000)
	sink := NewMemorySink()

	oneChunk := int64(testHeaderBytes + 10000*testRowBytes)
	twoChunks := int64(testHeaderBytes + 20000*testRowBytes)
	limit := (oneChunk + twoChunks) / 2

	res, err := e.Export(table, sink, ExportBudget{LimitBytes: limit, ChunkRows: 10000})
	if err != nil {
		t.Fatal(err)
	}

	if res.RowsWritten != 20000 {
		t.Errorf("expected 20000 rows written, got %d", res.RowsWritten)
	}
	if res.TotalRows != 25000 {
		t.Errorf("expected 25000 total rows, got %d", res.TotalRows)
	}
	if res.Status != StatusPartial {
		t.Errorf("expected StatusPartial, got %v", res.Status)
	}
	// A truncated export always ends at or above the limit.
	if res.SizeBytes < limit {
		t.Errorf("expected final size >= limit %d, got %d", limit, res.SizeBytes)
	}
	if res.SizeBytes != twoChunks {
		t.Errorf("expected size %d after two chunks, got %d", twoChunks, res.SizeBytes)
	}
	if res.RowsWritten%10000 != 0 {
		t.Errorf("rows written should be a multiple of the chunk size, got %d", res.RowsWritten)
	}
}

func TestExport_FreshSinks_ByteIdenticalOutputs(t *testing.T) {
	e := newTestExporter(t)
	budget := ExportBudget{LimitBytes: 200, ChunkRows: 7}

	first, second := NewMemorySink(), NewMemorySink()
	if _, err := e.Export(fixedWidthTable(t, 40), first, budget); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Export(fixedWidthTable(t, 40), second, budget); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("expected byte-identical outputs from identical inputs")
	}
}

func TestExport_EmptyTable_HeaderOnlyComplete(t *testing.T) {
	e := newTestExporter(t)
	sink := NewMemorySink()

	res, err := e.Export(fixedWidthTable(t, 0), sink, ExportBudget{LimitBytes: 100, ChunkRows: 10})
	if err != nil {
		t.Fatal(err)
	}

	if res.Status != StatusComplete {
		t.Errorf("expected StatusComplete, got %v", res.Status)
	}
	if res.RowsWritten != 0 || res.TotalRows != 0 {
		t.Errorf("expected 0/0 rows, got %d/%d", res.RowsWritten, res.TotalRows)
	}
	if res.SizeBytes != testHeaderBytes {
		t.Errorf("expected header-only size %d, got %d", testHeaderBytes, res.SizeBytes)
	}
}

// failingSink errors on the Nth write to the underlying sink.
type failingSink struct {
	inner     *MemorySink
	failOn    int
	callCount int
}

func (s *failingSink) Write(p []byte) (int, error) {
	s.callCount++
	if s.callCount >= s.failOn {
		return 0, errors.New("disk full")
	}
	return s.inner.Write(p)
}

func (s *failingSink) Size() (int64, error) {
	return s.inner.Size()
}

func TestExport_WriteFailure_ReturnsFailedResultAndError(t *testing.T) {
	e := newTestExporter(t)
	table := fixedWidthTable(t, 10)

	// The first flush (header + chunk) succeeds, the second fails.
	sink := &failingSink{inner: NewMemorySink(), failOn: 2}

	res, err := e.Export(table, sink, ExportBudget{LimitBytes: 1 << 20, ChunkRows: 4})
	if err == nil {
		t.Fatal("expected error from failing sink, got nil")
	}
	if res.Status != StatusFailed {
		t.Errorf("expected StatusFailed, got %v", res.Status)
	}
	if res.RowsWritten != 4 {
		t.Errorf("expected best-effort 4 rows before the failure, got %d", res.RowsWritten)
	}
	if res.RowsWritten >= res.TotalRows {
		t.Errorf("failed export must be detectable: %d written of %d", res.RowsWritten, res.TotalRows)
	}
}
