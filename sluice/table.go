package sluice

import (
	"fmt"
	"iter"
)

// -----------------------------------------------------------------------------
// Table
// -----------------------------------------------------------------------------

// Table is an ordered sequence of records with a fixed, homogeneous column
// schema. It is owned by the export step that loaded it and read-only during
// export; cell values are already rendered as text.
type Table struct {
	columns []string
	rows    [][]string
}

// NewTable creates an empty table with the given column schema.
func NewTable(columns []string) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("sluice: table requires at least one column")
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols}, nil
}

// AppendRow adds one record. The row must match the column arity.
func (t *Table) AppendRow(row []string) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("sluice: row has %d cells, table has %d columns", len(row), len(t.columns))
	}
	t.rows = append(t.rows, row)
	return nil
}

// Columns returns the column schema.
func (t *Table) Columns() []string {
	return t.columns
}

// NumRows returns the total row count.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// Row returns the record at index i.
func (t *Table) Row(i int) []string {
	return t.rows[i]
}

// -----------------------------------------------------------------------------
// Chunks
// -----------------------------------------------------------------------------

// Chunk is a fixed-size contiguous slice of table rows written as one
// serialization unit. End is the exclusive row index after the chunk; the
// final chunk of a table may be shorter than the configured size.
type Chunk struct {
	Start int
	End   int
	Rows  [][]string
}

// Chunks returns the table partitioned into consecutive row chunks of the
// given size. The sequence is finite and restartable: ranging over it twice
// yields identical chunks. A non-positive size yields nothing.
func (t *Table) Chunks(size int) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		if size <= 0 {
			return
		}
		for start := 0; start < len(t.rows); start += size {
			end := start + size
			if end > len(t.rows) {
				end = len(t.rows)
			}
			if !yield(Chunk{Start: start, End: end, Rows: t.rows[start:end]}) {
				return
			}
		}
	}
}
