package sluice

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
)

// ErrInvalidFormat indicates partition content that is not a readable
// parquet file.
var ErrInvalidFormat = errors.New("invalid format")

// -----------------------------------------------------------------------------
// Parquet partition loader
// -----------------------------------------------------------------------------

// LoadParquet parses a fetched parquet partition into a Table.
//
// The column schema is discovered from the file footer; the schema must be
// flat (no nested groups). Cell values are rendered as text: timestamps in
// "2006-01-02 15:04:05" UTC, dates as "2006-01-02", nulls as empty strings.
// Beyond that the content is opaque: ordered rows, fixed columns.
func LoadParquet(data []byte) (*Table, error) {
	if len(data) == 0 {
		return nil, ErrInvalidFormat
	}

	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrInvalidFormat
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	fields := file.Schema().Fields()
	columns := make([]string, len(fields))
	logicalTypes := make([]*format.LogicalType, len(fields))
	for i, field := range fields {
		if !field.Leaf() {
			return nil, fmt.Errorf("%w: nested column %q not supported", ErrInvalidFormat, field.Name())
		}
		columns[i] = field.Name()
		logicalTypes[i] = field.Type().LogicalType()
	}

	table, err := NewTable(columns)
	if err != nil {
		return nil, err
	}

	reader := parquet.NewReader(file)
	defer closer(reader)()

	rows := make([]parquet.Row, 128)
	for {
		n, err := reader.ReadRows(rows)
		for i := 0; i < n; i++ {
			cells := make([]string, len(columns))
			for _, v := range rows[i] {
				col := v.Column()
				if col < 0 || col >= len(cells) {
					continue
				}
				cells[col] = formatParquetValue(v, logicalTypes[col])
			}
			if err := table.AppendRow(cells); err != nil {
				return nil, err
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: read rows: %w", ErrInvalidFormat, err)
		}
	}

	return table, nil
}

// formatParquetValue renders one parquet value as text.
func formatParquetValue(v parquet.Value, lt *format.LogicalType) string {
	if v.IsNull() {
		return ""
	}

	if lt != nil {
		switch {
		case lt.Timestamp != nil:
			return formatTimestamp(v.Int64(), lt.Timestamp.Unit)
		case lt.Date != nil:
			// Dates are stored as days since the Unix epoch.
			return time.Unix(0, 0).UTC().AddDate(0, 0, int(v.Int32())).Format("2006-01-02")
		}
	}

	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

// formatTimestamp converts an epoch integer in the schema's declared unit.
func formatTimestamp(epoch int64, unit format.TimeUnit) string {
	var t time.Time
	switch {
	case unit.Millis != nil:
		t = time.UnixMilli(epoch)
	case unit.Micros != nil:
		t = time.UnixMicro(epoch)
	default:
		t = time.Unix(0, epoch)
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
