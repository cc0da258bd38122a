package sluice

import (
	"fmt"
	"iter"
	"path"
	"strconv"
	"time"
)

// -----------------------------------------------------------------------------
// Month
// -----------------------------------------------------------------------------

// Month identifies one calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Next returns the following calendar month, carrying year boundaries
// (December rolls over to January of the next year).
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// After reports whether m is strictly later than other.
func (m Month) After(other Month) bool {
	if m.Year != other.Year {
		return m.Year > other.Year
	}
	return m.Month > other.Month
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// -----------------------------------------------------------------------------
// MonthRange
// -----------------------------------------------------------------------------

// MonthRange is an inclusive range of calendar months. Immutable once
// constructed; the zero value is invalid.
type MonthRange struct {
	start Month
	end   Month
}

// NewMonthRange creates a range spanning start through end, inclusive.
// Returns ErrInvalidRange if start is after end.
func NewMonthRange(start, end Month) (MonthRange, error) {
	r := MonthRange{start: start, end: end}
	if err := r.validate(); err != nil {
		return MonthRange{}, err
	}
	return r, nil
}

// Start returns the first month in the range.
func (r MonthRange) Start() Month { return r.start }

// End returns the last month in the range.
func (r MonthRange) End() Month { return r.end }

func (r MonthRange) validate() error {
	if r.start == (Month{}) || r.end == (Month{}) {
		return fmt.Errorf("sluice: %w (zero month)", ErrInvalidRange)
	}
	if r.start.After(r.end) {
		return fmt.Errorf("sluice: %w (%s > %s)", ErrInvalidRange, r.start, r.end)
	}
	return nil
}

// Months returns the calendar months in the range, chronologically, stepping
// one month at a time. A range spanning a single month yields exactly once.
// The sequence is finite and restartable.
func (r MonthRange) Months() iter.Seq[Month] {
	return func(yield func(Month) bool) {
		for m := r.start; !m.After(r.end); m = m.Next() {
			if !yield(m) {
				return
			}
		}
	}
}

// Count returns the number of months in the range, inclusive of both
// endpoints.
func (r MonthRange) Count() int {
	return (r.end.Year-r.start.Year)*12 + int(r.end.Month) - int(r.start.Month) + 1
}

// Keys enumerates one PartitionKey per (month, category) pair in the range,
// months in chronological order, categories in the order given.
func (r MonthRange) Keys(categories []string) iter.Seq[PartitionKey] {
	return func(yield func(PartitionKey) bool) {
		for m := range r.Months() {
			for _, cat := range categories {
				key := PartitionKey{Category: cat, Year: m.Year, Month: m.Month}
				if !yield(key) {
					return
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// PartitionKey
// -----------------------------------------------------------------------------

// PartitionKey uniquely identifies one source partition file.
type PartitionKey struct {
	// Category is the dataset category label (e.g. "yellow", "green").
	Category string `json:"category"`

	// Year is the calendar year of the partition.
	Year int `json:"year"`

	// Month is the calendar month of the partition.
	Month time.Month `json:"month"`
}

// FileName returns the remote file name for the partition, following the
// fixed source naming convention.
func (k PartitionKey) FileName() string {
	return fmt.Sprintf("%s_tripdata_%04d-%02d.parquet", k.Category, k.Year, int(k.Month))
}

// CachePath returns the cache-relative location for the partition,
// namespaced by category and year.
func (k PartitionKey) CachePath() string {
	return path.Join(k.Category, strconv.Itoa(k.Year), k.FileName())
}

// String formats the key as category/YYYY-MM.
func (k PartitionKey) String() string {
	return fmt.Sprintf("%s/%04d-%02d", k.Category, k.Year, int(k.Month))
}
