package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptySource    = errors.New("source has no header row")
	ErrUnknownColumn  = errors.New("unknown column")
	ErrNoGroupColumns = errors.New("at least one group-by column is required")
)

// LoadError is returned when the source table cannot be loaded. It is fatal:
// no dashboard can be served without the table.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// MissingColumnsError lists required columns absent from the source header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// InvalidRangeError is returned when a date range starts after it ends.
// Callers should ask the user to correct the input; bounds are never swapped.
type InvalidRangeError struct {
	Start, End time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("start date %s is after end date %s",
		e.Start.Format(time.DateOnly), e.End.Format(time.DateOnly))
}
