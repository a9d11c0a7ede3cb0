package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidThreshold is returned when the clustering radius is not a positive number.
var ErrInvalidThreshold = errors.New("cluster threshold must be a positive number of kilometers")

// ValidationError rejects a batch whose coordinates are missing or not numeric.
type ValidationError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed at row %d: %s=%q: %s", e.Row, e.Field, e.Value, e.Reason)
}

// DataFormatError rejects a batch containing a value that cannot be parsed,
// most commonly a timestamp.
type DataFormatError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *DataFormatError) Error() string {
	return fmt.Sprintf("data format error at row %d: %s=%q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *DataFormatError) Unwrap() error { return e.Err }
