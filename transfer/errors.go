package transfer

import (
	"errors"
	"fmt"
)

// ErrVerificationMismatch reports that source and destination row counts
// disagree after a completed run. Committed batches are never rolled back.
var ErrVerificationMismatch = errors.New("source and destination row counts do not match")

// ConnectionError reports which side of the transfer could not be reached.
type ConnectionError struct {
	Side string // "source" or "destination"
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection failed: %v", e.Side, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SchemaError reports a destination table creation or type mapping failure.
// It is always raised before any data is copied.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema operation failed for table %s: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// BatchError reports a fetch or insert failure mid-run. The run aborts;
// batches committed before Offset remain in the destination.
type BatchError struct {
	Offset int64
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch starting at offset %d failed: %v", e.Offset, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
