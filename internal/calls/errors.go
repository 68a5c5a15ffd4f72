package calls

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable means the record batch could not be obtained
	ErrSourceUnavailable = errors.New("call record source unavailable")

	// ErrInternal signals a defect during grouping or ranking
	ErrInternal = errors.New("internal detection error")
)

// DataFormatError reports a record or batch that does not have the CallRecord shape.
// Index is -1 when the problem concerns the batch as a whole.
type DataFormatError struct {
	Index  int
	Field  string
	Reason string
	Err    error
}

func (e *DataFormatError) Error() string {
	switch {
	case e.Index < 0 && e.Field == "":
		return fmt.Sprintf("invalid call record batch: %s", e.Reason)
	case e.Index < 0:
		return fmt.Sprintf("invalid call record: %s %s", e.Field, e.Reason)
	case e.Field == "":
		return fmt.Sprintf("invalid call record at index %d: %s", e.Index, e.Reason)
	default:
		return fmt.Sprintf("invalid call record at index %d: %s %s", e.Index, e.Field, e.Reason)
	}
}

func (e *DataFormatError) Unwrap() error {
	return e.Err
}

// IsDataFormatError reports whether err is or wraps a *DataFormatError
func IsDataFormatError(err error) bool {
	var dfe *DataFormatError
	return errors.As(err, &dfe)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, op, err)
}
