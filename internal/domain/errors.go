package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a missing dataset, table, or collection. Callers translate
// it to a transport-level "not found", never an internal failure.
var ErrNotFound = errors.New("not found")

// OpError wraps a failure with the operation and dataset it belongs to so the
// calling layer can build a transport response. The core never formats
// transport responses itself.
type OpError struct {
	Op      string
	Dataset string
	Err     error
}

func (e *OpError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: dataset %s: %v", e.Op, e.Dataset, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Opf builds an OpError wrapping err.
func Opf(op, dataset string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Dataset: dataset, Err: err}
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
