package vamana

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when an operation is attempted on a closed
	// writer or index.
	ErrClosed = errors.New("closed")

	// ErrFinalized is returned when vectors or neighbors are added after
	// Finalize.
	ErrFinalized = errors.New("index already finalized")

	// ErrNotFinalized is returned when Save or Archive is called before
	// Finalize.
	ErrNotFinalized = errors.New("index not finalized")

	// ErrNoCodebook is returned when quantized codes are requested from an
	// index built without quantization.
	ErrNoCodebook = errors.New("index has no codebook")
)

// ErrDimensionMismatch indicates a vector dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}
