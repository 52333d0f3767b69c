package pager

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupted indicates stored bytes that fail structural validation:
	// a dangling pointer, a wrong record kind, a size mismatch or an
	// over-long page chain. Unrecoverable for the current build.
	ErrCorrupted = errors.New("corrupted page data")

	// ErrCapacity indicates a payload that cannot fit a fresh page, or a
	// page geometry that leaves no room for even one element. Detected
	// before anything is written.
	ErrCapacity = errors.New("payload exceeds page capacity")

	// ErrAllocation indicates the store refused to allocate a new page.
	ErrAllocation = errors.New("page allocation failed")

	// ErrPageFull is returned by PageStore.AppendItem when the target page
	// lacks space for the item. Tape handles it by allocating a new page.
	ErrPageFull = errors.New("page is full")

	// ErrReadOnly is returned by mutating operations on a read-only store.
	ErrReadOnly = errors.New("store is read-only")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// CorruptionError reports where validation failed and why.
type CorruptionError struct {
	Ptr    Pointer
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupted data at %s: %s", e.Ptr, e.Reason)
}

func (e *CorruptionError) Unwrap() error {
	return ErrCorrupted
}

// CapacityError reports the size that was requested against what a page
// can hold.
type CapacityError struct {
	Need int
	Have int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("payload of %d bytes exceeds page capacity of %d bytes", e.Need, e.Have)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacity
}
