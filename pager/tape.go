package pager

import (
	"errors"
	"fmt"
)

// Tape is an append-only record log bound to one PageKind. Records are
// packed into the current page; when one does not fit, a fresh page is
// allocated and the record starts there. Records are never split across
// pages, so anything larger than MaxItemSize must be chunked and chained
// by the caller before it reaches the tape.
//
// Tapes hand out stable Pointers: no record ever moves or disappears.
type Tape struct {
	store PageStore
	kind  PageKind
	page  uint32 // current page, 0 until the first allocation
}

// NewTape creates a tape appending pages of the given kind to store.
func NewTape(store PageStore, kind PageKind) *Tape {
	return &Tape{store: store, kind: kind}
}

// Kind returns the page kind this tape appends to.
func (t *Tape) Kind() PageKind {
	return t.kind
}

// Write appends data and returns its Pointer.
func (t *Tape) Write(data []byte) (Pointer, error) {
	if len(data) > MaxItemSize {
		return Pointer{}, &CapacityError{Need: len(data), Have: MaxItemSize}
	}

	if t.page == 0 {
		if err := t.allocate(); err != nil {
			return Pointer{}, err
		}
	}

	ptr, err := t.store.AppendItem(t.page, data)
	if errors.Is(err, ErrPageFull) {
		if err := t.allocate(); err != nil {
			return Pointer{}, err
		}
		ptr, err = t.store.AppendItem(t.page, data)
	}
	if err != nil {
		return Pointer{}, fmt.Errorf("append to %s tape: %w", t.kind, err)
	}

	return ptr, nil
}

func (t *Tape) allocate() error {
	n, err := t.store.AllocatePage(t.kind)
	if err != nil {
		return fmt.Errorf("allocate %s page: %w", t.kind, err)
	}
	t.page = n
	return nil
}
