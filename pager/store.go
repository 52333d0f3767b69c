package pager

import (
	"fmt"
	"iter"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// PageStore abstracts page allocation and record I/O for index construction.
//
// Implementations are not safe for concurrent mutation: builds are
// single-writer by contract and stores perform no internal locking.
// Slices returned by ReadItem must not be modified and are only valid
// until the store is next written to or closed.
type PageStore interface {
	// AllocatePage allocates a fresh page of the given kind and returns
	// its page number. Page numbers are dense and start at 1; page 0 is
	// the metadata page created with the store.
	AllocatePage(kind PageKind) (uint32, error)

	// AppendItem appends data to the given page, returning its stable
	// Pointer. Returns ErrPageFull when the page lacks space.
	AppendItem(pageNumber uint32, data []byte) (Pointer, error)

	// ReadItem resolves a pointer to its payload bytes.
	ReadItem(ptr Pointer) ([]byte, error)

	// WriteItem overwrites an existing record in place. The payload must
	// match the stored record's length.
	WriteItem(ptr Pointer, data []byte) error

	// ItemCount returns the number of records stored on a page.
	ItemCount(pageNumber uint32) (uint16, error)

	// Pages iterates the page numbers of the given kind in ascending order.
	Pages(kind PageKind) iter.Seq[uint32]

	// PageCount returns the total number of pages, including page 0.
	PageCount() uint32

	Close() error
}

// MemoryStore is the mutable in-memory PageStore used during builds.
// Page 0 is allocated as the metadata page on creation, so payload
// pointers never collide with the zero-pointer sentinel.
type MemoryStore struct {
	pages  []*page
	byKind map[PageKind]*roaring.Bitmap
	closed bool
}

// NewMemoryStore creates an empty store with its metadata page in place.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		byKind: make(map[PageKind]*roaring.Bitmap),
	}
	s.pages = append(s.pages, newPage(PageKindMeta))
	s.kindSet(PageKindMeta).Add(0)
	return s
}

// storeFromPages assembles a MemoryStore around existing page images,
// rebuilding the per-kind page sets from the page headers.
func storeFromPages(pages []*page) (*MemoryStore, error) {
	if len(pages) == 0 || pages[0].kind() != PageKindMeta {
		return nil, &CorruptionError{Reason: "snapshot has no metadata page"}
	}

	s := &MemoryStore{
		pages:  pages,
		byKind: make(map[PageKind]*roaring.Bitmap),
	}
	for i, p := range pages {
		s.kindSet(p.kind()).Add(uint32(i))
	}
	return s, nil
}

func (s *MemoryStore) kindSet(kind PageKind) *roaring.Bitmap {
	set, ok := s.byKind[kind]
	if !ok {
		set = roaring.New()
		s.byKind[kind] = set
	}
	return set
}

// AllocatePage implements PageStore.
func (s *MemoryStore) AllocatePage(kind PageKind) (uint32, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if len(s.pages) > math.MaxUint32 {
		return 0, fmt.Errorf("page number space exhausted: %w", ErrAllocation)
	}

	n := uint32(len(s.pages))
	s.pages = append(s.pages, newPage(kind))
	s.kindSet(kind).Add(n)

	return n, nil
}

func (s *MemoryStore) page(n uint32) (*page, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if n >= uint32(len(s.pages)) {
		return nil, &CorruptionError{
			Ptr:    Pointer{PageNumber: n},
			Reason: fmt.Sprintf("page out of range: store holds %d pages", len(s.pages)),
		}
	}
	return s.pages[n], nil
}

// AppendItem implements PageStore.
func (s *MemoryStore) AppendItem(pageNumber uint32, data []byte) (Pointer, error) {
	p, err := s.page(pageNumber)
	if err != nil {
		return Pointer{}, err
	}

	slot, err := p.append(data)
	if err != nil {
		return Pointer{}, err
	}

	return Pointer{PageNumber: pageNumber, Slot: slot}, nil
}

// ReadItem implements PageStore. The payload is copied, so it stays valid
// across later writes.
func (s *MemoryStore) ReadItem(ptr Pointer) ([]byte, error) {
	p, err := s.page(ptr.PageNumber)
	if err != nil {
		return nil, err
	}

	item, err := p.item(ptr)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(item))
	copy(out, item)
	return out, nil
}

// WriteItem implements PageStore.
func (s *MemoryStore) WriteItem(ptr Pointer, data []byte) error {
	p, err := s.page(ptr.PageNumber)
	if err != nil {
		return err
	}
	return p.overwrite(ptr, data)
}

// ItemCount implements PageStore.
func (s *MemoryStore) ItemCount(pageNumber uint32) (uint16, error) {
	p, err := s.page(pageNumber)
	if err != nil {
		return 0, err
	}
	return p.slotCount(), nil
}

// Pages implements PageStore.
func (s *MemoryStore) Pages(kind PageKind) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		set, ok := s.byKind[kind]
		if !ok {
			return
		}
		it := set.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// PageCount implements PageStore.
func (s *MemoryStore) PageCount() uint32 {
	return uint32(len(s.pages))
}

// Close implements PageStore. Further operations return ErrClosed.
func (s *MemoryStore) Close() error {
	s.closed = true
	s.pages = nil
	s.byKind = nil
	return nil
}
