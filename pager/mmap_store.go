package pager

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vamana/internal/mmap"
)

// mappedStore is a read-only PageStore over an uncompressed snapshot file
// mapped into memory. Page images are used in place; ReadItem returns
// views into the mapping, valid until Close.
type mappedStore struct {
	m      *mmap.File
	pages  []*page
	byKind map[PageKind]*roaring.Bitmap
	closed bool
}

func openMapped(path string) (*mappedStore, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	s, err := newMappedStore(m)
	if err != nil {
		m.Close()
		return nil, err
	}
	return s, nil
}

func newMappedStore(m *mmap.File) (*mappedStore, error) {
	data := m.Data
	if len(data) < snapshotHeaderSize+4 {
		return nil, fmt.Errorf("snapshot file too small: %w", ErrCorrupted)
	}

	hdr, err := decodeSnapshotHeader(data[:snapshotHeaderSize])
	if err != nil {
		return nil, err
	}
	if hdr.Compression != CompressionNone {
		return nil, fmt.Errorf("cannot map %s-compressed snapshot: %w", hdr.Compression, ErrCorrupted)
	}

	bodyEnd := snapshotHeaderSize + int(hdr.PageCount)*BlockSize
	if len(data) != bodyEnd+4 {
		return nil, fmt.Errorf("snapshot file is %d bytes, want %d: %w", len(data), bodyEnd+4, ErrCorrupted)
	}

	body := data[snapshotHeaderSize:bodyEnd]
	if crc32.Checksum(body, castagnoli) != binary.LittleEndian.Uint32(data[bodyEnd:]) {
		return nil, ErrChecksum
	}

	_ = m.Advise(mmap.AccessRandom)

	s := &mappedStore{
		m:      m,
		pages:  make([]*page, 0, hdr.PageCount),
		byKind: make(map[PageKind]*roaring.Bitmap),
	}
	for i := uint32(0); i < hdr.PageCount; i++ {
		image := body[int(i)*BlockSize : int(i+1)*BlockSize]
		p, err := pageFromBytes(i, image)
		if err != nil {
			return nil, err
		}
		s.pages = append(s.pages, p)
	}
	if len(s.pages) == 0 || s.pages[0].kind() != PageKindMeta {
		return nil, &CorruptionError{Reason: "snapshot has no metadata page"}
	}
	for i, p := range s.pages {
		set, ok := s.byKind[p.kind()]
		if !ok {
			set = roaring.New()
			s.byKind[p.kind()] = set
		}
		set.Add(uint32(i))
	}

	return s, nil
}

// AllocatePage implements PageStore.
func (s *mappedStore) AllocatePage(PageKind) (uint32, error) {
	return 0, ErrReadOnly
}

// AppendItem implements PageStore.
func (s *mappedStore) AppendItem(uint32, []byte) (Pointer, error) {
	return Pointer{}, ErrReadOnly
}

// WriteItem implements PageStore.
func (s *mappedStore) WriteItem(Pointer, []byte) error {
	return ErrReadOnly
}

func (s *mappedStore) page(n uint32) (*page, error) {
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

// ReadItem implements PageStore. The returned slice aliases the mapping.
func (s *mappedStore) ReadItem(ptr Pointer) ([]byte, error) {
	p, err := s.page(ptr.PageNumber)
	if err != nil {
		return nil, err
	}
	return p.item(ptr)
}

// ItemCount implements PageStore.
func (s *mappedStore) ItemCount(pageNumber uint32) (uint16, error) {
	p, err := s.page(pageNumber)
	if err != nil {
		return 0, err
	}
	return p.slotCount(), nil
}

// Pages implements PageStore.
func (s *mappedStore) Pages(kind PageKind) iter.Seq[uint32] {
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
func (s *mappedStore) PageCount() uint32 {
	return uint32(len(s.pages))
}

// Close implements PageStore and unmaps the snapshot.
func (s *mappedStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.pages = nil
	s.byKind = nil
	return s.m.Close()
}
