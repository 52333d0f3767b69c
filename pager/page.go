package pager

import (
	"encoding/binary"
	"fmt"
)

// BlockSize is the fixed page size. Every allocated page occupies exactly
// this many bytes in memory and in snapshots.
const BlockSize = 8192

const (
	pageHeaderSize = 5 // kind u8 + slotCount u16 + freeStart u16
	slotEntrySize  = 4 // payload offset u16 + payload length u16
)

// MaxItemSize is the largest payload a single page can hold: one slot entry
// plus the payload itself on an otherwise empty page.
const MaxItemSize = BlockSize - pageHeaderSize - slotEntrySize

// PageKind is the logical stream a page belongs to. Tapes never mix kinds
// on one page.
type PageKind uint8

const (
	// PageKindMeta is reserved for page 0, the index metadata page.
	PageKindMeta PageKind = iota
	// PageKindNode holds graph node records.
	PageKindNode
	// PageKindVector holds raw full-precision vectors.
	PageKindVector
	// PageKindQuantizerDef holds quantizer definition headers.
	PageKindQuantizerDef
	// PageKindQuantizerChunk holds chained tensor and code chunks.
	PageKindQuantizerChunk
)

func (k PageKind) String() string {
	switch k {
	case PageKindMeta:
		return "meta"
	case PageKindNode:
		return "node"
	case PageKindVector:
		return "vector"
	case PageKindQuantizerDef:
		return "quantizer-def"
	case PageKindQuantizerChunk:
		return "quantizer-chunk"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// page is one BlockSize slotted block: a 5-byte header, a slot directory
// growing downward from the header, and payloads packed upward from the
// tail. Slot numbers start at 1.
type page struct {
	buf []byte
}

func newPage(kind PageKind) *page {
	p := &page{buf: make([]byte, BlockSize)}
	p.buf[0] = byte(kind)
	p.setFreeStart(BlockSize)
	return p
}

// pageFromBytes wraps an existing BlockSize image without copying.
// The header is validated so later slot lookups stay in bounds.
func pageFromBytes(n uint32, buf []byte) (*page, error) {
	if len(buf) != BlockSize {
		return nil, &CorruptionError{
			Ptr:    Pointer{PageNumber: n},
			Reason: fmt.Sprintf("page image is %d bytes, want %d", len(buf), BlockSize),
		}
	}
	p := &page{buf: buf}
	dirEnd := pageHeaderSize + int(p.slotCount())*slotEntrySize
	if dirEnd > p.freeStart() || p.freeStart() > BlockSize {
		return nil, &CorruptionError{
			Ptr:    Pointer{PageNumber: n},
			Reason: "slot directory overlaps payload region",
		}
	}
	return p, nil
}

func (p *page) kind() PageKind {
	return PageKind(p.buf[0])
}

func (p *page) slotCount() uint16 {
	return binary.LittleEndian.Uint16(p.buf[1:])
}

func (p *page) setSlotCount(n uint16) {
	binary.LittleEndian.PutUint16(p.buf[1:], n)
}

func (p *page) freeStart() int {
	return int(binary.LittleEndian.Uint16(p.buf[3:]))
}

func (p *page) setFreeStart(off int) {
	binary.LittleEndian.PutUint16(p.buf[3:], uint16(off))
}

// freeSpace is the byte budget left for one more payload plus its slot entry.
func (p *page) freeSpace() int {
	return p.freeStart() - pageHeaderSize - int(p.slotCount())*slotEntrySize
}

// append packs data at the tail and records it in the slot directory.
// Returns ErrPageFull when the page cannot take the item.
func (p *page) append(data []byte) (uint16, error) {
	if len(data)+slotEntrySize > p.freeSpace() {
		return 0, ErrPageFull
	}

	start := p.freeStart() - len(data)
	copy(p.buf[start:], data)

	slot := p.slotCount() + 1
	entry := pageHeaderSize + int(slot-1)*slotEntrySize
	binary.LittleEndian.PutUint16(p.buf[entry:], uint16(start))
	binary.LittleEndian.PutUint16(p.buf[entry+2:], uint16(len(data)))

	p.setSlotCount(slot)
	p.setFreeStart(start)

	return slot, nil
}

// slotExtent resolves a slot to its payload range, validating bounds.
func (p *page) slotExtent(ptr Pointer) (start, length int, err error) {
	slot := ptr.Slot
	if slot == 0 || slot > p.slotCount() {
		return 0, 0, &CorruptionError{
			Ptr:    ptr,
			Reason: fmt.Sprintf("slot out of range: page holds %d slots", p.slotCount()),
		}
	}

	entry := pageHeaderSize + int(slot-1)*slotEntrySize
	start = int(binary.LittleEndian.Uint16(p.buf[entry:]))
	length = int(binary.LittleEndian.Uint16(p.buf[entry+2:]))
	if start < p.freeStart() || start+length > BlockSize {
		return 0, 0, &CorruptionError{Ptr: ptr, Reason: "slot extent out of bounds"}
	}

	return start, length, nil
}

func (p *page) item(ptr Pointer) ([]byte, error) {
	start, length, err := p.slotExtent(ptr)
	if err != nil {
		return nil, err
	}
	return p.buf[start : start+length], nil
}

// overwrite replaces a slot's payload in place. The new payload must match
// the stored length exactly; records that need to grow are chained instead.
func (p *page) overwrite(ptr Pointer, data []byte) error {
	start, length, err := p.slotExtent(ptr)
	if err != nil {
		return err
	}
	if len(data) != length {
		return fmt.Errorf("overwrite at %s: slot holds %d bytes, got %d: %w", ptr, length, len(data), ErrCapacity)
	}
	copy(p.buf[start:start+length], data)
	return nil
}
