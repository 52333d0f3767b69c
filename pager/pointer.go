package pager

import (
	"encoding/binary"
	"fmt"
)

// PointerSize is the wire size of an encoded Pointer.
const PointerSize = 6

// Pointer identifies a stored record by page number and slot. Slots are
// numbered from 1, so the zero value doubles as the "no pointer" sentinel
// that terminates page chains.
type Pointer struct {
	PageNumber uint32
	Slot       uint16
}

// IsNil reports whether p is the sentinel (zero) pointer.
func (p Pointer) IsNil() bool {
	return p.PageNumber == 0 && p.Slot == 0
}

// Compare orders pointers by page number, then slot.
// Returns -1, 0 or 1 like cmp.Compare.
func (p Pointer) Compare(o Pointer) int {
	switch {
	case p.PageNumber < o.PageNumber:
		return -1
	case p.PageNumber > o.PageNumber:
		return 1
	case p.Slot < o.Slot:
		return -1
	case p.Slot > o.Slot:
		return 1
	default:
		return 0
	}
}

func (p Pointer) String() string {
	return fmt.Sprintf("(%d,%d)", p.PageNumber, p.Slot)
}

// Encode writes the 6-byte little-endian form of p into buf.
// buf must have room for PointerSize bytes.
func (p Pointer) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:], p.PageNumber)
	binary.LittleEndian.PutUint16(buf[4:], p.Slot)
}

// DecodePointer reads a Pointer from the first PointerSize bytes of buf.
func DecodePointer(buf []byte) Pointer {
	return Pointer{
		PageNumber: binary.LittleEndian.Uint32(buf[0:]),
		Slot:       binary.LittleEndian.Uint16(buf[4:]),
	}
}
