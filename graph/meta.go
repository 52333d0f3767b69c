package graph

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/vamana/pager"
)

// QuantizationMode selects how node vectors are stored alongside the graph.
type QuantizationMode uint8

const (
	// QuantizationNone stores no per-node codes.
	QuantizationNone QuantizationMode = 0
	// QuantizationProduct stores a product-quantization code per node.
	QuantizationProduct QuantizationMode = 1
)

func (q QuantizationMode) String() string {
	switch q {
	case QuantizationNone:
		return "none"
	case QuantizationProduct:
		return "product"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(q))
	}
}

const (
	metaMagic      = 0x564D4554 // "VMET"
	metaVersion    = 1
	metaHeaderSize = 14 // magic u32 + version u16 + dims u16 + maxFanOut u16 + quant u8 + reserved u8 + initCount u16

	// metaRecordSize is fixed so entry-point updates overwrite in place.
	metaRecordSize = 256
)

// MaxInitIDs caps how many entry points the metadata record can hold.
const MaxInitIDs = (metaRecordSize - metaHeaderSize) / pager.PointerSize

// MetaPointer is where the metadata record always lives: first slot of the
// reserved metadata page.
var MetaPointer = pager.Pointer{PageNumber: 0, Slot: 1}

// MetaPage is the index-wide configuration persisted at MetaPointer:
// vector dimensionality, the fan-out budget, the quantization mode and the
// traversal entry points. Everything but the entry points is immutable
// after creation.
type MetaPage struct {
	store        pager.PageStore
	dims         int
	maxFanOut    int
	quantization QuantizationMode
	initIDs      []pager.Pointer
}

// CreateMetaPage writes a fresh metadata record and returns its handle.
// Fails with ErrMetaExists when the store already carries one.
func CreateMetaPage(store pager.PageStore, dims, maxFanOut int, quantization QuantizationMode) (*MetaPage, error) {
	if dims < 1 || dims > 0xFFFF {
		return nil, fmt.Errorf("invalid dimensions %d", dims)
	}
	if maxFanOut < 0 || maxFanOut > 0xFFFF {
		return nil, fmt.Errorf("invalid max fan-out %d", maxFanOut)
	}
	if size := NodeRecordSize(maxFanOut); size > pager.MaxItemSize {
		return nil, &pager.CapacityError{Need: size, Have: pager.MaxItemSize}
	}

	m := &MetaPage{
		store:        store,
		dims:         dims,
		maxFanOut:    maxFanOut,
		quantization: quantization,
	}

	ptr, err := store.AppendItem(MetaPointer.PageNumber, m.encode())
	if err != nil {
		return nil, fmt.Errorf("write metadata record: %w", err)
	}
	if ptr != MetaPointer {
		return nil, ErrMetaExists
	}

	return m, nil
}

// ReadMetaPage loads the metadata record from a store.
func ReadMetaPage(store pager.PageStore) (*MetaPage, error) {
	data, err := store.ReadItem(MetaPointer)
	if err != nil {
		return nil, fmt.Errorf("read metadata record: %w", err)
	}
	if len(data) != metaRecordSize {
		return nil, &pager.CorruptionError{
			Ptr:    MetaPointer,
			Reason: fmt.Sprintf("metadata record is %d bytes, want %d", len(data), metaRecordSize),
		}
	}
	if magic := binary.LittleEndian.Uint32(data[0:]); magic != metaMagic {
		return nil, &pager.CorruptionError{
			Ptr:    MetaPointer,
			Reason: fmt.Sprintf("bad metadata magic 0x%08x", magic),
		}
	}
	if version := binary.LittleEndian.Uint16(data[4:]); version != metaVersion {
		return nil, &pager.CorruptionError{
			Ptr:    MetaPointer,
			Reason: fmt.Sprintf("unsupported metadata version %d", version),
		}
	}

	m := &MetaPage{
		store:        store,
		dims:         int(binary.LittleEndian.Uint16(data[6:])),
		maxFanOut:    int(binary.LittleEndian.Uint16(data[8:])),
		quantization: QuantizationMode(data[10]),
	}

	count := int(binary.LittleEndian.Uint16(data[12:]))
	if count > MaxInitIDs {
		return nil, &pager.CorruptionError{
			Ptr:    MetaPointer,
			Reason: fmt.Sprintf("metadata declares %d entry points, max %d", count, MaxInitIDs),
		}
	}
	for i := 0; i < count; i++ {
		m.initIDs = append(m.initIDs, pager.DecodePointer(data[metaHeaderSize+i*pager.PointerSize:]))
	}

	return m, nil
}

func (m *MetaPage) encode() []byte {
	buf := make([]byte, metaRecordSize)
	binary.LittleEndian.PutUint32(buf[0:], metaMagic)
	binary.LittleEndian.PutUint16(buf[4:], metaVersion)
	binary.LittleEndian.PutUint16(buf[6:], uint16(m.dims))
	binary.LittleEndian.PutUint16(buf[8:], uint16(m.maxFanOut))
	buf[10] = byte(m.quantization)
	binary.LittleEndian.PutUint16(buf[12:], uint16(len(m.initIDs)))
	for i, ptr := range m.initIDs {
		ptr.Encode(buf[metaHeaderSize+i*pager.PointerSize:])
	}
	return buf
}

// Dimensions returns the vector dimensionality of the index.
func (m *MetaPage) Dimensions() int {
	return m.dims
}

// MaxFanOut returns the neighbor budget per node.
func (m *MetaPage) MaxFanOut() int {
	return m.maxFanOut
}

// Quantization returns the configured quantization mode.
func (m *MetaPage) Quantization() QuantizationMode {
	return m.quantization
}

// InitIDs returns the traversal entry points, or nil when none have been
// registered yet.
func (m *MetaPage) InitIDs() []pager.Pointer {
	if len(m.initIDs) == 0 {
		return nil
	}
	out := make([]pager.Pointer, len(m.initIDs))
	copy(out, m.initIDs)
	return out
}

// SetInitIDs replaces the entry-point list and persists the record in place.
func (m *MetaPage) SetInitIDs(ids []pager.Pointer) error {
	if len(ids) > MaxInitIDs {
		return fmt.Errorf("%d entry points exceed the metadata capacity of %d", len(ids), MaxInitIDs)
	}

	prev := m.initIDs
	m.initIDs = make([]pager.Pointer, len(ids))
	copy(m.initIDs, ids)

	if err := m.store.WriteItem(MetaPointer, m.encode()); err != nil {
		m.initIDs = prev
		return fmt.Errorf("update metadata record: %w", err)
	}
	return nil
}
