package quantizer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/vamana/pager"
)

// Chained records spill payloads that may outgrow a single page across a
// linked list of chunks. Each chunk carries its element count and the
// pointer of the chunk holding the elements after it; the chain is written
// back to front so the head chunk lands last and always covers the start
// of the payload.
const chunkHeaderSize = 2 + pager.PointerSize

// defRecordSize is the fixed codebook definition record: the shape, the
// total element count and the centroid chain head.
const defRecordSize = 3*4 + 8 + pager.PointerSize

// Storage persists codebooks and per-node codes on their own page kinds.
type Storage struct {
	store  pager.PageStore
	defs   *pager.Tape
	chunks *pager.Tape
}

// NewStorage creates quantizer storage over store.
func NewStorage(store pager.PageStore) *Storage {
	return &Storage{
		store:  store,
		defs:   pager.NewTape(store, pager.PageKindQuantizerDef),
		chunks: pager.NewTape(store, pager.PageKindQuantizerChunk),
	}
}

// chunkFit returns how many elements of elemSize fit in one chunk.
func chunkFit(elemSize int) (int, error) {
	fit := (pager.MaxItemSize - chunkHeaderSize) / elemSize
	if fit < 1 {
		return 0, &pager.CapacityError{Need: chunkHeaderSize + elemSize, Have: pager.MaxItemSize}
	}
	return fit, nil
}

// writeChain persists data as a chunk chain and returns the head pointer.
// Chunks are emitted tail first: every full chunk holds exactly fit
// elements and the head chunk holds the remainder.
func (s *Storage) writeChain(data []byte, elemSize int) (pager.Pointer, error) {
	fit, err := chunkFit(elemSize)
	if err != nil {
		return pager.Pointer{}, err
	}

	var prev pager.Pointer
	remaining := len(data) / elemSize
	for {
		ni := 0
		if remaining > fit {
			ni = remaining - fit
		}
		n := remaining - ni

		record := make([]byte, chunkHeaderSize+n*elemSize)
		binary.LittleEndian.PutUint16(record[0:], uint16(n))
		prev.Encode(record[2:])
		copy(record[chunkHeaderSize:], data[ni*elemSize:remaining*elemSize])

		ptr, err := s.chunks.Write(record)
		if err != nil {
			return pager.Pointer{}, err
		}

		prev = ptr
		remaining = ni
		if ni == 0 {
			return prev, nil
		}
	}
}

// readChain follows a chunk chain from head and reassembles exactly
// expectedElems elements. The walk is bounded by the chunk count a
// well-formed chain of that length can have, so a cycle or a runaway
// chain surfaces as corruption instead of an endless loop.
func (s *Storage) readChain(head pager.Pointer, expectedElems, elemSize int) ([]byte, error) {
	fit, err := chunkFit(elemSize)
	if err != nil {
		return nil, err
	}

	maxHops := (expectedElems + fit - 1) / fit
	if maxHops < 1 {
		maxHops = 1
	}

	out := make([]byte, 0, expectedElems*elemSize)
	ptr := head
	for hops := 0; !ptr.IsNil(); {
		hops++
		if hops > maxHops {
			return nil, &pager.CorruptionError{
				Ptr:    head,
				Reason: fmt.Sprintf("chunk chain exceeds %d chunks", maxHops),
			}
		}

		data, err := s.store.ReadItem(ptr)
		if err != nil {
			return nil, err
		}
		if len(data) < chunkHeaderSize {
			return nil, &pager.CorruptionError{
				Ptr:    ptr,
				Reason: fmt.Sprintf("chunk record is %d bytes, want at least %d", len(data), chunkHeaderSize),
			}
		}

		count := int(binary.LittleEndian.Uint16(data[0:]))
		if len(data) != chunkHeaderSize+count*elemSize {
			return nil, &pager.CorruptionError{
				Ptr:    ptr,
				Reason: fmt.Sprintf("chunk declares %d elements but is %d bytes", count, len(data)),
			}
		}

		out = append(out, data[chunkHeaderSize:]...)
		ptr = pager.DecodePointer(data[2:])
	}

	if len(out) != expectedElems*elemSize {
		return nil, &pager.CorruptionError{
			Ptr:    head,
			Reason: fmt.Sprintf("chain holds %d elements, want %d", len(out)/elemSize, expectedElems),
		}
	}
	return out, nil
}

// WriteCodebook persists a codebook: the centroid chain first, then the
// definition record referencing it, so a definition never points at
// missing data.
func (s *Storage) WriteCodebook(cb *Codebook) (pager.Pointer, error) {
	if err := cb.Validate(); err != nil {
		return pager.Pointer{}, err
	}

	data := make([]byte, 4*len(cb.Centroids))
	for i, v := range cb.Centroids {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}

	head, err := s.writeChain(data, 4)
	if err != nil {
		return pager.Pointer{}, fmt.Errorf("write centroid chain: %w", err)
	}

	def := make([]byte, defRecordSize)
	binary.LittleEndian.PutUint32(def[0:], uint32(cb.Subspaces))
	binary.LittleEndian.PutUint32(def[4:], uint32(cb.Clusters))
	binary.LittleEndian.PutUint32(def[8:], uint32(cb.SubLen))
	binary.LittleEndian.PutUint64(def[12:], uint64(len(cb.Centroids)))
	head.Encode(def[20:])

	return s.defs.Write(def)
}

// ReadCodebook loads the codebook whose definition record lives at ptr.
func (s *Storage) ReadCodebook(ptr pager.Pointer) (*Codebook, error) {
	data, err := s.store.ReadItem(ptr)
	if err != nil {
		return nil, fmt.Errorf("read codebook definition: %w", err)
	}
	if len(data) != defRecordSize {
		return nil, &pager.CorruptionError{
			Ptr:    ptr,
			Reason: fmt.Sprintf("codebook definition is %d bytes, want %d", len(data), defRecordSize),
		}
	}

	cb := &Codebook{
		Subspaces: int(binary.LittleEndian.Uint32(data[0:])),
		Clusters:  int(binary.LittleEndian.Uint32(data[4:])),
		SubLen:    int(binary.LittleEndian.Uint32(data[8:])),
	}
	count := binary.LittleEndian.Uint64(data[12:])
	if count != uint64(cb.Subspaces)*uint64(cb.Clusters)*uint64(cb.SubLen) {
		return nil, &pager.CorruptionError{
			Ptr:    ptr,
			Reason: fmt.Sprintf("codebook declares %d centroid values, shape needs %d", count, cb.Subspaces*cb.Clusters*cb.SubLen),
		}
	}

	raw, err := s.readChain(pager.DecodePointer(data[20:]), int(count), 4)
	if err != nil {
		return nil, fmt.Errorf("read centroid chain: %w", err)
	}

	cb.Centroids = make([]float32, count)
	for i := range cb.Centroids {
		cb.Centroids[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}

	if err := cb.Validate(); err != nil {
		return nil, &pager.CorruptionError{Ptr: ptr, Reason: err.Error()}
	}
	return cb, nil
}

// WriteCode persists one node's code and returns its chain head.
func (s *Storage) WriteCode(code []byte) (pager.Pointer, error) {
	return s.writeChain(code, 1)
}

// ReadCode loads a node code of the given length from its chain head.
func (s *Storage) ReadCode(head pager.Pointer, length int) ([]byte, error) {
	return s.readChain(head, length, 1)
}
