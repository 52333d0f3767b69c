package graph

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/vamana/pager"
)

// nodeHeaderSize covers the heap pointer, the code pointer and the
// neighbor count.
const nodeHeaderSize = 2*pager.PointerSize + 2

// NodeRecordSize is the fixed on-disk size of a node record for a given
// fan-out budget. Records reserve the full budget up front so neighbor
// updates overwrite in place and never relocate the record.
func NodeRecordSize(maxFanOut int) int {
	return nodeHeaderSize + maxFanOut*neighborSize
}

// Node is a persisted graph vertex: a back-reference to the raw vector's
// storage location, an optional quantized-code chain head, and a bounded
// neighbor list.
type Node struct {
	// Self is where the record lives. Populated on read, not persisted.
	Self pager.Pointer

	// HeapPointer locates the node's full-precision vector.
	HeapPointer pager.Pointer

	// CodePointer heads the node's quantized-code chain. Zero when the
	// index stores no codes.
	CodePointer pager.Pointer

	// Neighbors holds at most the index's max fan-out entries after any
	// committed write.
	Neighbors []Neighbor
}

// EncodeNode serializes a node into its fixed-size record.
func EncodeNode(n *Node, maxFanOut int) ([]byte, error) {
	if len(n.Neighbors) > maxFanOut {
		return nil, fmt.Errorf("node %s has %d neighbors, budget %d: %w",
			n.Self, len(n.Neighbors), maxFanOut, ErrTooManyNeighbors)
	}

	buf := make([]byte, NodeRecordSize(maxFanOut))
	n.HeapPointer.Encode(buf[0:])
	n.CodePointer.Encode(buf[pager.PointerSize:])
	binary.LittleEndian.PutUint16(buf[2*pager.PointerSize:], uint16(len(n.Neighbors)))
	for i, nb := range n.Neighbors {
		nb.encode(buf[nodeHeaderSize+i*neighborSize:])
	}
	return buf, nil
}

// DecodeNode parses a node record read from ptr.
func DecodeNode(ptr pager.Pointer, data []byte, maxFanOut int) (*Node, error) {
	if len(data) != NodeRecordSize(maxFanOut) {
		return nil, &pager.CorruptionError{
			Ptr:    ptr,
			Reason: fmt.Sprintf("node record is %d bytes, want %d", len(data), NodeRecordSize(maxFanOut)),
		}
	}

	count := int(binary.LittleEndian.Uint16(data[2*pager.PointerSize:]))
	if count > maxFanOut {
		return nil, &pager.CorruptionError{
			Ptr:    ptr,
			Reason: fmt.Sprintf("node record declares %d neighbors, budget %d", count, maxFanOut),
		}
	}

	n := &Node{
		Self:        ptr,
		HeapPointer: pager.DecodePointer(data[0:]),
		CodePointer: pager.DecodePointer(data[pager.PointerSize:]),
	}
	for i := 0; i < count; i++ {
		n.Neighbors = append(n.Neighbors, decodeNeighbor(data[nodeHeaderSize+i*neighborSize:]))
	}
	return n, nil
}
