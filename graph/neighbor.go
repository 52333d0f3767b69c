package graph

import (
	"encoding/binary"
	"math"

	"github.com/hupe1980/vamana/pager"
)

// neighborSize is the wire size of one neighbor entry: pointer + distance.
const neighborSize = pager.PointerSize + 4

// Neighbor is an edge to another node with the distance cached at
// edge-creation time, so pruning never recomputes it.
type Neighbor struct {
	Pointer  pager.Pointer
	Distance float32
}

func (n Neighbor) encode(buf []byte) {
	n.Pointer.Encode(buf[0:])
	binary.LittleEndian.PutUint32(buf[pager.PointerSize:], math.Float32bits(n.Distance))
}

func decodeNeighbor(buf []byte) Neighbor {
	return Neighbor{
		Pointer:  pager.DecodePointer(buf[0:]),
		Distance: math.Float32frombits(binary.LittleEndian.Uint32(buf[pager.PointerSize:])),
	}
}

// cloneNeighbors copies a neighbor list so callers and the builder never
// share backing arrays.
func cloneNeighbors(list []Neighbor) []Neighbor {
	if len(list) == 0 {
		return nil
	}
	out := make([]Neighbor, len(list))
	copy(out, list)
	return out
}

// pointersOf projects a neighbor list to its pointers.
func pointersOf(list []Neighbor) []pager.Pointer {
	if len(list) == 0 {
		return nil
	}
	out := make([]pager.Pointer, len(list))
	for i, n := range list {
		out[i] = n.Pointer
	}
	return out
}
