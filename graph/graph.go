package graph

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/vamana/metric"
	"github.com/hupe1980/vamana/pager"
)

// Graph is the capability set every graph representation supports, so
// construction and pruning algorithms run unchanged against the in-memory
// builder and the persisted form.
type Graph interface {
	// Read materializes the node record stored at ptr. A dangling pointer
	// is a corruption fault.
	Read(ctx context.Context, ptr pager.Pointer) (*Node, error)

	// InitIDs returns the traversal entry points, nil before the first
	// node is given neighbors.
	InitIDs() []pager.Pointer

	// Neighbors returns the neighbor pointers of the node at `of`.
	// Implementations backed by records use the materialized node;
	// the builder consults its adjacency map and node may be nil.
	Neighbors(node *Node, of pager.Pointer) []pager.Pointer

	// NeighborsWithDistances fills out with the node's neighbor list.
	// The bool distinguishes a known node with zero neighbors (true,
	// empty) from a node this graph has never seen (false).
	NeighborsWithDistances(of pager.Pointer, out *[]Neighbor) (bool, error)

	// IsEmpty reports whether the graph holds no nodes.
	IsEmpty() bool

	// SetNeighbors replaces a node's adjacency list wholesale. The very
	// first node ever given neighbors becomes the index entry point.
	SetNeighbors(ctx context.Context, of pager.Pointer, neighbors []Neighbor) error

	// VectorProvider returns the distance and raw-vector capability.
	VectorProvider() VectorProvider

	// Meta returns the index-wide metadata snapshot.
	Meta() *MetaPage
}

// DistanceFunc computes the distance between two vectors.
type DistanceFunc func(a, b []float32) (float32, error)

// VectorProvider supplies vector-to-vector distances and retrieval of
// full-precision vectors by their heap location.
type VectorProvider interface {
	Distance(a, b []float32) (float32, error)
	FullVector(ctx context.Context, heap pager.Pointer) ([]float32, error)
}

// NodeCoder re-encodes a node's full vector into its stored compressed
// form, returning the chain head of the persisted code.
type NodeCoder interface {
	EncodeAndStore(ctx context.Context, vec []float32) (pager.Pointer, error)
}

// TapeVectorProvider is the default VectorProvider. Full-precision vectors
// live on a vector tape; heap pointers are tape pointers.
type TapeVectorProvider struct {
	store  pager.PageStore
	tape   *pager.Tape
	distFn DistanceFunc
}

// NewTapeVectorProvider creates a provider over store. A nil distFn
// defaults to squared L2.
func NewTapeVectorProvider(store pager.PageStore, distFn DistanceFunc) *TapeVectorProvider {
	if distFn == nil {
		distFn = metric.SquaredL2
	}
	return &TapeVectorProvider{
		store:  store,
		tape:   pager.NewTape(store, pager.PageKindVector),
		distFn: distFn,
	}
}

// Append stores a full-precision vector and returns its heap pointer.
func (p *TapeVectorProvider) Append(vec []float32) (pager.Pointer, error) {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return p.tape.Write(buf)
}

// Distance implements VectorProvider.
func (p *TapeVectorProvider) Distance(a, b []float32) (float32, error) {
	return p.distFn(a, b)
}

// FullVector implements VectorProvider.
func (p *TapeVectorProvider) FullVector(_ context.Context, heap pager.Pointer) ([]float32, error) {
	data, err := p.store.ReadItem(heap)
	if err != nil {
		return nil, fmt.Errorf("fetch full vector: %w", err)
	}
	if len(data)%4 != 0 {
		return nil, &pager.CorruptionError{
			Ptr:    heap,
			Reason: fmt.Sprintf("vector payload of %d bytes is not float32-aligned", len(data)),
		}
	}

	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
