package graph

import (
	"context"
	"fmt"

	"github.com/hupe1980/vamana/pager"
)

// DiskGraph is the Graph view over committed node records. Unlike
// BuilderGraph it holds no adjacency state of its own: every read goes to
// the page store and every SetNeighbors rewrites the node record in place.
type DiskGraph struct {
	store    pager.PageStore
	meta     *MetaPage
	provider VectorProvider
}

// NewDiskGraph opens the graph stored in store. A nil distFn falls back to
// squared L2.
func NewDiskGraph(store pager.PageStore, distFn DistanceFunc) (*DiskGraph, error) {
	meta, err := ReadMetaPage(store)
	if err != nil {
		return nil, err
	}
	return &DiskGraph{
		store:    store,
		meta:     meta,
		provider: NewTapeVectorProvider(store, distFn),
	}, nil
}

// Read implements Graph.
func (g *DiskGraph) Read(_ context.Context, ptr pager.Pointer) (*Node, error) {
	data, err := g.store.ReadItem(ptr)
	if err != nil {
		return nil, err
	}
	return DecodeNode(ptr, data, g.meta.MaxFanOut())
}

// InitIDs implements Graph.
func (g *DiskGraph) InitIDs() []pager.Pointer {
	return g.meta.InitIDs()
}

// Neighbors implements Graph. When node is the record already read for of,
// its edge list is returned without touching the store; otherwise the
// record is fetched. A nil slice is returned for unreadable nodes.
func (g *DiskGraph) Neighbors(node *Node, of pager.Pointer) []pager.Pointer {
	if node == nil || node.Self != of {
		var err error
		node, err = g.Read(context.Background(), of)
		if err != nil {
			return nil
		}
	}
	return pointersOf(node.Neighbors)
}

// NeighborsWithDistances implements Graph.
func (g *DiskGraph) NeighborsWithDistances(of pager.Pointer, out *[]Neighbor) (bool, error) {
	*out = (*out)[:0]
	node, err := g.Read(context.Background(), of)
	if err != nil {
		return false, err
	}
	*out = append(*out, node.Neighbors...)
	return true, nil
}

// IsEmpty implements Graph. The graph is empty while no node page holds a
// record.
func (g *DiskGraph) IsEmpty() bool {
	for n := range g.store.Pages(pager.PageKindNode) {
		count, err := g.store.ItemCount(n)
		if err == nil && count > 0 {
			return false
		}
	}
	return true
}

// VectorProvider implements Graph.
func (g *DiskGraph) VectorProvider() VectorProvider {
	return g.provider
}

// Meta implements Graph.
func (g *DiskGraph) Meta() *MetaPage {
	return g.meta
}

// SetNeighbors implements Graph. The node record is rewritten in place; on
// a read-only store this fails with pager.ErrReadOnly. The first node ever
// given neighbors becomes the index entry point.
func (g *DiskGraph) SetNeighbors(ctx context.Context, of pager.Pointer, neighbors []Neighbor) error {
	if len(neighbors) > g.meta.MaxFanOut() {
		return fmt.Errorf("%w: %d neighbors for %s, budget %d", ErrTooManyNeighbors, len(neighbors), of, g.meta.MaxFanOut())
	}

	if g.meta.InitIDs() == nil {
		if err := g.meta.SetInitIDs([]pager.Pointer{of}); err != nil {
			return fmt.Errorf("register entry point %s: %w", of, err)
		}
		meta, err := ReadMetaPage(g.store)
		if err != nil {
			return err
		}
		g.meta = meta
	}

	node, err := g.Read(ctx, of)
	if err != nil {
		return err
	}
	node.Neighbors = cloneNeighbors(neighbors)

	record, err := EncodeNode(node, g.meta.MaxFanOut())
	if err != nil {
		return err
	}
	return g.store.WriteItem(of, record)
}
