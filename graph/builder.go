package graph

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/hupe1980/vamana/pager"
)

// WriteStats accounts for one finalize pass. Counters are diagnostics, not
// correctness-critical.
type WriteStats struct {
	Started              time.Time
	Nodes                int64
	Prunes               int64
	NeighborsBeforePrune int64
	NeighborsAfterPrune  int64
	Neighbors            int64
}

// NewWriteStats starts the clock for a finalize pass.
func NewWriteStats() *WriteStats {
	return &WriteStats{Started: time.Now()}
}

// Elapsed is the time since the pass started.
func (s *WriteStats) Elapsed() time.Duration {
	return time.Since(s.Started)
}

// BuilderOption configures a BuilderGraph.
type BuilderOption func(*BuilderGraph)

// WithLogger sets the logger used during Write.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *BuilderGraph) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithPruningPolicy replaces the default RobustPrune policy.
func WithPruningPolicy(p PruningPolicy) BuilderOption {
	return func(b *BuilderGraph) {
		if p != nil {
			b.policy = p
		}
	}
}

// BuilderGraph accumulates the whole graph in memory during index
// construction and flushes it to the page store in one finalize pass.
// It is the sole owner of its adjacency map: created once per build,
// mutated through SetNeighbors by a single writer, consumed exactly once
// by Write.
type BuilderGraph struct {
	store    pager.PageStore
	meta     *MetaPage
	provider VectorProvider
	policy   PruningPolicy
	logger   *slog.Logger

	neighborMap map[pager.Pointer][]Neighbor
	written     bool
}

// NewBuilderGraph creates a builder over store with the given metadata
// snapshot and vector provider.
func NewBuilderGraph(store pager.PageStore, meta *MetaPage, provider VectorProvider, opts ...BuilderOption) *BuilderGraph {
	b := &BuilderGraph{
		store:       store,
		meta:        meta,
		provider:    provider,
		policy:      NewRobustPrune(DefaultAlpha),
		logger:      slog.New(slog.DiscardHandler),
		neighborMap: make(map[pager.Pointer][]Neighbor),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Read implements Graph against the committed node records.
func (b *BuilderGraph) Read(_ context.Context, ptr pager.Pointer) (*Node, error) {
	data, err := b.store.ReadItem(ptr)
	if err != nil {
		return nil, err
	}
	return DecodeNode(ptr, data, b.meta.MaxFanOut())
}

// InitIDs implements Graph.
func (b *BuilderGraph) InitIDs() []pager.Pointer {
	return b.meta.InitIDs()
}

// Neighbors implements Graph from the in-memory adjacency map.
func (b *BuilderGraph) Neighbors(_ *Node, of pager.Pointer) []pager.Pointer {
	return pointersOf(b.neighborMap[of])
}

// NeighborsWithDistances implements Graph.
func (b *BuilderGraph) NeighborsWithDistances(of pager.Pointer, out *[]Neighbor) (bool, error) {
	*out = (*out)[:0]
	list, ok := b.neighborMap[of]
	if !ok {
		return false, nil
	}
	*out = append(*out, list...)
	return true, nil
}

// IsEmpty implements Graph.
func (b *BuilderGraph) IsEmpty() bool {
	return len(b.neighborMap) == 0
}

// VectorProvider implements Graph.
func (b *BuilderGraph) VectorProvider() VectorProvider {
	return b.provider
}

// Meta implements Graph.
func (b *BuilderGraph) Meta() *MetaPage {
	return b.meta
}

// SetNeighbors implements Graph. The list replaces any previous entry for
// the node. The first node ever given neighbors is registered as the index
// entry point; the metadata snapshot is re-read afterwards so the builder
// sees exactly what a fresh reader would.
func (b *BuilderGraph) SetNeighbors(_ context.Context, of pager.Pointer, neighbors []Neighbor) error {
	if b.written {
		return ErrAlreadyWritten
	}

	if b.meta.InitIDs() == nil {
		if err := b.meta.SetInitIDs([]pager.Pointer{of}); err != nil {
			return fmt.Errorf("register entry point %s: %w", of, err)
		}
		meta, err := ReadMetaPage(b.store)
		if err != nil {
			return err
		}
		b.meta = meta
	}

	b.neighborMap[of] = cloneNeighbors(neighbors)
	return nil
}

// Write finalizes the build: every accumulated neighbor list is pruned to
// the fan-out budget where needed and committed onto its node record, in
// ascending pointer order for reproducible builds. With quantization
// enabled, each node's full vector is re-fetched through its heap pointer
// and its code re-encoded via coder.
//
// Write consumes the builder; a second call fails with ErrAlreadyWritten.
// Any store or policy failure aborts the pass immediately.
func (b *BuilderGraph) Write(ctx context.Context, coder NodeCoder) (*WriteStats, error) {
	if b.written {
		return nil, ErrAlreadyWritten
	}
	b.written = true

	quantized := b.meta.Quantization() != QuantizationNone
	if quantized && coder == nil {
		return nil, ErrMissingCoder
	}

	stats := NewWriteStats()
	maxFanOut := b.meta.MaxFanOut()

	ptrs := make([]pager.Pointer, 0, len(b.neighborMap))
	for ptr := range b.neighborMap {
		ptrs = append(ptrs, ptr)
	}
	slices.SortFunc(ptrs, pager.Pointer.Compare)

	for _, of := range ptrs {
		list := b.neighborMap[of]
		stats.Nodes++

		final := list
		if len(list) > maxFanOut {
			stats.Prunes++
			stats.NeighborsBeforePrune += int64(len(list))

			pruned, err := b.policy.Prune(ctx, b, of, list, nil, maxFanOut)
			if err != nil {
				return nil, err
			}
			if len(pruned) > maxFanOut {
				return nil, fmt.Errorf("pruning policy kept %d neighbors for %s, budget %d", len(pruned), of, maxFanOut)
			}

			final = pruned
			stats.NeighborsAfterPrune += int64(len(final))
		}
		stats.Neighbors += int64(len(final))

		node, err := b.Read(ctx, of)
		if err != nil {
			return nil, err
		}
		node.Neighbors = cloneNeighbors(final)

		if quantized {
			vec, err := b.provider.FullVector(ctx, node.HeapPointer)
			if err != nil {
				return nil, err
			}
			codePtr, err := coder.EncodeAndStore(ctx, vec)
			if err != nil {
				return nil, fmt.Errorf("encode node %s: %w", of, err)
			}
			node.CodePointer = codePtr
		}

		record, err := EncodeNode(node, maxFanOut)
		if err != nil {
			return nil, err
		}
		if err := b.store.WriteItem(of, record); err != nil {
			return nil, fmt.Errorf("commit node %s: %w", of, err)
		}
	}

	b.logger.DebugContext(ctx, "graph write complete",
		slog.Int64("nodes", stats.Nodes),
		slog.Int64("prunes", stats.Prunes),
		slog.Int64("neighbors", stats.Neighbors),
		slog.Duration("elapsed", stats.Elapsed()),
	)

	return stats, nil
}
