package vamana

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/vamana/graph"
	"github.com/hupe1980/vamana/pager"
	"github.com/hupe1980/vamana/quantizer"
	"github.com/hupe1980/vamana/resource"
)

// IndexWriter builds a Vamana graph index. Vectors are appended first,
// neighbor lists are assigned as construction progresses, and Finalize
// prunes and commits every node record in one pass. The finished index is
// persisted with Save or Archive and reopened read-only with Open.
//
// An IndexWriter is single-writer: methods must not be called
// concurrently. Exclusivity is the caller's contract.
type IndexWriter struct {
	opts     options
	store    *pager.MemoryStore
	meta     *graph.MetaPage
	provider *graph.TapeVectorProvider
	nodes    *pager.Tape
	builder  *graph.BuilderGraph
	storage  *quantizer.Storage
	coder    *quantizer.NodeCoder

	memHeld int64
	stats   *graph.WriteStats
	closed  bool
}

// NewIndexWriter creates a writer for vectors of the given dimensionality.
func NewIndexWriter(dims int, optFns ...Option) (*IndexWriter, error) {
	if dims < 1 {
		return nil, &ErrInvalidDimension{Dimension: dims}
	}

	o := applyOptions(optFns)

	quant := graph.QuantizationNone
	if o.codebook != nil {
		if got := o.codebook.Dimensions(); got != dims {
			return nil, &ErrDimensionMismatch{Expected: dims, Actual: got, cause: quantizer.ErrDimensionMismatch}
		}
		quant = graph.QuantizationProduct
	}

	store := pager.NewMemoryStore()
	meta, err := graph.CreateMetaPage(store, dims, o.maxFanOut, quant)
	if err != nil {
		return nil, err
	}

	provider := graph.NewTapeVectorProvider(store, o.distFn)

	policy := o.policy
	if policy == nil {
		policy = graph.NewRobustPrune(o.alpha)
	}
	builder := graph.NewBuilderGraph(store, meta, provider,
		graph.WithLogger(o.logger.Logger),
		graph.WithPruningPolicy(policy),
	)

	w := &IndexWriter{
		opts:     o,
		store:    store,
		meta:     meta,
		provider: provider,
		nodes:    pager.NewTape(store, pager.PageKindNode),
		builder:  builder,
	}

	if quant == graph.QuantizationProduct {
		w.storage = quantizer.NewStorage(store)
		w.coder, err = quantizer.NewNodeCoder(w.storage, o.codebook)
		if err != nil {
			return nil, err
		}
	}

	return w, nil
}

// AddVector appends a full-precision vector and creates its graph node.
// The returned pointer names the node in SetNeighbors calls and stays
// valid in the persisted index.
func (w *IndexWriter) AddVector(ctx context.Context, vec []float32) (pager.Pointer, error) {
	if w.closed {
		return pager.Pointer{}, ErrClosed
	}
	if w.stats != nil {
		return pager.Pointer{}, ErrFinalized
	}
	if len(vec) != w.meta.Dimensions() {
		return pager.Pointer{}, &ErrDimensionMismatch{Expected: w.meta.Dimensions(), Actual: len(vec)}
	}

	bytes := int64(4 * len(vec))
	if err := w.opts.controller.AcquireMemory(ctx, bytes); err != nil {
		return pager.Pointer{}, err
	}
	w.memHeld += bytes

	heap, err := w.provider.Append(vec)
	if err != nil {
		return pager.Pointer{}, err
	}

	record, err := graph.EncodeNode(&graph.Node{HeapPointer: heap}, w.meta.MaxFanOut())
	if err != nil {
		return pager.Pointer{}, err
	}
	return w.nodes.Write(record)
}

// SetNeighbors assigns a node's neighbor list. The list may exceed the
// fan-out budget; Finalize prunes it down. The first node ever given
// neighbors becomes the traversal entry point.
func (w *IndexWriter) SetNeighbors(ctx context.Context, of pager.Pointer, neighbors []graph.Neighbor) error {
	if w.closed {
		return ErrClosed
	}
	if w.stats != nil {
		return ErrFinalized
	}
	return w.builder.SetNeighbors(ctx, of, neighbors)
}

// Graph exposes the in-memory builder graph, for construction loops that
// read current neighbor lists while deciding new ones.
func (w *IndexWriter) Graph() *graph.BuilderGraph {
	return w.builder
}

// Meta returns the index-wide metadata.
func (w *IndexWriter) Meta() *graph.MetaPage {
	return w.meta
}

// Finalize prunes every neighbor list to the fan-out budget and commits
// all node records. With quantization enabled it also encodes every
// node's code and persists the codebook. A writer is finalized at most
// once.
func (w *IndexWriter) Finalize(ctx context.Context) (*graph.WriteStats, error) {
	if w.closed {
		return nil, ErrClosed
	}
	if w.stats != nil {
		return nil, ErrFinalized
	}

	var coder graph.NodeCoder
	if w.coder != nil {
		coder = w.coder
	}

	start := time.Now()
	stats, err := w.builder.Write(ctx, coder)
	if err != nil {
		w.opts.metricsCollector.RecordGraphWrite(0, 0, time.Since(start), err)
		w.opts.logger.LogWrite(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}

	if w.storage != nil {
		if _, err := w.storage.WriteCodebook(w.opts.codebook); err != nil {
			return nil, fmt.Errorf("persist codebook: %w", err)
		}
	}

	w.stats = stats
	w.opts.metricsCollector.RecordGraphWrite(stats.Nodes, stats.Neighbors, stats.Elapsed(), nil)
	if stats.Prunes > 0 {
		w.opts.metricsCollector.RecordPrune(stats.Prunes, stats.NeighborsBeforePrune, stats.NeighborsAfterPrune)
	}
	w.opts.logger.LogWrite(ctx, stats.Nodes, stats.Neighbors, stats.Elapsed(), nil)
	w.opts.logger.LogPrune(ctx, stats.Prunes, stats.NeighborsBeforePrune, stats.NeighborsAfterPrune)

	return stats, nil
}

// Stats returns the finalize statistics, nil before Finalize.
func (w *IndexWriter) Stats() *graph.WriteStats {
	return w.stats
}

// Save writes the finalized index to path as a single snapshot file,
// atomically. Writes are throttled against the resource controller's IO
// budget.
func (w *IndexWriter) Save(ctx context.Context, path string) error {
	if w.closed {
		return ErrClosed
	}
	if w.stats == nil {
		return ErrNotFinalized
	}

	start := time.Now()
	err := w.save(ctx, path)
	w.opts.metricsCollector.RecordSnapshot(time.Since(start), err)
	w.opts.logger.LogSnapshot(ctx, path, err)
	return err
}

func (w *IndexWriter) save(ctx context.Context, path string) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(resource.NewThrottledWriter(ctx, w.opts.controller, tmp), 256*1024)
	if _, err := pager.WriteSnapshot(buf, w.store, w.opts.compression); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// Close releases the writer's resources, returning its memory reservation
// to the controller. Close is idempotent.
func (w *IndexWriter) Close() error {
	if w == nil || w.closed {
		return nil
	}
	w.closed = true

	w.opts.controller.ReleaseMemory(w.memHeld)
	w.memHeld = 0

	return w.store.Close()
}

// Index is a read-only view over a persisted index snapshot.
type Index struct {
	store    pager.PageStore
	graph    *graph.DiskGraph
	storage  *quantizer.Storage
	codebook *quantizer.Codebook
	closed   bool
}

// Open reopens a snapshot written by Save or Restore. Uncompressed
// snapshots are memory-mapped; compressed ones are inflated into memory.
// Only WithDistanceFunc affects the opened index.
func Open(path string, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)

	store, err := pager.Open(path)
	if err != nil {
		return nil, err
	}

	g, err := graph.NewDiskGraph(store, o.distFn)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	ix := &Index{store: store, graph: g}
	if g.Meta().Quantization() != graph.QuantizationNone {
		ix.storage = quantizer.NewStorage(store)
		ix.codebook, err = readCodebook(store, ix.storage)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return ix, nil
}

// readCodebook locates the codebook definition. Finalize writes exactly
// one, at the first slot of the lowest definition page.
func readCodebook(store pager.PageStore, storage *quantizer.Storage) (*quantizer.Codebook, error) {
	for n := range store.Pages(pager.PageKindQuantizerDef) {
		return storage.ReadCodebook(pager.Pointer{PageNumber: n, Slot: 1})
	}
	return nil, &pager.CorruptionError{
		Ptr:    graph.MetaPointer,
		Reason: "quantization enabled but no codebook definition present",
	}
}

// Graph returns the persisted graph view.
func (ix *Index) Graph() *graph.DiskGraph {
	return ix.graph
}

// Meta returns the index-wide metadata.
func (ix *Index) Meta() *graph.MetaPage {
	return ix.graph.Meta()
}

// Codebook returns the trained quantization model, nil when the index
// stores no codes.
func (ix *Index) Codebook() *quantizer.Codebook {
	return ix.codebook
}

// Code returns the quantized code of the node at of. Decode it through
// Codebook to reconstruct the approximate vector.
func (ix *Index) Code(ctx context.Context, of pager.Pointer) ([]byte, error) {
	if ix.closed {
		return nil, ErrClosed
	}
	if ix.codebook == nil {
		return nil, ErrNoCodebook
	}

	node, err := ix.graph.Read(ctx, of)
	if err != nil {
		return nil, err
	}
	if node.CodePointer.IsNil() {
		return nil, &pager.CorruptionError{
			Ptr:    of,
			Reason: "quantized index node carries no code pointer",
		}
	}
	return ix.storage.ReadCode(node.CodePointer, ix.codebook.Subspaces)
}

// Close unmaps or frees the underlying store. Close is idempotent.
func (ix *Index) Close() error {
	if ix == nil || ix.closed {
		return nil
	}
	ix.closed = true
	return ix.store.Close()
}
