package vamana

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vamana/graph"
	"github.com/hupe1980/vamana/pager"
	"github.com/hupe1980/vamana/quantizer"
	"github.com/hupe1980/vamana/resource"
)

// ringVectors is one center point surrounded by n points evenly spaced on
// the unit circle.
func ringVectors(n int) [][]float32 {
	vecs := [][]float32{{0, 0}}
	for i := range n {
		angle := 2 * math.Pi * float64(i) / float64(n)
		vecs = append(vecs, []float32{float32(math.Cos(angle)), float32(math.Sin(angle))})
	}
	return vecs
}

// buildRing adds the ring to a fresh writer and wires the center to every
// ring point and every ring point back to the center.
func buildRing(t *testing.T, n, maxFanOut int, optFns ...Option) (*IndexWriter, []pager.Pointer) {
	t.Helper()

	w, err := NewIndexWriter(2, append([]Option{WithMaxFanOut(maxFanOut)}, optFns...)...)
	require.NoError(t, err)

	ctx := context.Background()
	ptrs := make([]pager.Pointer, 0, n+1)
	for _, vec := range ringVectors(n) {
		ptr, err := w.AddVector(ctx, vec)
		require.NoError(t, err)
		ptrs = append(ptrs, ptr)
	}

	ring := make([]graph.Neighbor, 0, n)
	for _, ptr := range ptrs[1:] {
		ring = append(ring, graph.Neighbor{Pointer: ptr, Distance: 1})
	}
	require.NoError(t, w.SetNeighbors(ctx, ptrs[0], ring))
	for _, ptr := range ptrs[1:] {
		require.NoError(t, w.SetNeighbors(ctx, ptr, []graph.Neighbor{{Pointer: ptrs[0], Distance: 1}}))
	}
	return w, ptrs
}

func neighborPointers(neighbors []graph.Neighbor) []pager.Pointer {
	out := make([]pager.Pointer, 0, len(neighbors))
	for _, n := range neighbors {
		out = append(out, n.Pointer)
	}
	return out
}

func TestNewIndexWriterValidation(t *testing.T) {
	t.Run("InvalidDimension", func(t *testing.T) {
		for _, dims := range []int{0, -1} {
			_, err := NewIndexWriter(dims)
			var ie *ErrInvalidDimension
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, dims, ie.Dimension)
		}
	})

	t.Run("CodebookMismatch", func(t *testing.T) {
		cb := &quantizer.Codebook{Subspaces: 2, Clusters: 1, SubLen: 2, Centroids: make([]float32, 4)}
		_, err := NewIndexWriter(8, WithQuantization(cb))
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 8, dm.Expected)
		assert.Equal(t, 4, dm.Actual)
		assert.ErrorIs(t, err, quantizer.ErrDimensionMismatch)
	})
}

func TestIndexWriterBuildSaveOpen(t *testing.T) {
	w, ptrs := buildRing(t, 10, 5)
	defer w.Close()
	ctx := context.Background()

	stats, err := w.Finalize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 11, stats.Nodes)
	assert.EqualValues(t, 1, stats.Prunes)
	assert.EqualValues(t, 10, stats.NeighborsBeforePrune)
	assert.Same(t, stats, w.Stats())

	path := filepath.Join(t.TempDir(), "index.vamana")
	require.NoError(t, w.Save(ctx, path))

	ix, err := Open(path)
	require.NoError(t, err)
	defer ix.Close()

	assert.Equal(t, 2, ix.Meta().Dimensions())
	assert.Equal(t, 5, ix.Meta().MaxFanOut())
	assert.Equal(t, []pager.Pointer{ptrs[0]}, ix.Graph().InitIDs())

	// Ten ring candidates thin out to the diverse pentagon.
	center, err := ix.Graph().Read(ctx, ptrs[0])
	require.NoError(t, err)
	want := []pager.Pointer{ptrs[1], ptrs[3], ptrs[5], ptrs[7], ptrs[9]}
	assert.Equal(t, want, neighborPointers(center.Neighbors))

	spoke, err := ix.Graph().Read(ctx, ptrs[3])
	require.NoError(t, err)
	assert.Equal(t, []pager.Pointer{ptrs[0]}, neighborPointers(spoke.Neighbors))

	assert.Nil(t, ix.Codebook())
	_, err = ix.Code(ctx, ptrs[0])
	assert.ErrorIs(t, err, ErrNoCodebook)
}

func TestIndexWriterUncompressedReopensReadOnly(t *testing.T) {
	w, ptrs := buildRing(t, 4, 4, WithCompression(pager.CompressionNone))
	defer w.Close()
	ctx := context.Background()

	_, err := w.Finalize(ctx)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "index.vamana")
	require.NoError(t, w.Save(ctx, path))

	ix, err := Open(path)
	require.NoError(t, err)
	defer ix.Close()

	node, err := ix.Graph().Read(ctx, ptrs[1])
	require.NoError(t, err)
	assert.Equal(t, []pager.Pointer{ptrs[0]}, neighborPointers(node.Neighbors))

	err = ix.Graph().SetNeighbors(ctx, ptrs[1], nil)
	assert.ErrorIs(t, err, pager.ErrReadOnly)
}

func TestIndexWriterRejectsWrongDimension(t *testing.T) {
	w, err := NewIndexWriter(2)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.AddVector(context.Background(), []float32{1, 2, 3})
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
}

func TestIndexWriterLifecycleGuards(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	w, _ := buildRing(t, 3, 4)

	err := w.Save(ctx, filepath.Join(dir, "early.vamana"))
	assert.ErrorIs(t, err, ErrNotFinalized)
	_, err = w.Archive(ctx, nil, "idx")
	assert.ErrorIs(t, err, ErrNotFinalized)

	_, err = w.Finalize(ctx)
	require.NoError(t, err)

	_, err = w.Finalize(ctx)
	assert.ErrorIs(t, err, ErrFinalized)
	_, err = w.AddVector(ctx, []float32{0, 0})
	assert.ErrorIs(t, err, ErrFinalized)
	err = w.SetNeighbors(ctx, pager.Pointer{}, nil)
	assert.ErrorIs(t, err, ErrFinalized)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.AddVector(ctx, []float32{0, 0})
	assert.ErrorIs(t, err, ErrClosed)
	err = w.Save(ctx, filepath.Join(dir, "late.vamana"))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = w.Finalize(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestIndexWriterQuantizedRoundTrip(t *testing.T) {
	// Two subspaces of two dimensions, two clusters each. Centroids are
	// far apart so nearest-centroid assignment is unambiguous.
	cb := &quantizer.Codebook{
		Subspaces: 2,
		Clusters:  2,
		SubLen:    2,
		Centroids: []float32{
			0, 0, 1, 1, // subspace 0
			0, 0, 2, 2, // subspace 1
		},
	}

	w, err := NewIndexWriter(4, WithMaxFanOut(4), WithQuantization(cb))
	require.NoError(t, err)
	defer w.Close()
	ctx := context.Background()

	assert.Equal(t, graph.QuantizationProduct, w.Meta().Quantization())

	p0, err := w.AddVector(ctx, []float32{0.9, 1.1, 0.1, -0.1})
	require.NoError(t, err)
	p1, err := w.AddVector(ctx, []float32{0, 0, 2, 2})
	require.NoError(t, err)
	require.NoError(t, w.SetNeighbors(ctx, p0, []graph.Neighbor{{Pointer: p1, Distance: 1}}))

	_, err = w.Finalize(ctx)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "quantized.vamana")
	require.NoError(t, w.Save(ctx, path))

	ix, err := Open(path)
	require.NoError(t, err)
	defer ix.Close()

	require.NotNil(t, ix.Codebook())
	assert.Equal(t, cb, ix.Codebook())

	code, err := ix.Code(ctx, p0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0}, code)

	approx, err := ix.Codebook().Decode(code)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 0, 0}, approx)

	code, err = ix.Code(ctx, p1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1}, code)
}

func TestIndexWriterMemoryAccounting(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1024})

	w, err := NewIndexWriter(4, WithResourceController(rc))
	require.NoError(t, err)
	ctx := context.Background()

	for range 3 {
		_, err := w.AddVector(ctx, []float32{1, 2, 3, 4})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 48, rc.MemoryUsage())

	require.NoError(t, w.Close())
	assert.Zero(t, rc.MemoryUsage())
}

func TestOpenQuantizedWithoutCodebook(t *testing.T) {
	// A store whose metadata promises codes but whose definition tape is
	// empty is corrupt, not merely incomplete.
	store := pager.NewMemoryStore()
	_, err := graph.CreateMetaPage(store, 2, 4, graph.QuantizationProduct)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "broken.vamana")
	require.NoError(t, pager.Save(store, path, pager.CompressionNone))

	_, err = Open(path)
	require.ErrorIs(t, err, pager.ErrCorrupted)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.vamana"))
	require.Error(t, err)
}
