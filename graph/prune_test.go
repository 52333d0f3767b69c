package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vamana/pager"
)

func TestNewRobustPruneDefaultAlpha(t *testing.T) {
	assert.InDelta(t, DefaultAlpha, NewRobustPrune(0).Alpha(), 1e-6)
	assert.InDelta(t, DefaultAlpha, NewRobustPrune(-1).Alpha(), 1e-6)
	assert.InDelta(t, 1.5, NewRobustPrune(1.5).Alpha(), 1e-6)
}

func TestRobustPruneDropsDominatedCandidates(t *testing.T) {
	// Collinear points: once the nearest is selected it dominates
	// everything further along the same direction.
	f := newFixture(t, 1, 8, QuantizationNone, [][]float32{
		{0}, {1}, {2}, {4},
	})
	g := NewBuilderGraph(f.store, f.meta, f.provider)

	candidates := f.neighbors(t, 0, 1, 2, 3)
	got, err := NewRobustPrune(DefaultAlpha).Prune(context.Background(), g, f.ptrs[0], candidates, nil, 8)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, f.ptrs[1], got[0].Pointer)
}

func TestRobustPruneKeepsDiverseCandidates(t *testing.T) {
	// Four points on orthogonal axes dominate none of each other.
	f := newFixture(t, 2, 8, QuantizationNone, [][]float32{
		{0, 0}, {1, 0}, {0, 1}, {-1, 0}, {0, -1},
	})
	g := NewBuilderGraph(f.store, f.meta, f.provider)

	candidates := f.neighbors(t, 0, 1, 2, 3, 4)
	got, err := NewRobustPrune(DefaultAlpha).Prune(context.Background(), g, f.ptrs[0], candidates, nil, 8)
	require.NoError(t, err)

	assert.Len(t, got, 4)
}

func TestRobustPruneHonorsBudget(t *testing.T) {
	f := newFixture(t, 2, 8, QuantizationNone, [][]float32{
		{0, 0}, {1, 0}, {0, 1}, {-1, 0}, {0, -1},
	})
	g := NewBuilderGraph(f.store, f.meta, f.provider)

	candidates := f.neighbors(t, 0, 1, 2, 3, 4)
	got, err := NewRobustPrune(DefaultAlpha).Prune(context.Background(), g, f.ptrs[0], candidates, nil, 2)
	require.NoError(t, err)

	// Equal distances break ties by pointer order.
	require.Len(t, got, 2)
	assert.Equal(t, f.ptrs[1], got[0].Pointer)
	assert.Equal(t, f.ptrs[2], got[1].Pointer)
}

func TestRobustPruneZeroBudget(t *testing.T) {
	f := newFixture(t, 1, 8, QuantizationNone, [][]float32{{0}, {1}})
	g := NewBuilderGraph(f.store, f.meta, f.provider)

	got, err := NewRobustPrune(DefaultAlpha).Prune(context.Background(), g, f.ptrs[0], f.neighbors(t, 0, 1), nil, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRobustPruneMergesExtraCandidates(t *testing.T) {
	f := newFixture(t, 2, 8, QuantizationNone, [][]float32{
		{0, 0}, {1, 0}, {0, 1}, {-1, 0}, {0, -1},
	})
	g := NewBuilderGraph(f.store, f.meta, f.provider)

	candidates := f.neighbors(t, 0, 3)
	extra := f.neighbors(t, 0, 1)
	got, err := NewRobustPrune(DefaultAlpha).Prune(context.Background(), g, f.ptrs[0], candidates, extra, 8)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, f.ptrs[1], got[0].Pointer)
	assert.Equal(t, f.ptrs[3], got[1].Pointer)
}

func TestRobustPruneDeduplicates(t *testing.T) {
	f := newFixture(t, 2, 8, QuantizationNone, [][]float32{
		{0, 0}, {1, 0}, {0, 1},
	})
	g := NewBuilderGraph(f.store, f.meta, f.provider)

	candidates := f.neighbors(t, 0, 1, 1)
	extra := f.neighbors(t, 0, 2)
	got, err := NewRobustPrune(DefaultAlpha).Prune(context.Background(), g, f.ptrs[0], candidates, extra, 8)
	require.NoError(t, err)

	assert.Len(t, got, 2)
}

func TestRobustPruneSelfReference(t *testing.T) {
	f := newFixture(t, 1, 8, QuantizationNone, [][]float32{{0}, {1}})
	g := NewBuilderGraph(f.store, f.meta, f.provider)

	candidates := []Neighbor{
		{Pointer: f.ptrs[1], Distance: 1},
		{Pointer: f.ptrs[0], Distance: 0},
	}
	_, err := NewRobustPrune(DefaultAlpha).Prune(context.Background(), g, f.ptrs[0], candidates, nil, 8)
	assert.ErrorIs(t, err, ErrSelfReference)
}

func TestRobustPruneDanglingCandidate(t *testing.T) {
	f := newFixture(t, 1, 8, QuantizationNone, [][]float32{{0}})
	g := NewBuilderGraph(f.store, f.meta, f.provider)

	candidates := []Neighbor{
		{Pointer: pager.Pointer{PageNumber: 99, Slot: 1}, Distance: 1},
	}
	_, err := NewRobustPrune(DefaultAlpha).Prune(context.Background(), g, f.ptrs[0], candidates, nil, 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, pager.ErrCorrupted)
}
