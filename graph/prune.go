package graph

import (
	"context"
	"fmt"
	"slices"

	"github.com/hupe1980/vamana/pager"
)

// DefaultAlpha is the diversity factor used when none is configured.
// Values above 1 keep more long-range edges and improve recall at the
// cost of a denser graph.
const DefaultAlpha = 1.2

// PruningPolicy reduces an over-budget candidate list to at most maxFanOut
// neighbors while preserving graph connectivity under the index's distance
// metric. Policies are pluggable; RobustPrune is the default.
type PruningPolicy interface {
	Prune(ctx context.Context, g Graph, of pager.Pointer, candidates, extra []Neighbor, maxFanOut int) ([]Neighbor, error)
}

// RobustPrune implements Vamana's alpha-diversity pruning: candidates are
// visited closest-first and kept unless an already-selected neighbor
// dominates them.
type RobustPrune struct {
	alpha float32
}

// NewRobustPrune creates the policy. Alpha values at or below zero fall
// back to DefaultAlpha.
func NewRobustPrune(alpha float32) *RobustPrune {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	return &RobustPrune{alpha: alpha}
}

// Alpha returns the configured diversity factor.
func (rp *RobustPrune) Alpha() float32 {
	return rp.alpha
}

// Prune implements PruningPolicy.
func (rp *RobustPrune) Prune(ctx context.Context, g Graph, of pager.Pointer, candidates, extra []Neighbor, maxFanOut int) ([]Neighbor, error) {
	if maxFanOut <= 0 {
		return nil, nil
	}

	merged := make([]Neighbor, 0, len(candidates)+len(extra))
	seen := make(map[pager.Pointer]struct{}, len(candidates)+len(extra))
	for _, c := range slices.Concat(candidates, extra) {
		if c.Pointer == of {
			return nil, fmt.Errorf("prune %s: %w", of, ErrSelfReference)
		}
		if _, ok := seen[c.Pointer]; ok {
			continue
		}
		seen[c.Pointer] = struct{}{}
		merged = append(merged, c)
	}

	slices.SortFunc(merged, func(a, b Neighbor) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return a.Pointer.Compare(b.Pointer)
		}
	})

	provider := g.VectorProvider()
	vectors := make(map[pager.Pointer][]float32, len(merged))
	vectorOf := func(ptr pager.Pointer) ([]float32, error) {
		if vec, ok := vectors[ptr]; ok {
			return vec, nil
		}
		node, err := g.Read(ctx, ptr)
		if err != nil {
			return nil, err
		}
		vec, err := provider.FullVector(ctx, node.HeapPointer)
		if err != nil {
			return nil, err
		}
		vectors[ptr] = vec
		return vec, nil
	}

	selected := make([]Neighbor, 0, maxFanOut)
	for _, c := range merged {
		if len(selected) >= maxFanOut {
			break
		}

		cv, err := vectorOf(c.Pointer)
		if err != nil {
			return nil, err
		}

		dominated := false
		for _, s := range selected {
			sv, err := vectorOf(s.Pointer)
			if err != nil {
				return nil, err
			}
			distCS, err := provider.Distance(cv, sv)
			if err != nil {
				return nil, err
			}
			if rp.alpha*distCS < c.Distance {
				dominated = true
				break
			}
		}

		if !dominated {
			selected = append(selected, c)
		}
	}

	return selected, nil
}
