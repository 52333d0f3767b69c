package quantizer

import (
	"context"

	"github.com/hupe1980/vamana/graph"
	"github.com/hupe1980/vamana/pager"
)

// NodeCoder encodes node vectors through a codebook and persists the
// resulting codes. It plugs into the graph finalize pass.
type NodeCoder struct {
	codebook *Codebook
	storage  *Storage
}

var _ graph.NodeCoder = (*NodeCoder)(nil)

// NewNodeCoder creates a coder for the given codebook.
func NewNodeCoder(storage *Storage, codebook *Codebook) (*NodeCoder, error) {
	if err := codebook.Validate(); err != nil {
		return nil, err
	}
	return &NodeCoder{codebook: codebook, storage: storage}, nil
}

// Codebook returns the model the coder encodes with.
func (c *NodeCoder) Codebook() *Codebook {
	return c.codebook
}

// EncodeAndStore implements graph.NodeCoder.
func (c *NodeCoder) EncodeAndStore(_ context.Context, vec []float32) (pager.Pointer, error) {
	code, err := c.codebook.Encode(vec)
	if err != nil {
		return pager.Pointer{}, err
	}
	return c.storage.WriteCode(code)
}
