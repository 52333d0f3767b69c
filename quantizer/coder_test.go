package quantizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vamana/pager"
)

func TestNodeCoderEncodeAndStore(t *testing.T) {
	store := pager.NewMemoryStore()
	s := NewStorage(store)
	cb := testCodebook()

	coder, err := NewNodeCoder(s, cb)
	require.NoError(t, err)
	assert.Same(t, cb, coder.Codebook())

	head, err := coder.EncodeAndStore(context.Background(), []float32{9, 9, 4, 6})
	require.NoError(t, err)
	require.False(t, head.IsNil())

	code, err := s.ReadCode(head, cb.Subspaces)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0}, code)

	vec, err := cb.Decode(code)
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 10, 5, 5}, vec)
}

func TestNodeCoderRejectsInvalidCodebook(t *testing.T) {
	cb := testCodebook()
	cb.Subspaces = 0

	_, err := NewNodeCoder(NewStorage(pager.NewMemoryStore()), cb)
	assert.Error(t, err)
}

func TestNodeCoderDimensionMismatch(t *testing.T) {
	coder, err := NewNodeCoder(NewStorage(pager.NewMemoryStore()), testCodebook())
	require.NoError(t, err)

	_, err = coder.EncodeAndStore(context.Background(), []float32{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
