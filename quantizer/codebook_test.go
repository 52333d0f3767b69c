package quantizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCodebook has two subspaces of two values each, with centroids far
// enough apart that nearest-centroid assignment is unambiguous.
func testCodebook() *Codebook {
	return &Codebook{
		Subspaces: 2,
		Clusters:  2,
		SubLen:    2,
		Centroids: []float32{
			0, 0, // subspace 0, cluster 0
			10, 10, // subspace 0, cluster 1
			5, 5, // subspace 1, cluster 0
			-5, -5, // subspace 1, cluster 1
		},
	}
}

func TestCodebookValidate(t *testing.T) {
	require.NoError(t, testCodebook().Validate())

	tests := []struct {
		name string
		mod  func(*Codebook)
	}{
		{name: "zero subspaces", mod: func(cb *Codebook) { cb.Subspaces = 0 }},
		{name: "zero clusters", mod: func(cb *Codebook) { cb.Clusters = 0 }},
		{name: "zero sublen", mod: func(cb *Codebook) { cb.SubLen = 0 }},
		{name: "too many clusters", mod: func(cb *Codebook) { cb.Clusters = MaxClusters + 1 }},
		{name: "centroid count mismatch", mod: func(cb *Codebook) { cb.Centroids = cb.Centroids[:6] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := testCodebook()
			tt.mod(cb)
			assert.Error(t, cb.Validate())
		})
	}
}

func TestCodebookDimensions(t *testing.T) {
	assert.Equal(t, 4, testCodebook().Dimensions())
}

func TestCodebookEncode(t *testing.T) {
	cb := testCodebook()

	code, err := cb.Encode([]float32{9, 9, 4, 6})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0}, code)

	code, err = cb.Encode([]float32{1, -1, -4, -6})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1}, code)
}

func TestCodebookEncodeDimensionMismatch(t *testing.T) {
	_, err := testCodebook().Encode([]float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCodebookDecode(t *testing.T) {
	cb := testCodebook()

	vec, err := cb.Decode([]byte{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 10, 5, 5}, vec)
}

func TestCodebookDecodeBadCluster(t *testing.T) {
	_, err := testCodebook().Decode([]byte{0, 2})
	assert.Error(t, err)
}

func TestCodebookDecodeWrongLength(t *testing.T) {
	_, err := testCodebook().Decode([]byte{0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCodebookEncodeDecodeApproximates(t *testing.T) {
	cb := testCodebook()

	code, err := cb.Encode([]float32{11, 9, 5.5, 4.5})
	require.NoError(t, err)

	vec, err := cb.Decode(code)
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 10, 5, 5}, vec)
}
