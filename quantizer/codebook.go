package quantizer

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vamana/metric"
)

// MaxClusters is the number of centroids a subspace can hold; codes store
// one byte per subspace.
const MaxClusters = 256

// ErrDimensionMismatch is returned when a vector's length does not match
// the codebook geometry.
var ErrDimensionMismatch = errors.New("vector length does not match codebook")

// Codebook is a trained product-quantization model: for each subspace a
// set of centroids over that slice of the vector. Centroids is the
// flattened (Subspaces, Clusters, SubLen) tensor in row-major order.
// Training happens offline; the index only stores and applies the model.
type Codebook struct {
	Subspaces int
	Clusters  int
	SubLen    int
	Centroids []float32
}

// Validate checks the codebook geometry.
func (cb *Codebook) Validate() error {
	if cb.Subspaces < 1 || cb.Clusters < 1 || cb.SubLen < 1 {
		return fmt.Errorf("codebook shape (%d, %d, %d) has an empty axis", cb.Subspaces, cb.Clusters, cb.SubLen)
	}
	if cb.Clusters > MaxClusters {
		return fmt.Errorf("%d clusters exceed the one-byte code range of %d", cb.Clusters, MaxClusters)
	}
	if want := cb.Subspaces * cb.Clusters * cb.SubLen; len(cb.Centroids) != want {
		return fmt.Errorf("codebook holds %d centroid values, shape (%d, %d, %d) needs %d",
			len(cb.Centroids), cb.Subspaces, cb.Clusters, cb.SubLen, want)
	}
	return nil
}

// Dimensions returns the full vector length the codebook encodes.
func (cb *Codebook) Dimensions() int {
	return cb.Subspaces * cb.SubLen
}

// centroid returns the centroid vector for cluster c of subspace s.
func (cb *Codebook) centroid(s, c int) []float32 {
	off := (s*cb.Clusters + c) * cb.SubLen
	return cb.Centroids[off : off+cb.SubLen]
}

// Encode maps a full-precision vector to its code, one byte per subspace
// naming the nearest centroid under squared L2.
func (cb *Codebook) Encode(vec []float32) ([]byte, error) {
	if len(vec) != cb.Dimensions() {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, len(vec), cb.Dimensions())
	}

	code := make([]byte, cb.Subspaces)
	for s := 0; s < cb.Subspaces; s++ {
		sub := vec[s*cb.SubLen : (s+1)*cb.SubLen]

		best := 0
		var bestDist float32
		for c := 0; c < cb.Clusters; c++ {
			d, err := metric.SquaredL2(sub, cb.centroid(s, c))
			if err != nil {
				return nil, err
			}
			if c == 0 || d < bestDist {
				best, bestDist = c, d
			}
		}
		code[s] = byte(best)
	}
	return code, nil
}

// Decode reconstructs the approximate vector a code stands for.
func (cb *Codebook) Decode(code []byte) ([]float32, error) {
	if len(code) != cb.Subspaces {
		return nil, fmt.Errorf("%w: code has %d bytes, want %d", ErrDimensionMismatch, len(code), cb.Subspaces)
	}

	vec := make([]float32, 0, cb.Dimensions())
	for s, c := range code {
		if int(c) >= cb.Clusters {
			return nil, fmt.Errorf("code names cluster %d of %d in subspace %d", c, cb.Clusters, s)
		}
		vec = append(vec, cb.centroid(s, int(c))...)
	}
	return vec, nil
}
