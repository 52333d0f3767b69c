// Package metric provides float32 vector kernels used for cached neighbor
// distances and pruning during graph construction.
package metric

import (
	"errors"
	"math"
)

// ErrLengthMismatch is returned when two vectors have different lengths.
var ErrLengthMismatch = errors.New("vector sizes do not match")

// Dot calculates the dot product of two float32 slices.
func Dot(v1, v2 []float32) (float32, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}

	var ret float32
	for i := range v1 {
		ret += v1[i] * v2[i]
	}

	return ret, nil
}

// Magnitude calculates the magnitude (length) of a float32 slice.
func Magnitude(v []float32) float32 {
	var norm2 float32
	for _, x := range v {
		norm2 += x * x
	}

	return float32(math.Sqrt(float64(norm2)))
}

// CosineSimilarity calculates the cosine similarity between two float32 slices.
func CosineSimilarity(v1, v2 []float32) (float32, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}

	dotProduct, _ := Dot(v1, v2)
	magnitudeA := Magnitude(v1)
	magnitudeB := Magnitude(v2)

	// Avoid division by zero
	if magnitudeA == 0 || magnitudeB == 0 {
		return 0, nil
	}

	return dotProduct / (magnitudeA * magnitudeB), nil
}

// SquaredL2 calculates the squared L2 distance between two float32 slices.
func SquaredL2(v1, v2 []float32) (float32, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}

	var distance float32
	for i := range v1 {
		d := v1[i] - v2[i]
		distance += d * d
	}

	return distance, nil
}
