// Package testutil provides testing utilities for Vamana.
//
// This package is intended for use in tests and benchmarks only. It
// provides a seeded, thread-safe random source for generating vector
// datasets, plus exact search and recall helpers for verifying graph
// quality.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(4711)
//	vecs := rng.UniformVectors(1000, 128)   // uniform [0, 1)
//	unit := rng.UnitVectors(1000, 128)      // on the hypersphere
//
// # Ground Truth and Recall
//
//	truth := testutil.BruteForceSearch(vecs, query, 10)
//	recall := testutil.ComputeRecall(truth, approximate)
package testutil
