// Package quantizer provides product-quantization support for the index:
// codebooks of per-subspace centroids, compact per-node codes, and the
// chained page records that persist both.
package quantizer
