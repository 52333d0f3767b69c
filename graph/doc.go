// Package graph implements the build-time proximity graph: an in-memory
// adjacency accumulator, the persisted node records it flushes into, and the
// shared Graph contract both representations satisfy.
//
// # Build flow
//
// Construction algorithms talk to a Graph, never to a concrete
// representation:
//
//	builder := graph.NewBuilderGraph(store, meta, provider)
//	_ = builder.SetNeighbors(ctx, node, neighbors) // repeated during build
//	stats, err := builder.Write(ctx, coder)        // finalize, exactly once
//
// SetNeighbors replaces a node's adjacency list wholesale and registers the
// very first node given neighbors as the index entry point. Write walks every
// accumulated list in ascending pointer order, prunes lists over the
// configured fan-out through the PruningPolicy, re-encodes quantized codes
// when quantization is on, and commits each node record in place.
//
// The builder is single-writer: one goroutine mutates it, Write consumes it,
// and there is no internal locking.
//
// # Persisted form
//
// DiskGraph serves the same contract over committed node records, so
// traversal and pruning code runs unchanged against a reopened snapshot.
package graph
