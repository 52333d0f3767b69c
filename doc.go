// Package vamana builds disk-resident Vamana graph indexes for
// approximate nearest neighbor search.
//
// The package covers the write path of a DiskANN-style index: vectors and
// neighbor lists accumulate in memory, one finalize pass prunes every
// list to the fan-out budget and commits fixed-size node records onto
// slotted pages, and the finished page set persists as a single snapshot
// file or as a parted archive in a blob store.
//
// # Building an index
//
//	ctx := context.Background()
//	w, _ := vamana.NewIndexWriter(128, vamana.WithMaxFanOut(64))
//	defer w.Close()
//
//	ptrs := make([]pager.Pointer, 0, len(vecs))
//	for _, vec := range vecs {
//	    ptr, _ := w.AddVector(ctx, vec)
//	    ptrs = append(ptrs, ptr)
//	}
//
//	// Neighbor lists may exceed the budget; Finalize prunes them.
//	w.SetNeighbors(ctx, ptrs[0], candidates)
//
//	stats, _ := w.Finalize(ctx)
//	fmt.Printf("nodes=%d prunes=%d\n", stats.Nodes, stats.Prunes)
//
// # Persisting and reopening
//
//	w.Save(ctx, "./index.vamana")
//
//	ix, _ := vamana.Open("./index.vamana")
//	defer ix.Close()
//	node, _ := ix.Graph().Read(ctx, ptrs[0])
//
// Snapshots saved with pager.CompressionNone reopen via mmap without a
// decompression pass; compressed snapshots inflate into memory.
//
// # Cloud archives
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("indexes/"))
//	w.Archive(ctx, store, "ann-v1")
//
//	vamana.Restore(ctx, store, "ann-v1", "./index.vamana")
//
// Archives are split into parts and uploaded in parallel; the manifest
// and the CURRENT pointer are committed only after every part is
// durable. Wrapping the store in an s3.CommitStore turns the CURRENT
// update into a compare-and-set commit backed by DynamoDB.
//
// # Quantization
//
// With a trained product-quantization codebook, Finalize encodes every
// node's vector and stores the code next to the graph:
//
//	w, _ := vamana.NewIndexWriter(128, vamana.WithQuantization(codebook))
//	// ... build, finalize, save ...
//	code, _ := ix.Code(ctx, ptrs[0])
//	approx, _ := ix.Codebook().Decode(code)
//
// Training happens offline; the index only stores and applies the model.
//
// # Resource limits
//
// A resource.Controller bounds what a build may consume: tracked vector
// memory, background transfer workers and IO bandwidth:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:     2 << 30,
//	    MaxBackgroundWorkers: 4,
//	    IOLimitBytesPerSec:   64 << 20,
//	})
//	w, _ := vamana.NewIndexWriter(128, vamana.WithResourceController(rc))
package vamana
