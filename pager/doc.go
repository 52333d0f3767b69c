// Package pager provides the paged storage primitives for index construction.
//
// All persisted records live inside fixed-size pages (BlockSize bytes) and are
// addressed by a Pointer, a (page number, slot) pair with a fixed 6-byte wire
// encoding. The zero Pointer is the chain terminator and never addresses a
// real record: page 0 is reserved for index metadata and slots are numbered
// from 1.
//
// # Tape
//
// Tape is an append-only log bound to one PageKind. It packs items into the
// current page and allocates a new page when the item no longer fits:
//
//	tape := pager.NewTape(store, pager.PageKindNode)
//	ptr, err := tape.Write(record)
//
// A Tape never splits an item across pages. Payloads larger than one page
// must be chunked by the caller and chained through embedded Pointers.
//
// # Stores
//
//   - MemoryStore: mutable in-memory store used during builds
//   - read-only store: reopened from an uncompressed snapshot via mmap
//
// Snapshots are single files with a checksummed page image, optionally
// zstd- or lz4-compressed, written atomically (temp file + rename).
package pager
