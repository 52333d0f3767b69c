package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/vamana/internal/cache"
	"golang.org/x/sync/errgroup"
)

// CachingStore wraps a BlobStore and adds block-level read caching.
type CachingStore struct {
	inner     BlobStore
	cache     cache.BlockCache
	blockSize int64
}

// NewCachingStore creates a CachingStore. blockSize defaults to 4KB if
// it is not positive.
func NewCachingStore(inner BlobStore, cache cache.BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = 4096
	}
	return &CachingStore{
		inner:     inner,
		cache:     cache,
		blockSize: blockSize,
	}
}

// Open implements BlobStore.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{
		inner:     b,
		cache:     s.cache,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

// Create implements BlobStore. Writes are not cached; archive blobs are
// immutable once written.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	return s.inner.Create(ctx, name)
}

// Put implements BlobStore. Cached blocks of the overwritten blob are
// dropped first.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Invalidate(func(key cache.Key) bool {
		return key.Name == name
	})
	return s.inner.Put(ctx, name, data)
}

// Delete implements BlobStore.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Invalidate(func(key cache.Key) bool {
		return key.Name == name
	})
	return s.inner.Delete(ctx, name)
}

// List implements BlobStore.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// CachingBlob serves reads from the block cache, falling back to the
// wrapped blob for misses.
type CachingBlob struct {
	inner     Blob
	cache     cache.BlockCache
	name      string
	blockSize int64
}

func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

// ReadAt implements Blob. Reads are aligned to block boundaries and
// missing blocks are fetched in coalesced runs before assembly.
func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	startBlock := off / b.blockSize
	endBlock := (off + int64(len(p)) - 1) / b.blockSize

	if err := b.fillCache(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	totalRead := 0

	for blk := startBlock; blk <= endBlock; blk++ {
		blkStart := blk * b.blockSize

		// Intersection of this block with the requested range.
		intersectStart := max(blkStart, off)
		intersectEnd := min(blkStart+b.blockSize, off+int64(len(p)))
		if intersectEnd <= intersectStart {
			continue
		}

		blockData, err := b.fetchBlock(ctx, blk)
		if err != nil {
			return totalRead, err
		}

		copySize := int(intersectEnd - intersectStart)
		srcOffset := intersectStart - blkStart
		dstOffset := intersectStart - off

		// The last block of a blob may be short.
		if srcOffset+int64(copySize) > int64(len(blockData)) {
			copySize = len(blockData) - int(srcOffset)
		}
		if copySize > 0 {
			totalRead += copy(p[dstOffset:dstOffset+int64(copySize)], blockData[srcOffset:])
		}
	}

	if totalRead < len(p) {
		return totalRead, io.EOF
	}
	return totalRead, nil
}

type blockRun struct {
	start, count int64
}

// fillCache loads the blocks in [startBlock, endBlock] into the cache,
// fetching contiguous runs of missing blocks in single backend reads.
func (b *CachingBlob) fillCache(ctx context.Context, startBlock, endBlock int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var missing []blockRun
	run := blockRun{start: -1}

	for blk := startBlock; blk <= endBlock; blk++ {
		key := cache.Key{Name: b.name, Block: uint64(blk)}
		if _, ok := b.cache.Get(ctx, key); !ok {
			if run.start == -1 {
				run = blockRun{start: blk, count: 1}
			} else {
				run.count++
			}
			continue
		}
		if run.start != -1 {
			missing = append(missing, run)
			run = blockRun{start: -1}
		}
	}
	if run.start != -1 {
		missing = append(missing, run)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	for _, run := range missing {
		g.Go(func() error {
			byteStart := run.start * b.blockSize
			byteSize := run.count * b.blockSize

			fileSize := b.Size()
			if byteStart >= fileSize {
				return nil
			}
			if byteStart+byteSize > fileSize {
				byteSize = fileSize - byteStart
			}

			buf := make([]byte, byteSize)
			n, err := b.inner.ReadAt(ctx, buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			if n == 0 {
				return nil
			}
			valid := buf[:n]

			for i := int64(0); i < run.count; i++ {
				blockStart := i * b.blockSize
				if blockStart >= int64(len(valid)) {
					break
				}
				blockEnd := min(blockStart+b.blockSize, int64(len(valid)))

				// Copy so the cache never pins the run buffer.
				block := make([]byte, blockEnd-blockStart)
				copy(block, valid[blockStart:blockEnd])

				key := cache.Key{Name: b.name, Block: uint64(run.start + i)}
				b.cache.Set(ctx, key, block)
			}
			return nil
		})
	}
	return g.Wait()
}

// fetchBlock returns one block, reading through to the wrapped blob on
// a cache miss. Blocks past the end of the blob come back empty.
func (b *CachingBlob) fetchBlock(ctx context.Context, blk int64) ([]byte, error) {
	key := cache.Key{Name: b.name, Block: uint64(blk)}

	if data, ok := b.cache.Get(ctx, key); ok {
		return data, nil
	}

	buf := make([]byte, b.blockSize)
	n, err := b.inner.ReadAt(ctx, buf, blk*b.blockSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	valid := buf[:n]

	if n > 0 {
		b.cache.Set(ctx, key, valid)
	}
	return valid, nil
}

// ReadRange implements Blob on top of the cached ReadAt.
func (b *CachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	return io.NopCloser(&sectionReader{blob: b, ctx: ctx, off: off, limit: off + length}), nil
}

// sectionReader adapts a CachingBlob to io.Reader over a byte range.
type sectionReader struct {
	blob  *CachingBlob
	ctx   context.Context
	off   int64
	limit int64
}

func (r *sectionReader) Read(p []byte) (n int, err error) {
	if r.off >= r.limit {
		return 0, io.EOF
	}
	if remaining := r.limit - r.off; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err = r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	return n, err
}
