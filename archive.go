package vamana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vamana/blobstore"
	"github.com/hupe1980/vamana/pager"
	"github.com/hupe1980/vamana/resource"
)

const manifestVersion = 1

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Manifest describes one archived index: the snapshot part blobs in
// order, with sizes and checksums. The CURRENT blob under the archive
// prefix names the manifest of the latest complete archive.
type Manifest struct {
	Version    int            `json:"version"`
	CreatedAt  time.Time      `json:"created_at"`
	Dimensions int            `json:"dimensions"`
	MaxFanOut  int            `json:"max_fan_out"`
	Size       int64          `json:"size"`
	Parts      []ManifestPart `json:"parts"`
}

// ManifestPart is one snapshot fragment.
type ManifestPart struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	CRC32C uint32 `json:"crc32c"`
}

type archiveOptions struct {
	partSize    int64
	concurrency int
	controller  *resource.Controller
}

// ArchiveOption configures an Archive or Restore transfer.
type ArchiveOption func(*archiveOptions)

// WithPartSize sets the snapshot fragment size. Defaults to 8 MiB.
func WithPartSize(size int64) ArchiveOption {
	return func(o *archiveOptions) {
		if size > 0 {
			o.partSize = size
		}
	}
}

// WithTransferConcurrency caps parallel part transfers. Defaults to 4.
// A resource controller's background-worker limit applies on top.
func WithTransferConcurrency(n int) ArchiveOption {
	return func(o *archiveOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithTransferController bounds the transfer's bandwidth and worker
// slots. Archive defaults to the writer's controller; Restore runs
// unbounded without one.
func WithTransferController(c *resource.Controller) ArchiveOption {
	return func(o *archiveOptions) {
		o.controller = c
	}
}

func applyArchiveOptions(optFns []ArchiveOption) archiveOptions {
	o := archiveOptions{
		partSize:    8 << 20,
		concurrency: 4,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Archive uploads the finalized index to a blob store and commits it as
// the archive's CURRENT version. The snapshot is split into parts and
// uploaded in parallel; the manifest and the CURRENT pointer are written
// only after every part is durable, so readers never observe a partial
// archive. Returns the manifest blob name.
//
// Write a CURRENT update through an s3.CommitStore (with an empty prefix)
// to turn the final step into a compare-and-set commit.
func (w *IndexWriter) Archive(ctx context.Context, dst blobstore.BlobStore, prefix string, optFns ...ArchiveOption) (string, error) {
	if w.closed {
		return "", ErrClosed
	}
	if w.stats == nil {
		return "", ErrNotFinalized
	}

	ao := applyArchiveOptions(optFns)

	start := time.Now()
	manifestName, parts, size, err := w.archive(ctx, dst, prefix, ao)
	w.opts.metricsCollector.RecordArchive(parts, size, time.Since(start), err)
	w.opts.logger.LogArchive(ctx, prefix, parts, size, err)
	return manifestName, err
}

func (w *IndexWriter) archive(ctx context.Context, dst blobstore.BlobStore, prefix string, ao archiveOptions) (string, int, int64, error) {
	c := ao.controller
	if c == nil {
		c = w.opts.controller
	}

	var buf bytes.Buffer
	if _, err := pager.WriteSnapshot(&buf, w.store, w.opts.compression); err != nil {
		return "", 0, 0, err
	}
	data := buf.Bytes()
	total := int64(len(data))

	id := fmt.Sprintf("%016x", time.Now().UnixNano())
	manifest := &Manifest{
		Version:    manifestVersion,
		CreatedAt:  time.Now().UTC(),
		Dimensions: w.meta.Dimensions(),
		MaxFanOut:  w.meta.MaxFanOut(),
		Size:       total,
	}
	for off := int64(0); off < total; off += ao.partSize {
		end := min(off+ao.partSize, total)
		manifest.Parts = append(manifest.Parts, ManifestPart{
			Name:   path.Join(prefix, "snapshots", id, fmt.Sprintf("part-%05d", len(manifest.Parts))),
			Size:   end - off,
			CRC32C: crc32.Checksum(data[off:end], castagnoli),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ao.concurrency)
	for i, part := range manifest.Parts {
		chunk := data[int64(i)*ao.partSize : int64(i)*ao.partSize+part.Size]
		g.Go(func() error {
			if err := c.AcquireBackground(gctx); err != nil {
				return err
			}
			defer c.ReleaseBackground()
			return uploadPart(gctx, c, dst, part.Name, chunk)
		})
	}
	if err := g.Wait(); err != nil {
		return "", 0, 0, err
	}

	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", 0, 0, err
	}
	manifestName := path.Join(prefix, "MANIFEST-"+id+".json")
	if err := dst.Put(ctx, manifestName, payload); err != nil {
		return "", 0, 0, fmt.Errorf("write manifest: %w", err)
	}
	if err := dst.Put(ctx, path.Join(prefix, "CURRENT"), []byte(manifestName)); err != nil {
		return "", 0, 0, fmt.Errorf("commit CURRENT: %w", err)
	}

	return manifestName, len(manifest.Parts), total, nil
}

func uploadPart(ctx context.Context, c *resource.Controller, dst blobstore.BlobStore, name string, data []byte) error {
	wb, err := dst.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}

	tw := resource.NewThrottledWriter(ctx, c, wb)
	if _, err := io.Copy(tw, bytes.NewReader(data)); err != nil {
		_ = wb.Close()
		return fmt.Errorf("upload %s: %w", name, err)
	}
	if err := wb.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

// FetchManifest resolves the CURRENT pointer under prefix and loads the
// manifest it names.
func FetchManifest(ctx context.Context, src blobstore.BlobStore, prefix string) (*Manifest, error) {
	cur, err := readSmallBlob(ctx, src, path.Join(prefix, "CURRENT"))
	if err != nil {
		return nil, fmt.Errorf("resolve CURRENT: %w", err)
	}

	raw, err := readSmallBlob(ctx, src, string(bytes.TrimSpace(cur)))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	return &m, nil
}

// Restore downloads the CURRENT archive under prefix into a local
// snapshot file, atomically. The parts are fetched in parallel, each
// verified against its manifest checksum. The result opens with Open.
func Restore(ctx context.Context, src blobstore.BlobStore, prefix, dest string, optFns ...ArchiveOption) error {
	ao := applyArchiveOptions(optFns)
	c := ao.controller

	manifest, err := FetchManifest(ctx, src, prefix)
	if err != nil {
		return err
	}

	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ao.concurrency)
	var off int64
	for _, part := range manifest.Parts {
		partOff := off
		off += part.Size
		g.Go(func() error {
			if err := c.AcquireBackground(gctx); err != nil {
				return err
			}
			defer c.ReleaseBackground()
			return downloadPart(gctx, c, src, part, tmp, partOff)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if off != manifest.Size {
		return fmt.Errorf("manifest declares %d bytes but parts sum to %d: %w", manifest.Size, off, pager.ErrCorrupted)
	}

	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return err
	}
	tmpName = ""

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

func downloadPart(ctx context.Context, c *resource.Controller, src blobstore.BlobStore, part ManifestPart, f *os.File, off int64) error {
	blob, err := src.Open(ctx, part.Name)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", part.Name, err)
	}
	defer blob.Close()

	rc, err := blob.ReadRange(ctx, 0, part.Size)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", part.Name, err)
	}
	defer rc.Close()

	buf := make([]byte, part.Size)
	if _, err := io.ReadFull(resource.NewThrottledReader(ctx, c, rc), buf); err != nil {
		return fmt.Errorf("fetch %s: %w", part.Name, err)
	}
	if got := crc32.Checksum(buf, castagnoli); got != part.CRC32C {
		return fmt.Errorf("part %s checksum mismatch: got %08x, want %08x: %w", part.Name, got, part.CRC32C, pager.ErrCorrupted)
	}

	// WriteAt is a positioned write, safe under the concurrent fan-in.
	_, err = f.WriteAt(buf, off)
	return err
}

func readSmallBlob(ctx context.Context, store blobstore.BlobStore, name string) ([]byte, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	if blob.Size() == 0 {
		return nil, nil
	}
	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}
