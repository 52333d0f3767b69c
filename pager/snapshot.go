package pager

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
)

const (
	// SnapshotMagic identifies a snapshot file ("VAMA").
	SnapshotMagic = 0x56414D41
	// SnapshotVersion is the current snapshot format version.
	SnapshotVersion = 1
)

var (
	ErrInvalidMagic   = errors.New("invalid snapshot magic")
	ErrInvalidVersion = errors.New("unsupported snapshot version")
	ErrChecksum       = errors.New("snapshot checksum mismatch")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Snapshot layout:
//
//	[magic u32][version u16][compression u8][reserved u8][pageCount u32][reserved u32]
//	page images: raw and contiguous for CompressionNone, block-framed otherwise
//	[crc32c u32] over the stored page-image bytes
const snapshotHeaderSize = 16

type snapshotHeader struct {
	Compression CompressionType
	PageCount   uint32
}

func (h *snapshotHeader) encode() []byte {
	buf := make([]byte, snapshotHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], SnapshotMagic)
	binary.LittleEndian.PutUint16(buf[4:], SnapshotVersion)
	buf[6] = byte(h.Compression)
	binary.LittleEndian.PutUint32(buf[8:], h.PageCount)
	return buf
}

func decodeSnapshotHeader(buf []byte) (*snapshotHeader, error) {
	if len(buf) < snapshotHeaderSize {
		return nil, fmt.Errorf("snapshot header truncated: %w", ErrCorrupted)
	}
	if magic := binary.LittleEndian.Uint32(buf[0:]); magic != SnapshotMagic {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, magic)
	}
	if version := binary.LittleEndian.Uint16(buf[4:]); version != SnapshotVersion {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVersion, version)
	}
	return &snapshotHeader{
		Compression: CompressionType(buf[6]),
		PageCount:   binary.LittleEndian.Uint32(buf[8:]),
	}, nil
}

// WriteSnapshot streams the store's page images to w and returns the number
// of bytes written. The store stays usable afterwards.
func WriteSnapshot(w io.Writer, store *MemoryStore, compression CompressionType) (int64, error) {
	if store.closed {
		return 0, ErrClosed
	}

	hdr := snapshotHeader{Compression: compression, PageCount: store.PageCount()}
	total := int64(0)

	n, err := w.Write(hdr.encode())
	total += int64(n)
	if err != nil {
		return total, err
	}

	crc := crc32.New(castagnoli)
	body := io.MultiWriter(w, crc)

	for _, p := range store.pages {
		var n int
		if compression == CompressionNone {
			n, err = body.Write(p.buf)
		} else {
			n, err = writeBlock(body, p.buf, compression)
		}
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	var footer [4]byte
	binary.LittleEndian.PutUint32(footer[:], crc.Sum32())
	n, err = w.Write(footer[:])
	total += int64(n)

	return total, err
}

// ReadSnapshot rebuilds a MemoryStore from a snapshot stream.
func ReadSnapshot(r io.Reader) (*MemoryStore, error) {
	hdrBuf := make([]byte, snapshotHeaderSize)
	if _, err := io.ReadFull(r, hdrBuf); err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	hdr, err := decodeSnapshotHeader(hdrBuf)
	if err != nil {
		return nil, err
	}

	crc := crc32.New(castagnoli)
	body := io.TeeReader(r, crc)

	pages := make([]*page, 0, hdr.PageCount)
	for i := uint32(0); i < hdr.PageCount; i++ {
		var image []byte
		if hdr.Compression == CompressionNone {
			image = make([]byte, BlockSize)
			if _, err := io.ReadFull(body, image); err != nil {
				return nil, fmt.Errorf("read page %d: %w", i, err)
			}
		} else {
			image, err = readBlock(body, hdr.Compression)
			if err != nil {
				return nil, fmt.Errorf("read page %d: %w", i, err)
			}
		}

		p, err := pageFromBytes(i, image)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}

	var footer [4]byte
	if _, err := io.ReadFull(r, footer[:]); err != nil {
		return nil, fmt.Errorf("read snapshot footer: %w", err)
	}
	if binary.LittleEndian.Uint32(footer[:]) != crc.Sum32() {
		return nil, ErrChecksum
	}

	return storeFromPages(pages)
}

// Save writes a snapshot atomically: temp file in the target directory,
// fsync, rename, then a best-effort directory fsync.
func Save(store *MemoryStore, path string, compression CompressionType) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
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

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if _, err := WriteSnapshot(buf, store, compression); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	return nil
}

// Load reads a snapshot file into a fresh mutable MemoryStore.
func Load(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadSnapshot(bufio.NewReaderSize(f, 256*1024))
}

// Open reopens a snapshot for reading. Uncompressed snapshots are mapped
// into memory zero-copy; compressed ones are inflated into a MemoryStore.
// The returned store rejects mutation with ErrReadOnly in the mapped case.
func Open(path string) (PageStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	hdrBuf := make([]byte, snapshotHeaderSize)
	_, err = io.ReadFull(f, hdrBuf)
	closeErr := f.Close()
	if err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	if closeErr != nil {
		return nil, closeErr
	}

	hdr, err := decodeSnapshotHeader(hdrBuf)
	if err != nil {
		return nil, err
	}

	if hdr.Compression == CompressionNone {
		return openMapped(path)
	}
	return Load(path)
}
