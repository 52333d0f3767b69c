package pager

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType selects the algorithm used for snapshot page images.
type CompressionType uint8

const (
	// CompressionNone stores raw page images. Required for mmap reopening.
	CompressionNone CompressionType = 0
	// CompressionLZ4 is fast with a moderate ratio.
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD gives the best ratio at default speed.
	CompressionZSTD CompressionType = 2
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ZSTD encoder/decoder pools shared across snapshots
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Block format: [UncompressedSize uint32][CompressedSize uint32][Data...].
// CompressedSize == 0 means the data is stored raw.
const blockHeaderSize = 8

// writeBlock compresses one page image and writes it to w.
// Incompressible pages (ratio above 0.9) are stored raw under the same
// header so the reader never needs to guess.
func writeBlock(w io.Writer, data []byte, compression CompressionType) (int, error) {
	var compressed []byte

	switch compression {
	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(data))
		buf := make([]byte, bound)
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return 0, fmt.Errorf("lz4 compress: %w", err)
		}
		if n > 0 {
			compressed = buf[:n]
		}
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		compressed = nil
	}

	var hdr [blockHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(compressed)))

	written, err := w.Write(hdr[:])
	if err != nil {
		return written, err
	}

	payload := compressed
	if payload == nil {
		payload = data
	}
	n, err := w.Write(payload)
	return written + n, err
}

// readBlock reads one page image from r, decompressing if needed.
// The uncompressed size must be exactly BlockSize.
func readBlock(r io.Reader, compression CompressionType) ([]byte, error) {
	var hdr [blockHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	uncompressedSize := binary.LittleEndian.Uint32(hdr[0:])
	compressedSize := binary.LittleEndian.Uint32(hdr[4:])

	if uncompressedSize != BlockSize {
		return nil, fmt.Errorf("snapshot block declares %d bytes, want %d: %w", uncompressedSize, BlockSize, ErrCorrupted)
	}
	if compressedSize > 2*BlockSize {
		return nil, fmt.Errorf("snapshot block compressed size %d implausible: %w", compressedSize, ErrCorrupted)
	}

	if compressedSize == 0 {
		data := make([]byte, uncompressedSize)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		return data, nil
	}

	compressedData := make([]byte, compressedSize)
	if _, err := io.ReadFull(r, compressedData); err != nil {
		return nil, err
	}

	result := make([]byte, uncompressedSize)

	switch compression {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(compressedData, result)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("decompressed size mismatch: %w", ErrCorrupted)
		}
		return result, nil

	case CompressionZSTD:
		dec := getZstdDecoder()
		decoded, err := dec.DecodeAll(compressedData, result[:0])
		putZstdDecoder(dec)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if uint32(len(decoded)) != uncompressedSize {
			return nil, fmt.Errorf("decompressed size mismatch: %w", ErrCorrupted)
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("compressed block in %s snapshot: %w", compression, ErrCorrupted)
	}
}
