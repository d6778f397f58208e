package store

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies how a stored list blob is compressed. Tags are
// persisted in list metadata; changing their values breaks existing stores.
type CompressionTag uint8

const (
	// CompressionNone stores the wire bytes as is.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 uses the LZ4 frame format. Fast, modest ratio.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd uses zstd at the default level. Better ratio for
	// text-heavy lists.
	CompressionZstd CompressionTag = 2
)

func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

func (tag CompressionTag) valid() bool {
	return tag <= CompressionZstd
}

// ParseCompressionTag parses the String form of a tag.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// compressWriter is a streaming compressor. Flush pushes buffered data to the
// underlying writer; Close finishes the stream without closing that writer.
type compressWriter interface {
	io.WriteCloser
	Flush() error
}

func newCompressWriter(w io.Writer, tag CompressionTag) (compressWriter, error) {
	switch tag {
	case CompressionNone:
		return nopCompressWriter{w}, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCompression, tag)
	}
}

// newDecompressReader returns a reader of the uncompressed stream and a
// function releasing its resources.
func newDecompressReader(r io.Reader, tag CompressionTag) (io.Reader, func(), error) {
	switch tag {
	case CompressionNone:
		return r, func() {}, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return dec, dec.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %v", ErrUnknownCompression, tag)
	}
}

type nopCompressWriter struct {
	io.Writer
}

func (nopCompressWriter) Flush() error { return nil }
func (nopCompressWriter) Close() error { return nil }
