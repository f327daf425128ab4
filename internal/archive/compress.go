package archive

import (
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression levels accepted by Create. Out-of-range values are clamped to
// DefaultCompressionLevel rather than rejected.
const (
	MinCompressionLevel     = 0
	MaxCompressionLevel     = 9
	DefaultCompressionLevel = 6
)

// clampLevel normalizes a requested compression level into the 0 to 9 range.
func clampLevel(level int) int {
	if level < MinCompressionLevel || level > MaxCompressionLevel {
		return DefaultCompressionLevel
	}
	return level
}

// nopReadCloser adapts decompressors that have no Close of their own.
type nopReadCloser struct {
	io.Reader
}

func (nopReadCloser) Close() error { return nil }

// zstdReadCloser adapts the zstd decoder, whose Close returns nothing.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// newDecompressor wraps r with the decompression layer for a tar family
// type. TypeTar returns the reader unchanged.
func newDecompressor(t Type, r io.Reader) (io.ReadCloser, error) {
	switch t {
	case TypeTar:
		return nopReadCloser{r}, nil
	case TypeTarGz:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		return zr, nil
	case TypeTarBz2:
		br, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		return br, nil
	case TypeTarXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		return nopReadCloser{xr}, nil
	case TypeTarZst:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		return zstdReadCloser{zr}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, t)
	}
}

// newCompressor wraps w with the compression layer for a tar family type at
// the given level. TypeTar returns a pass-through writer.
func newCompressor(t Type, w io.Writer, level int) (io.WriteCloser, error) {
	switch t {
	case TypeTar:
		return nopWriteCloser{w}, nil
	case TypeTarGz:
		return gzip.NewWriterLevel(w, level)
	case TypeTarBz2:
		// bzip2 block sizes start at 1; level 0 has no store equivalent.
		if level < 1 {
			level = 1
		}
		return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: level})
	case TypeTarXz:
		// The xz encoder carries a single preset; the level selects presets
		// only for the other formats.
		return xz.NewWriter(w)
	case TypeTarZst:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, t)
	}
}

// nopWriteCloser adapts a plain writer into the WriteCloser shape the tar
// writer chain expects.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
