package fileops

import (
	"fmt"
	"math"
)

// Default limits applied by DefaultSecurityConfig.
const (
	// DefaultMaxCompressionRatio is the highest uncompressed:compressed ratio
	// an archive may declare before it is treated as a decompression bomb.
	DefaultMaxCompressionRatio int64 = 100

	// DefaultMaxExtractedSize is the largest total uncompressed payload an
	// archive may declare, in bytes.
	DefaultMaxExtractedSize int64 = 1 << 30 // 1 GiB

	// DefaultMaxArchiveFiles is the largest member count an archive may have.
	DefaultMaxArchiveFiles = 10_000
)

// SecurityConfig holds the tunable limits and the forbidden-filename set used
// by the validators. Construct one with DefaultSecurityConfig, adjust fields
// as needed, and pass it by reference; the zero value is not usable.
//
// The config is read on every validation call and never mutated by this
// package, so a single instance may be shared across goroutines. There is
// deliberately no package-level default instance: tests and concurrent
// operations each construct their own.
type SecurityConfig struct {
	// MaxCompressionRatio is the highest allowed uncompressed:compressed
	// ratio. A value <= 0 disables the ratio check.
	MaxCompressionRatio int64

	// MaxExtractedSize is the highest allowed total uncompressed size in
	// bytes across all archive members.
	MaxExtractedSize int64

	// MaxArchiveFiles is the highest allowed archive member count.
	MaxArchiveFiles int

	// ForbiddenNames are exact filename matches rejected by IsSafeFilename.
	ForbiddenNames map[string]struct{}
}

// DefaultSecurityConfig returns a SecurityConfig with the default limits and
// the standard forbidden-filename set: the relative specials "." and "..",
// and the Windows device names CON, PRN, AUX, NUL, COM1-COM9, and LPT1-LPT9.
//
// Device names are matched case-sensitively, exactly as listed, and are
// rejected on every platform so that archives and filenames judged safe on
// one system remain safe when moved to another.
func DefaultSecurityConfig() *SecurityConfig {
	names := []string{".", "..", "CON", "PRN", "AUX", "NUL"}
	for i := 1; i <= 9; i++ {
		names = append(names, fmt.Sprintf("COM%d", i), fmt.Sprintf("LPT%d", i))
	}

	forbidden := make(map[string]struct{}, len(names))
	for _, n := range names {
		forbidden[n] = struct{}{}
	}

	return &SecurityConfig{
		MaxCompressionRatio: DefaultMaxCompressionRatio,
		MaxExtractedSize:    DefaultMaxExtractedSize,
		MaxArchiveFiles:     DefaultMaxArchiveFiles,
		ForbiddenNames:      forbidden,
	}
}

// CheckArchiveBomb validates aggregate archive figures against the configured
// limits before any extraction takes place.
//
// The checks, in order:
//   - fileCount must not exceed MaxArchiveFiles
//   - uncompressedSize must not exceed MaxExtractedSize
//   - when compressedSize > 0, the ratio uncompressedSize:compressedSize must
//     not exceed MaxCompressionRatio
//
// A compressedSize of zero skips the ratio check only; the absolute-size and
// file-count limits still apply. The ratio comparison is cross-multiplied so
// the boundary is exact: with the default 100:1 limit, (1000, 100000) passes
// and (1000, 100001) fails.
//
// Returns an error wrapping ErrArchiveBomb describing the exceeded limit, or
// nil when all limits hold.
func (c *SecurityConfig) CheckArchiveBomb(compressedSize, uncompressedSize int64, fileCount int) error {
	if c.MaxArchiveFiles > 0 && fileCount > c.MaxArchiveFiles {
		return fmt.Errorf("%w: %d files exceeds limit of %d", ErrArchiveBomb, fileCount, c.MaxArchiveFiles)
	}

	if c.MaxExtractedSize > 0 && uncompressedSize > c.MaxExtractedSize {
		return fmt.Errorf("%w: %d bytes uncompressed exceeds limit of %d", ErrArchiveBomb, uncompressedSize, c.MaxExtractedSize)
	}

	if compressedSize > 0 && c.MaxCompressionRatio > 0 {
		// Skip when the product would overflow; a compressed size that large
		// cannot produce an int64 uncompressed size above the ratio anyway.
		if compressedSize <= math.MaxInt64/c.MaxCompressionRatio {
			if uncompressedSize > compressedSize*c.MaxCompressionRatio {
				return fmt.Errorf("%w: compression ratio %.1f:1 exceeds limit of %d:1",
					ErrArchiveBomb,
					float64(uncompressedSize)/float64(compressedSize),
					c.MaxCompressionRatio)
			}
		}
	}

	return nil
}
