// Package archive lists, extracts, and creates zip and tar family archives.
//
// Every extraction is gated by the validators in pkg/fileops and runs in two
// strict phases: Validate-All, which reads metadata only and can reject the
// whole archive, then Write-All, which performs the writes confined to an
// os.Root opened on the destination. Nothing is written until every member
// of the archive has been validated, so a single hostile member rejects the
// archive before any file appears on disk.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"
)

// Type identifies an archive format. Detection is by filename suffix only,
// never by content sniffing.
type Type int

const (
	TypeUnknown Type = iota
	TypeZip
	TypeTar
	TypeTarGz
	TypeTarBz2
	TypeTarXz
	TypeTarZst
)

// String returns the canonical suffix-style name of the archive type.
func (t Type) String() string {
	switch t {
	case TypeZip:
		return "zip"
	case TypeTar:
		return "tar"
	case TypeTarGz:
		return "tar.gz"
	case TypeTarBz2:
		return "tar.bz2"
	case TypeTarXz:
		return "tar.xz"
	case TypeTarZst:
		return "tar.zst"
	default:
		return "unknown"
	}
}

// IsTar reports whether the type is a member of the tar family, compressed
// or not.
func (t Type) IsTar() bool {
	switch t {
	case TypeTar, TypeTarGz, TypeTarBz2, TypeTarXz, TypeTarZst:
		return true
	default:
		return false
	}
}

// suffixTypes maps filename suffixes to archive types. Longer suffixes are
// listed first so "x.tar.gz" resolves to TypeTarGz, not TypeTar.
var suffixTypes = []struct {
	suffix string
	t      Type
}{
	{".tar.gz", TypeTarGz},
	{".tar.bz2", TypeTarBz2},
	{".tar.xz", TypeTarXz},
	{".tar.zst", TypeTarZst},
	{".tgz", TypeTarGz},
	{".tbz2", TypeTarBz2},
	{".txz", TypeTarXz},
	{".tzst", TypeTarZst},
	{".tar", TypeTar},
	{".zip", TypeZip},
}

// DetectType determines the archive type of path from its filename suffix,
// case-insensitively. Unknown suffixes map to TypeUnknown.
func DetectType(pathName string) Type {
	name := strings.ToLower(path.Base(strings.ReplaceAll(pathName, `\`, "/")))
	for _, st := range suffixTypes {
		if strings.HasSuffix(name, st.suffix) && len(name) > len(st.suffix) {
			return st.t
		}
	}
	return TypeUnknown
}

// Sentinel errors for archive handling. File-level failures reuse the
// pkg/fileops sentinels (ErrPathNotFound, ErrAlreadyExists, ErrCancelled,
// ErrArchiveBomb, ErrPathTraversal, ErrAbsolutePath).
var (
	// ErrUnsupportedFormat indicates a filename whose suffix maps to no
	// supported archive format.
	ErrUnsupportedFormat = errors.New("archive: unsupported format")

	// ErrInvalidArchive indicates an archive whose headers cannot be parsed.
	ErrInvalidArchive = errors.New("archive: invalid or corrupted archive")

	// ErrNoFiles indicates a create request with an empty source list.
	ErrNoFiles = errors.New("archive: no files to archive")
)

// Entry describes one archive member as recorded in the archive's metadata.
type Entry struct {
	// Name is the member path in slash form, exactly as recorded.
	Name string

	// Size is the uncompressed size in bytes.
	Size int64

	// CompressedSize is the compressed size in bytes. It is only known for
	// zip members; tar members report 0 because tar compresses the stream
	// as a whole.
	CompressedSize int64

	// Mode holds the member's file mode and permission bits.
	Mode fs.FileMode

	// ModTime is the recorded modification time.
	ModTime time.Time

	// IsDir reports a directory member.
	IsDir bool

	// IsSymlink reports a symbolic link member; LinkTarget holds its target.
	IsSymlink bool

	// IsHardlink reports a tar hard link member; LinkTarget names the
	// archive member it aliases.
	IsHardlink bool

	// LinkTarget is the recorded link target for symlink and hardlink
	// members. For zip symlinks it is populated during extraction, not
	// listing, because the target is stored as member content.
	LinkTarget string
}

// Stats aggregates an archive's metadata, as produced by Info.
type Stats struct {
	Type           Type
	Files          int
	Dirs           int
	Symlinks       int
	TotalSize      int64
	CompressedSize int64
	Ratio          float64
}

// Info returns aggregate statistics for the archive at pathName: member
// counts by kind, total uncompressed size, the on-disk archive size, and the
// resulting compression ratio. It reads metadata only.
func Info(pathName string) (Stats, error) {
	t := DetectType(pathName)
	if t == TypeUnknown {
		return Stats{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, pathName)
	}

	entries, err := List(pathName)
	if err != nil {
		return Stats{}, err
	}

	info, err := os.Stat(pathName)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to stat archive: %w", err)
	}

	st := Stats{Type: t, CompressedSize: info.Size()}
	for _, e := range entries {
		switch {
		case e.IsDir:
			st.Dirs++
		case e.IsSymlink || e.IsHardlink:
			st.Symlinks++
		default:
			st.Files++
			st.TotalSize += e.Size
		}
	}
	if st.CompressedSize > 0 {
		st.Ratio = float64(st.TotalSize) / float64(st.CompressedSize)
	}
	return st, nil
}

// memberRelPath converts a validated member name into the relative path used
// for writes inside the destination root.
func memberRelPath(name string) string {
	n := strings.ReplaceAll(name, `\`, "/")
	n = strings.TrimSuffix(n, "/")
	return path.Clean(n)
}

// aggregate computes the bomb-check figures for an archive: the total
// declared uncompressed size, the compressed figure (per-member sums for
// zip, the archive's own file size for tar streams), and the member count.
func aggregate(pathName string, t Type, entries []Entry) (compressed, uncompressed int64, count int, err error) {
	count = len(entries)
	for _, e := range entries {
		uncompressed += e.Size
		compressed += e.CompressedSize
	}

	if t.IsTar() {
		info, statErr := os.Stat(pathName)
		if statErr != nil {
			return 0, 0, 0, fmt.Errorf("failed to stat archive: %w", statErr)
		}
		compressed = info.Size()
	}
	return compressed, uncompressed, count, nil
}
