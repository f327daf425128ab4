package fileops

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ScanOptions configures the behavior of directory scanning operations.
type ScanOptions struct {
	// MaxDepth limits the recursion depth below the scan root.
	// A value of 0 means unlimited depth. Directories at the limit are
	// still reported, but their contents are not.
	MaxDepth int

	// IncludeHidden determines whether entries whose name starts with '.'
	// are reported. When false, hidden directories are not descended into.
	IncludeHidden bool

	// SkipUnreadableDirs determines whether directories that cannot be
	// opened or read are skipped or abort the scan with an error.
	SkipUnreadableDirs bool

	// OnEntry, when non-nil, is invoked for every reported entry as it is
	// discovered and the scan does not accumulate results in memory.
	// Returning a non-nil error aborts the scan with that error.
	OnEntry func(ScanEntry) error
}

// DefaultScanOptions returns the options used when none are provided:
// unlimited depth, hidden entries included, unreadable directories skipped.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		MaxDepth:           0,
		IncludeHidden:      true,
		SkipUnreadableDirs: true,
	}
}

// ScanEntry describes one entry discovered during a directory scan.
// Metadata comes from lstat, so a symbolic link is reported as itself,
// never as its target.
type ScanEntry struct {
	// Name is the base name without path components.
	Name string

	// Path is the path relative to the scan root.
	Path string

	// IsDir indicates whether this entry is a real directory. A symlink
	// pointing at a directory reports false here.
	IsDir bool

	// Size is the file size in bytes, 0 for directories.
	Size int64

	// Mode contains the file mode and permission bits.
	Mode fs.FileMode

	// ModTime is the last modification time.
	ModTime time.Time
}

// ScanStats summarizes the most recent scan.
type ScanStats struct {
	Files       int
	Dirs        int
	Symlinks    int
	SkippedDirs int
	TotalSize   int64
	LargestFile int64
}

// DirectoryScanner walks a directory tree inside an os.Root boundary.
//
// All reads go through the root handle, so entries that race the scan by
// being replaced with symlinks cannot pull the walk outside the scan
// root. Symbolic links are reported but never followed, which also makes
// link loops impossible without tracking visited directories.
type DirectoryScanner struct {
	root  *os.Root
	base  string
	opts  ScanOptions
	stats ScanStats
}

// NewDirectoryScanner creates a scanner rooted at dir.
//
// Parameters:
//   - dir: The directory to scan (relative paths are resolved to absolute)
//   - opts: Scanning options (nil applies DefaultScanOptions)
//
// Returns:
//   - *DirectoryScanner: Configured scanner, which must be closed after use
//   - error: ErrInvalidName for an empty path, ErrPathNotFound if dir does
//     not exist, or an error if dir is not a directory
//
// Usage example:
//
//	scanner, err := fileops.NewDirectoryScanner("/data/projects", nil)
//	if err != nil {
//	    return fmt.Errorf("failed to create scanner: %w", err)
//	}
//	defer scanner.Close()
//	entries, err := scanner.Scan(ctx)
func NewDirectoryScanner(dir string, opts *ScanOptions) (*DirectoryScanner, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: empty scan path", ErrInvalidName)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve scan path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, wrapOSError(err, abs)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan path is not a directory: %s", abs)
	}

	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, wrapOSError(err, abs)
	}

	o := DefaultScanOptions()
	if opts != nil {
		o = *opts
	}

	return &DirectoryScanner{root: root, base: abs, opts: o}, nil
}

// Base returns the absolute path of the scan root.
func (s *DirectoryScanner) Base() string {
	return s.base
}

// Close releases the root handle. The scanner cannot be used afterwards.
func (s *DirectoryScanner) Close() error {
	if s.root != nil {
		err := s.root.Close()
		s.root = nil
		return err
	}
	return nil
}

// Scan walks the tree under the scan root and reports every entry.
//
// Entries within each directory are reported in lexical name order, with
// a directory reported before its contents. When opts.OnEntry is set the
// returned slice is nil and entries are only streamed to the callback.
//
// Returns:
//   - []ScanEntry: Discovered entries relative to the scan root
//   - error: ErrCancelled if ctx is cancelled, otherwise the first
//     filesystem or callback error encountered
func (s *DirectoryScanner) Scan(ctx context.Context) ([]ScanEntry, error) {
	if s.root == nil {
		return nil, fmt.Errorf("scanner has been closed")
	}

	s.stats = ScanStats{}

	var out []ScanEntry
	collect := &out
	if s.opts.OnEntry != nil {
		collect = nil
	}

	if err := s.scanDir(ctx, ".", 0, collect); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns statistics gathered by the most recent Scan call.
func (s *DirectoryScanner) Stats() ScanStats {
	return s.stats
}

func (s *DirectoryScanner) scanDir(ctx context.Context, rel string, depth int, out *[]ScanEntry) error {
	if err := ctx.Err(); err != nil {
		return ErrCancelled
	}

	dir, err := s.root.Open(rel)
	if err != nil {
		if s.opts.SkipUnreadableDirs && rel != "." {
			s.stats.SkippedDirs++
			return nil
		}
		return fmt.Errorf("failed to open directory %s: %w", rel, err)
	}

	entries, err := dir.ReadDir(-1)
	// Close before recursing so open handles do not stack up with depth.
	dir.Close()
	if err != nil {
		if s.opts.SkipUnreadableDirs && rel != "." {
			s.stats.SkippedDirs++
			return nil
		}
		return fmt.Errorf("failed to read directory %s: %w", rel, err)
	}

	slices.SortFunc(entries, func(a, b os.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}

		name := entry.Name()
		if !s.opts.IncludeHidden && strings.HasPrefix(name, ".") {
			continue
		}

		entryPath := filepath.Join(rel, name)
		info, err := entry.Info()
		if err != nil {
			// The entry may have been removed between readdir and stat.
			if s.opts.SkipUnreadableDirs {
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", entryPath, err)
		}

		se := ScanEntry{
			Name:    name,
			Path:    entryPath,
			IsDir:   entry.IsDir(),
			Size:    info.Size(),
			Mode:    info.Mode(),
			ModTime: info.ModTime(),
		}

		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			s.stats.Symlinks++
		case se.IsDir:
			se.Size = 0
			s.stats.Dirs++
		default:
			s.stats.Files++
			s.stats.TotalSize += se.Size
			if se.Size > s.stats.LargestFile {
				s.stats.LargestFile = se.Size
			}
		}

		if s.opts.OnEntry != nil {
			if err := s.opts.OnEntry(se); err != nil {
				return err
			}
		} else if out != nil {
			*out = append(*out, se)
		}

		// A symlinked directory reports ModeSymlink in lstat metadata, so
		// IsDir is false for it and it is never descended into.
		if se.IsDir {
			if s.opts.MaxDepth > 0 && depth+1 >= s.opts.MaxDepth {
				continue
			}
			if err := s.scanDir(ctx, entryPath, depth+1, out); err != nil {
				return err
			}
		}
	}

	return nil
}
