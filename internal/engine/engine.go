// Package engine runs cancellable, progress-reporting file operations for
// payloads large enough that blocking a caller would be felt. Work proceeds
// in chunks; cancellation is polled at chunk and file boundaries, never
// mid-chunk, and writes go through the same temp-and-rename protocol as
// pkg/fileops, so an aborted operation leaves no temp artifact and no
// half-written destination.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"

	"dualfm/pkg/fileops"
)

const (
	// DefaultChunkSize is the copy unit. Progress and cancellation both
	// happen at chunk boundaries.
	DefaultChunkSize = 64 * 1024

	// AsyncThreshold is the payload size, for a single file or a directory
	// aggregate, at which ShouldUseAsync steers work onto the engine.
	AsyncThreshold int64 = 1 << 20
)

// Engine executes one operation at a time. Starting a new operation rearms
// the cancellation flag, so an Engine can be reused across operations; it
// must not run two concurrently.
type Engine struct {
	chunkSize int
	progress  ProgressFunc
	cancelled atomic.Bool
}

// Options configures an Engine. The zero value is usable.
type Options struct {
	// ChunkSize overrides DefaultChunkSize when positive.
	ChunkSize int

	// OnProgress receives snapshots on the operation's goroutine. Use a
	// Feed to move them onto a channel instead.
	OnProgress ProgressFunc
}

// New returns an Engine ready to run operations.
func New(opts *Options) *Engine {
	e := &Engine{chunkSize: DefaultChunkSize}
	if opts != nil {
		if opts.ChunkSize > 0 {
			e.chunkSize = opts.ChunkSize
		}
		e.progress = opts.OnProgress
	}
	return e
}

// Cancel requests cooperative cancellation of the running operation. It is
// safe to call at any time, repeatedly, and from any goroutine; the
// operation stops at its next chunk or file boundary and returns
// fileops.ErrCancelled.
func (e *Engine) Cancel() {
	e.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called since the current
// operation started.
func (e *Engine) Cancelled() bool {
	return e.cancelled.Load()
}

// begin rearms the cancellation flag for a new operation.
func (e *Engine) begin() {
	e.cancelled.Store(false)
}

// checkpoint is the cooperative suspension point: it fails once the engine
// is cancelled or the context is done.
func (e *Engine) checkpoint(ctx context.Context) error {
	if e.cancelled.Load() || ctx.Err() != nil {
		return fileops.ErrCancelled
	}
	return nil
}

func (e *Engine) report(p Progress) {
	if e.progress != nil {
		e.progress(p)
	}
}

// ShouldUseAsync reports whether any of the items is heavy enough for the
// engine: a single file at or beyond AsyncThreshold, or a directory whose
// aggregate file size reaches it. The directory walk stops as soon as the
// answer is known. Unreadable items count as light; the operation itself
// surfaces their real errors.
func ShouldUseAsync(items []string) bool {
	for _, item := range items {
		info, err := os.Lstat(item)
		if err != nil {
			continue
		}
		switch {
		case info.IsDir():
			if dirAtLeast(item, AsyncThreshold) {
				return true
			}
		case info.Mode().IsRegular():
			if info.Size() >= AsyncThreshold {
				return true
			}
		}
	}
	return false
}

// errSizeThreshold stops a capped size walk early.
var errSizeThreshold = errors.New("size threshold reached")

// dirAtLeast reports whether the aggregate size of the regular files under
// dir reaches limit.
func dirAtLeast(dir string, limit int64) bool {
	var seen int64
	scanner, err := fileops.NewDirectoryScanner(dir, &fileops.ScanOptions{
		IncludeHidden:      true,
		SkipUnreadableDirs: true,
		OnEntry: func(entry fileops.ScanEntry) error {
			if !entry.IsDir && entry.Mode&fs.ModeSymlink == 0 {
				seen += entry.Size
			}
			if seen >= limit {
				return errSizeThreshold
			}
			return nil
		},
	})
	if err != nil {
		return false
	}
	defer scanner.Close()

	_, err = scanner.Scan(context.Background())
	return errors.Is(err, errSizeThreshold)
}

// lstat maps stat failures onto the fileops sentinels.
func lstat(path string) (fs.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", fileops.ErrPathNotFound, path)
		case errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("%w: %s", fileops.ErrPermissionDenied, path)
		default:
			return nil, fmt.Errorf("cannot access %s: %w", path, err)
		}
	}
	return info, nil
}
