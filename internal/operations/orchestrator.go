// Package operations is the façade the surrounding UI calls. It fans bulk
// requests out into per-item attempts, picks the direct fileops path or the
// chunked engine per the size threshold, and folds the outcomes into one
// Summary. One batch runs at a time; preventing two concurrent batches over
// the same paths is the caller's job, the filesystem is never locked here.
package operations

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"dualfm/internal/archive"
	"dualfm/internal/engine"
	"dualfm/internal/logging"
	"dualfm/pkg/fileops"
)

// Orchestrator coordinates batches of file operations around one security
// configuration. The zero value is not usable; construct with New.
type Orchestrator struct {
	sec       *fileops.SecurityConfig
	chunkSize int
	current   atomic.Pointer[batch]
}

// batch is the cancellation handle for one in-flight bulk operation.
type batch struct {
	eng    *engine.Engine
	cancel context.CancelFunc
}

// Options configures an Orchestrator.
type Options struct {
	// Security supplies the validation and archive limits. Nil means
	// DefaultSecurityConfig.
	Security *fileops.SecurityConfig

	// ChunkSize overrides the engine's copy unit when positive.
	ChunkSize int
}

// New returns an Orchestrator.
func New(opts *Options) *Orchestrator {
	o := &Orchestrator{
		sec:       fileops.DefaultSecurityConfig(),
		chunkSize: engine.DefaultChunkSize,
	}
	if opts != nil {
		if opts.Security != nil {
			o.sec = opts.Security
		}
		if opts.ChunkSize > 0 {
			o.chunkSize = opts.ChunkSize
		}
	}
	return o
}

// Cancel stops the in-flight batch, if any. The current item stops at its
// next chunk or file boundary and reports fileops.ErrCancelled; items that
// already completed stay completed; remaining items are not attempted. Safe
// to call at any time and from any goroutine.
func (o *Orchestrator) Cancel() {
	if b := o.current.Load(); b != nil {
		b.eng.Cancel()
		b.cancel()
	}
}

// beginBatch installs the cancellation handle for a new batch and returns
// the derived context, the batch engine, and the teardown func.
func (o *Orchestrator) beginBatch(ctx context.Context, onProgress engine.ProgressFunc) (context.Context, *engine.Engine, func()) {
	ctx, cancel := context.WithCancel(ctx)
	b := &batch{
		eng:    engine.New(&engine.Options{ChunkSize: o.chunkSize, OnProgress: onProgress}),
		cancel: cancel,
	}
	o.current.Store(b)
	return ctx, b.eng, func() {
		o.current.CompareAndSwap(b, nil)
		cancel()
	}
}

// interrupted reports whether the batch should stop before attempting the
// next item, marking the summary cancelled when it should.
func interrupted(ctx context.Context, eng *engine.Engine, s *Summary) bool {
	if ctx.Err() != nil || eng.Cancelled() {
		s.Cancelled = true
		return true
	}
	return false
}

// CopyItems copies each item into destDir under its own basename, in the
// order given. One item's failure records an error and the batch continues;
// cancellation stops the batch at the next boundary and leaves completed
// items in place. The whole batch runs chunked through the engine when any
// item crosses the async threshold, directly through fileops otherwise.
func (o *Orchestrator) CopyItems(ctx context.Context, items []string, destDir string, overwrite bool, onProgress engine.ProgressFunc) Summary {
	ctx, eng, done := o.beginBatch(ctx, onProgress)
	defer done()

	async := engine.ShouldUseAsync(items)
	logging.Debug("Copy batch", "items", len(items), "dest", destDir, "async", async)

	var s Summary
	for _, item := range items {
		if interrupted(ctx, eng, &s) {
			break
		}
		dest, err := o.destFor(item, destDir)
		if err == nil {
			if async {
				err = eng.CopyFile(ctx, item, dest, overwrite)
			} else {
				err = fileops.CopyFile(item, dest, overwrite)
			}
		}
		if err != nil {
			s.fail(item, err)
			if errors.Is(err, fileops.ErrCancelled) {
				break
			}
			continue
		}
		s.ok()
	}
	s.classify()
	return s
}

// MoveItems moves each item into destDir under its own basename, with the
// same batching, ordering, and cancellation behavior as CopyItems. A
// cancelled or failed item keeps its source.
func (o *Orchestrator) MoveItems(ctx context.Context, items []string, destDir string, overwrite bool, onProgress engine.ProgressFunc) Summary {
	ctx, eng, done := o.beginBatch(ctx, onProgress)
	defer done()

	async := engine.ShouldUseAsync(items)
	logging.Debug("Move batch", "items", len(items), "dest", destDir, "async", async)

	var s Summary
	for _, item := range items {
		if interrupted(ctx, eng, &s) {
			break
		}
		dest, err := o.destFor(item, destDir)
		if err == nil {
			if async {
				err = eng.MoveFile(ctx, item, dest, overwrite)
			} else {
				err = fileops.MoveFile(item, dest, overwrite)
			}
		}
		if err != nil {
			s.fail(item, err)
			if errors.Is(err, fileops.ErrCancelled) {
				break
			}
			continue
		}
		s.ok()
	}
	s.classify()
	return s
}

// DeleteItems removes each item in order. Directories need recursive set
// unless empty. Per-item failures are recorded and the batch continues.
func (o *Orchestrator) DeleteItems(ctx context.Context, items []string, recursive bool, onProgress engine.ProgressFunc) Summary {
	ctx, eng, done := o.beginBatch(ctx, onProgress)
	defer done()

	async := engine.ShouldUseAsync(items)
	logging.Debug("Delete batch", "items", len(items), "recursive", recursive, "async", async)

	var s Summary
	for _, item := range items {
		if interrupted(ctx, eng, &s) {
			break
		}
		var err error
		if async {
			err = eng.DeleteFile(ctx, item, recursive)
		} else {
			err = fileops.DeleteFile(item, recursive)
		}
		if err != nil {
			s.fail(item, err)
			if errors.Is(err, fileops.ErrCancelled) {
				break
			}
			continue
		}
		s.ok()
	}
	s.classify()
	return s
}

// NewDirectory creates one directory called name inside parent, after name
// validation, and returns its path.
func (o *Orchestrator) NewDirectory(parent, name string, existOK bool) (string, error) {
	return fileops.CreateDirectory(o.sec, parent, name, existOK)
}

// DirectorySize reports the aggregate size under path, streaming periodic
// progress while the walk runs.
func (o *Orchestrator) DirectorySize(ctx context.Context, path string, onProgress engine.ProgressFunc) (int64, error) {
	ctx, eng, done := o.beginBatch(ctx, onProgress)
	defer done()
	return eng.DirectorySize(ctx, path)
}

// ExtractArchive unpacks source into dest under this orchestrator's
// security limits. members narrows extraction to the named entries;
// validate false skips the bomb and traversal pre-pass, though link targets
// are still confined.
func (o *Orchestrator) ExtractArchive(ctx context.Context, source, dest string, members []string, overwrite, validate bool) error {
	ctx, _, done := o.beginBatch(ctx, nil)
	defer done()
	return archive.Extract(ctx, archive.ExtractOptions{
		Source:           source,
		Dest:             dest,
		Members:          members,
		Overwrite:        overwrite,
		SkipSafetyChecks: !validate,
		Security:         o.sec,
	})
}

// CreateArchive packs files into dest, with the format chosen from dest's
// suffix and member names rooted at baseDir when given.
func (o *Orchestrator) CreateArchive(ctx context.Context, files []string, dest string, level int, baseDir string, overwrite bool) error {
	ctx, _, done := o.beginBatch(ctx, nil)
	defer done()
	return archive.Create(ctx, archive.CreateOptions{
		Sources:   files,
		Dest:      dest,
		Level:     level,
		BaseDir:   baseDir,
		Overwrite: overwrite,
	})
}

// ListArchive returns the entries of the archive at path.
func (o *Orchestrator) ListArchive(path string) ([]archive.Entry, error) {
	return archive.List(path)
}

// ArchiveInfo returns aggregate statistics for the archive at path.
func (o *Orchestrator) ArchiveInfo(path string) (archive.Stats, error) {
	return archive.Info(path)
}

// destFor derives the destination path for one item: its basename joined
// onto destDir, validated to stay inside destDir.
func (o *Orchestrator) destFor(item, destDir string) (string, error) {
	name := filepath.Base(filepath.Clean(item))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: cannot derive a destination name from %q", fileops.ErrInvalidName, item)
	}
	dest := filepath.Join(destDir, name)
	if err := o.sec.ValidatePath(dest, destDir, true); err != nil {
		return "", err
	}
	return dest, nil
}
