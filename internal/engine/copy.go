package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"dualfm/internal/logging"
	"dualfm/pkg/fileops"
)

// CopyFile copies source to dest in chunks, reporting progress after each
// chunk and honoring cancellation between them. Directories run through the
// same walk as CopyDirectory with the first per-file failure folded into
// the returned error; symlinks are recreated, not followed.
func (e *Engine) CopyFile(ctx context.Context, source, dest string, overwrite bool) error {
	e.begin()
	return e.copyPath(ctx, source, dest, overwrite, KindCopy)
}

// CopyDirectory copies the tree at source to dest, streaming one FileResult
// per file and symlink as it completes. Per-file failures do not stop the
// walk; cancellation and setup failures do, and arrive as the final result
// on the channel. The channel closes when the walk is done, so consumers
// must drain it or cancel ctx.
func (e *Engine) CopyDirectory(ctx context.Context, source, dest string, overwrite bool) <-chan FileResult {
	e.begin()
	out := make(chan FileResult)
	go func() {
		defer close(out)
		emit := func(r FileResult) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if err := e.copyTree(ctx, source, dest, overwrite, KindCopy, emit); err != nil {
			emit(FileResult{Path: source, Err: err})
		}
	}()
	return out
}

// copyPath dispatches one source path by type, with fresh batch state.
func (e *Engine) copyPath(ctx context.Context, source, dest string, overwrite bool, kind Kind) error {
	if err := e.checkpoint(ctx); err != nil {
		return err
	}
	info, err := lstat(source)
	if err != nil {
		return err
	}

	switch {
	case info.IsDir():
		var firstErr error
		err := e.copyTree(ctx, source, dest, overwrite, kind, func(r FileResult) bool {
			if r.Err != nil && firstErr == nil {
				firstErr = r.Err
			}
			return true
		})
		if err != nil {
			return err
		}
		return firstErr
	case info.Mode()&fs.ModeSymlink != 0:
		return fileops.CopyFile(source, dest, overwrite)
	default:
		base := Progress{Kind: kind, BytesTotal: info.Size(), TotalFiles: 1}
		return e.copyFileChunked(ctx, source, dest, info.Mode().Perm(), info.ModTime(), overwrite, base)
	}
}

// copyTree walks source in scanner order, creating directories eagerly and
// copying files through the chunked protocol. emit receives one result per
// file and symlink; returning false stops the walk. Totals are aggregated
// before the first byte moves so every snapshot carries stable percentages.
func (e *Engine) copyTree(ctx context.Context, source, dest string, overwrite bool, kind Kind, emit func(FileResult) bool) error {
	info, err := lstat(source)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", fileops.ErrInvalidName, source)
	}

	if _, err := os.Lstat(dest); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", fileops.ErrAlreadyExists, dest)
		}
		// Overwrite replaces the destination tree wholesale, not a merge.
		if err := os.RemoveAll(dest); err != nil {
			return fmt.Errorf("failed to remove existing destination: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot access %s: %w", dest, err)
	}

	scanner, err := fileops.NewDirectoryScanner(source, &fileops.ScanOptions{IncludeHidden: true})
	if err != nil {
		return err
	}
	entries, err := scanner.Scan(ctx)
	scanner.Close()
	if err != nil {
		return err
	}

	base := Progress{Kind: kind}
	for _, entry := range entries {
		switch {
		case entry.IsDir:
		case entry.Mode&fs.ModeSymlink != 0:
			base.TotalFiles++
		case entry.Mode.IsRegular():
			base.TotalFiles++
			base.BytesTotal += entry.Size
		}
	}

	if err := fileops.EnsureDirectoryExists(filepath.Dir(dest)); err != nil {
		return err
	}
	if err := os.MkdirAll(dest, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	logging.Debug("Copying directory", "source", source, "dest", dest, "files", base.TotalFiles, "bytes", base.BytesTotal)

	for _, entry := range entries {
		if err := e.checkpoint(ctx); err != nil {
			return err
		}

		srcPath := filepath.Join(source, entry.Path)
		destPath := filepath.Join(dest, entry.Path)

		switch {
		case entry.IsDir:
			if err := os.MkdirAll(destPath, entry.Mode.Perm()); err != nil {
				return fmt.Errorf("failed to create %s: %w", destPath, err)
			}
		case entry.Mode&fs.ModeSymlink != 0:
			linkErr := fileops.CopyFile(srcPath, destPath, false)
			base.FilesCompleted++
			if !emit(FileResult{Path: entry.Path, Err: linkErr}) {
				return fileops.ErrCancelled
			}
			if linkErr == nil {
				snap := base
				snap.Path = entry.Path
				e.report(snap)
			}
		case !entry.Mode.IsRegular():
			// Sockets, devices, and fifos carry no payload to copy.
		default:
			fileBase := base
			fileBase.Path = entry.Path
			copyErr := e.copyFileChunked(ctx, srcPath, destPath, entry.Mode.Perm(), entry.ModTime, false, fileBase)
			if errors.Is(copyErr, fileops.ErrCancelled) {
				return copyErr
			}
			base.FilesCompleted++
			if copyErr == nil {
				base.BytesDone += entry.Size
			}
			if !emit(FileResult{Path: entry.Path, Err: copyErr}) {
				return fileops.ErrCancelled
			}
			if copyErr == nil {
				snap := base
				snap.Path = entry.Path
				e.report(snap)
			}
		}
	}
	return nil
}

// copyFileChunked copies one regular file through an AtomicFile in
// e.chunkSize pieces. base carries the batch totals; the current file's
// bytes are added on top of base.BytesDone for each snapshot.
func (e *Engine) copyFileChunked(ctx context.Context, source, dest string, perm fs.FileMode, modTime time.Time, overwrite bool, base Progress) error {
	if _, err := os.Lstat(dest); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", fileops.ErrAlreadyExists, dest)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot access %s: %w", dest, err)
	}

	src, err := fileops.OpenNoFollow(source)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := fileops.EnsureDirectoryExists(filepath.Dir(dest)); err != nil {
		return err
	}
	tmp, err := fileops.CreateAtomic(dest)
	if err != nil {
		return err
	}
	defer tmp.Discard()

	buf := make([]byte, e.chunkSize)
	var done int64
	for {
		if err := e.checkpoint(ctx); err != nil {
			return err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := tmp.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write %s: %w", dest, writeErr)
			}
			done += int64(n)
			snap := base
			if snap.Path == "" {
				snap.Path = source
			}
			snap.BytesDone += done
			e.report(snap)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read %s: %w", source, readErr)
		}
	}

	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", dest, err)
	}
	tmp.SetModTime(modTime)
	return tmp.Commit(overwrite)
}
