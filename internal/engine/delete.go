package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"dualfm/pkg/fileops"
)

// DeleteFile removes path. A directory with recursive unset must be empty.
// A recursive delete lists the tree first, removes files before
// directories with a cancellation checkpoint between each, and finishes
// with the directory itself. Cancellation stops the walk where it stands;
// entries already removed stay removed.
func (e *Engine) DeleteFile(ctx context.Context, path string, recursive bool) error {
	e.begin()
	if err := e.checkpoint(ctx); err != nil {
		return err
	}

	info, err := lstat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() || !recursive {
		return fileops.DeleteFile(path, recursive)
	}

	scanner, err := fileops.NewDirectoryScanner(path, &fileops.ScanOptions{IncludeHidden: true})
	if err != nil {
		return err
	}
	entries, err := scanner.Scan(ctx)
	scanner.Close()
	if err != nil {
		return err
	}

	total := 0
	for _, entry := range entries {
		if !entry.IsDir {
			total++
		}
	}

	var dirs []string
	removed := 0
	for _, entry := range entries {
		if entry.IsDir {
			dirs = append(dirs, entry.Path)
			continue
		}
		if err := e.checkpoint(ctx); err != nil {
			return err
		}
		if err := os.Remove(filepath.Join(path, entry.Path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return deleteErr(entry.Path, err)
		}
		removed++
		e.report(Progress{Kind: KindDelete, Path: entry.Path, FilesCompleted: removed, TotalFiles: total})
	}

	// Directories empty out children first, so remove them in reverse scan
	// order.
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := e.checkpoint(ctx); err != nil {
			return err
		}
		if err := os.Remove(filepath.Join(path, dirs[i])); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return deleteErr(dirs[i], err)
		}
	}

	return fileops.DeleteFile(path, false)
}

func deleteErr(path string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s", fileops.ErrPermissionDenied, path)
	}
	return fmt.Errorf("failed to delete %s: %w", path, err)
}
