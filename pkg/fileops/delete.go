package fileops

import (
	"fmt"
	"os"
)

// DeleteFile removes path. The path's existence is re-checked with Lstat
// immediately before the removal syscall rather than trusting an earlier
// check from the caller's flow, which keeps the check-to-delete window as
// small as the OS allows.
//
// Behavior:
//   - a regular file or symlink is unlinked
//   - a directory with recursive false is removed with a plain rmdir, which
//     fails when the directory is not empty
//   - a directory with recursive true is removed with its entire contents
//
// A missing path fails with ErrPathNotFound.
func DeleteFile(path string, recursive bool) error {
	info, err := os.Lstat(path)
	if err != nil {
		return wrapOSError(err, path)
	}

	if !info.IsDir() {
		if err := os.Remove(path); err != nil {
			return wrapOSError(err, path)
		}
		return nil
	}

	if recursive {
		if err := os.RemoveAll(path); err != nil {
			return wrapOSError(err, path)
		}
		return nil
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove directory: %w", wrapOSError(err, path))
	}
	return nil
}
