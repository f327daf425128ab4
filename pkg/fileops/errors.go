package fileops

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors for the security and file-operation taxonomy. Callers match
// them with errors.Is; the wrapped form carries the offending path or name.
var (
	// ErrPathTraversal indicates a path or archive member that would resolve
	// outside its allowed base directory.
	ErrPathTraversal = errors.New("fileops: path traversal detected")

	// ErrAbsolutePath indicates an archive member or symlink target that is
	// an absolute path. Archive contents must always be relative.
	ErrAbsolutePath = errors.New("fileops: absolute path not allowed")

	// ErrUnsafeSymlink indicates a symlink leaf where symlinks are not
	// permitted by the caller.
	ErrUnsafeSymlink = errors.New("fileops: unsafe symlink")

	// ErrSymlinkRace indicates that a path changed to a symlink between
	// validation and open. It is a security rejection, distinct from generic
	// I/O failures, and is never retried.
	ErrSymlinkRace = errors.New("fileops: symlink race detected")

	// ErrInvalidName indicates a filename that fails the safety rules
	// (empty, reserved, or containing forbidden characters).
	ErrInvalidName = errors.New("fileops: invalid filename")

	// ErrArchiveBomb indicates archive limits were exceeded: compression
	// ratio, total extracted size, or file count.
	ErrArchiveBomb = errors.New("fileops: archive bomb detected")

	// ErrPathNotFound indicates a missing source or target path.
	ErrPathNotFound = errors.New("fileops: path not found")

	// ErrAlreadyExists indicates a destination that exists while overwrite
	// was not requested.
	ErrAlreadyExists = errors.New("fileops: already exists")

	// ErrPermissionDenied indicates an operating-system permission failure.
	ErrPermissionDenied = errors.New("fileops: permission denied")

	// ErrCancelled indicates the operation was cancelled by the caller. It is
	// a terminal state rather than a failure; callers present it differently.
	ErrCancelled = errors.New("fileops: operation cancelled")
)

// wrapOSError normalizes well-known operating-system error classes onto the
// package sentinels so callers can match with errors.Is regardless of
// platform-specific errno values.
func wrapOSError(err error, path string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrPathNotFound, path)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	default:
		return err
	}
}
