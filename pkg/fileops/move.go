package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// MoveFile moves source to dest without ever losing data: the source is
// removed only after the destination content is fully in place.
//
// The fast path is an atomic rename, which succeeds when source and dest are
// on the same filesystem. When dest already exists (and overwrite is true)
// the rename runs under the backup protocol: dest is parked at a backup
// name, the rename happens, then the backup is removed; a failed rename
// restores the backup.
//
// When the rename is refused, typically a cross-filesystem move (EXDEV), the
// fall back is copy-then-delete: the source is copied with CopyFile and
// deleted only after the copy fully succeeded. A failure or cancellation
// during the copy leaves the source intact.
//
// Behavior:
//   - a missing source fails with ErrPathNotFound
//   - an existing dest fails with ErrAlreadyExists unless overwrite is true
//
// Usage example:
//
//	if err := fileops.MoveFile(downloaded, "/library/book.pdf", false); err != nil {
//	    return err
//	}
func MoveFile(source, dest string, overwrite bool) error {
	renameErr := Rename(source, dest, overwrite)
	if renameErr == nil {
		return nil
	}

	// A refused rename (cross-device, or an OS that will not replace the
	// target) falls back to copy-then-delete. Anything else is a real error.
	var linkErr *os.LinkError
	if !errors.As(renameErr, &linkErr) {
		return renameErr
	}

	if err := CopyFile(source, dest, overwrite); err != nil {
		return err
	}
	// Only now, with the destination fully written, is the source removed.
	return DeleteFile(source, true)
}

// Rename moves source onto dest by rename alone, never by copying. When
// dest exists (and overwrite is true) the backup protocol applies. A rename
// the OS refuses, typically a cross-filesystem move, surfaces as an
// *os.LinkError so callers can decide to copy instead; MoveFile does
// exactly that.
func Rename(source, dest string, overwrite bool) error {
	if _, err := os.Lstat(source); err != nil {
		return wrapOSError(err, source)
	}

	destExists := false
	if _, err := os.Lstat(dest); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, dest)
		}
		destExists = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return wrapOSError(err, dest)
	}

	if err := EnsureDirectoryExists(filepath.Dir(dest)); err != nil {
		return err
	}

	return renameWithBackup(source, dest, destExists)
}

// renameWithBackup renames source onto dest. When dest exists it is parked
// at a backup name first so a failed rename can be rolled back.
func renameWithBackup(source, dest string, destExists bool) error {
	if !destExists {
		return os.Rename(source, dest)
	}

	backup := backupPathFor(dest)
	if err := os.Rename(dest, backup); err != nil {
		return err
	}

	if err := os.Rename(source, dest); err != nil {
		if rbErr := os.Rename(backup, dest); rbErr != nil {
			// The destination is in an inconsistent state; do not let the
			// caller fall back to a copy on top of it.
			return fmt.Errorf("rename failed: %v (backup left at %s: %v)", err, backup, rbErr)
		}
		return err
	}

	// Best effort: the move is complete, a stale backup only wastes space.
	_ = os.RemoveAll(backup)
	return nil
}
