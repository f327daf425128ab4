package fileops

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Name prefixes for the two-phase replacement protocol. They are dot-prefixed
// so half-finished artifacts stay out of normal directory listings, and both
// carry a random suffix so concurrent operations on the same destination name
// cannot collide.
const (
	tempPrefix   = ".tmp_"
	backupPrefix = ".backup_"
)

// AtomicFile is a destination file being written through the temp-file plus
// atomic-rename protocol. Data is written to a hidden temp file in the
// destination directory; Commit fsyncs it and renames it into place, backing
// up and restoring any existing destination on failure. Discard removes the
// temp file and leaves the destination untouched.
//
// Exactly one of Commit or Discard must be called. Both are safe to call
// again afterwards, so Discard can sit in a defer as a failure guard:
//
//	af, err := fileops.CreateAtomic(dest)
//	if err != nil {
//	    return err
//	}
//	defer af.Discard()
//	if _, err := io.Copy(af, src); err != nil {
//	    return err
//	}
//	return af.Commit(overwrite)
type AtomicFile struct {
	f        *os.File
	dest     string
	tempPath string
	modTime  time.Time
	done     bool
}

// CreateAtomic starts an atomic write to dest. The temp file is created in
// the destination directory (never a shared temp dir) so the final rename
// stays on one filesystem and is genuinely atomic.
func CreateAtomic(dest string) (*AtomicFile, error) {
	tempPath := tempPathFor(dest)
	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", wrapOSError(err, tempPath))
	}
	return &AtomicFile{f: f, dest: dest, tempPath: tempPath}, nil
}

// Write writes to the underlying temp file.
func (a *AtomicFile) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

// Chmod sets the permission bits the destination will carry.
func (a *AtomicFile) Chmod(mode fs.FileMode) error {
	return a.f.Chmod(mode)
}

// SetModTime records the modification time to apply to the destination. The
// zero value leaves the write time as is.
func (a *AtomicFile) SetModTime(t time.Time) {
	a.modTime = t
}

// Commit finishes the write: the temp file is synced to disk, closed, and
// renamed over the destination. When the destination already exists it is
// first renamed to a backup name; on a failed final rename the backup is
// restored, and on success it is removed. With overwrite false an existing
// destination fails with ErrAlreadyExists and the temp file is cleaned up,
// so a file that appeared after the operation started is never clobbered.
func (a *AtomicFile) Commit(overwrite bool) error {
	if a.done {
		return nil
	}

	if err := a.f.Sync(); err != nil {
		a.Discard()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if !a.modTime.IsZero() {
		if err := os.Chtimes(a.tempPath, a.modTime, a.modTime); err != nil {
			a.Discard()
			return fmt.Errorf("failed to set modification time: %w", err)
		}
	}
	if err := a.f.Close(); err != nil {
		a.Discard()
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if _, err := os.Lstat(a.dest); err == nil {
		if !overwrite {
			a.done = true
			os.Remove(a.tempPath)
			return fmt.Errorf("%w: %s", ErrAlreadyExists, a.dest)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		a.Discard()
		return wrapOSError(err, a.dest)
	}

	if err := replaceFile(a.tempPath, a.dest); err != nil {
		a.done = true
		os.Remove(a.tempPath)
		return err
	}

	a.done = true
	return nil
}

// Discard abandons the write, closing and removing the temp file. The
// destination is left exactly as it was. Safe to call multiple times and
// after Commit.
func (a *AtomicFile) Discard() {
	if a.done {
		return
	}
	a.done = true
	a.f.Close()
	os.Remove(a.tempPath)
}

// replaceFile renames tmp into place at dest. An existing dest is parked at
// a backup name first so the replacement can be rolled back if the final
// rename fails.
func replaceFile(tmp, dest string) error {
	if _, err := os.Lstat(dest); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return wrapOSError(err, dest)
		}
		if err := os.Rename(tmp, dest); err != nil {
			return fmt.Errorf("failed to rename temporary file: %w", err)
		}
		return nil
	}

	backup := backupPathFor(dest)
	if err := os.Rename(dest, backup); err != nil {
		return fmt.Errorf("failed to back up existing destination: %w", err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		if rbErr := os.Rename(backup, dest); rbErr != nil {
			return fmt.Errorf("failed to rename temporary file: %w (backup left at %s: %v)", err, backup, rbErr)
		}
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	// Best effort: dest is already in place, a stale backup only wastes space.
	_ = os.RemoveAll(backup)
	return nil
}

// tempPathFor builds the temp-file name for dest in dest's own directory.
func tempPathFor(dest string) string {
	dir, name := filepath.Split(dest)
	return filepath.Join(dir, tempPrefix+name+"_"+randomSuffix())
}

// backupPathFor builds the backup name for dest in dest's own directory.
func backupPathFor(dest string) string {
	dir, name := filepath.Split(dest)
	return filepath.Join(dir, backupPrefix+name+"_"+randomSuffix())
}

// randomSuffix returns a short hex string making temp and backup names
// unique within a directory.
func randomSuffix() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b[:])
}
