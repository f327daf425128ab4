package fileops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyFile copies source to dest with crash-safe semantics: the destination
// either appears fully copied or not at all.
//
// Behavior:
//   - a missing source fails with ErrPathNotFound
//   - an existing dest fails with ErrAlreadyExists unless overwrite is true
//   - a regular-file source is written through the temp-file plus
//     atomic-rename protocol; content, permission bits, and modification
//     time are copied
//   - a directory source is copied recursively; when overwriting, the
//     existing destination tree is removed wholesale and recreated rather
//     than merged
//   - a symlink source is recreated as a symlink with the same target
//
// Parent directories of dest are created as needed. The source is opened
// with OpenNoFollow, so a regular file swapped for a symlink after
// validation fails with ErrSymlinkRace instead of being followed.
//
// Parameters:
//   - source: path of the file, directory, or symlink to copy
//   - dest: destination path (not the destination's parent directory)
//   - overwrite: replace an existing destination
//
// Usage example:
//
//	if err := fileops.CopyFile("/data/report.txt", "/backup/report.txt", false); err != nil {
//	    return err
//	}
func CopyFile(source, dest string, overwrite bool) error {
	info, err := os.Lstat(source)
	if err != nil {
		return wrapOSError(err, source)
	}

	if _, err := os.Lstat(dest); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, dest)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return wrapOSError(err, dest)
	}

	switch {
	case info.IsDir():
		return copyTree(source, dest, overwrite)
	case info.Mode()&os.ModeSymlink != 0:
		return copySymlink(source, dest, overwrite)
	default:
		return copyFileContents(source, dest, info, overwrite)
	}
}

// copyFileContents copies one regular file through an AtomicFile.
func copyFileContents(source, dest string, info fs.FileInfo, overwrite bool) error {
	src, err := OpenNoFollow(source)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := EnsureDirectoryExists(filepath.Dir(dest)); err != nil {
		return err
	}

	af, err := CreateAtomic(dest)
	if err != nil {
		return err
	}
	defer af.Discard()

	if _, err := io.Copy(af, src); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	if err := af.Chmod(info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	af.SetModTime(info.ModTime())

	return af.Commit(overwrite)
}

// copySymlink recreates a symlink at dest with the same target as source.
// The target is copied verbatim; link validation is the caller's concern.
func copySymlink(source, dest string, overwrite bool) error {
	target, err := os.Readlink(source)
	if err != nil {
		return wrapOSError(err, source)
	}

	if err := EnsureDirectoryExists(filepath.Dir(dest)); err != nil {
		return err
	}
	if overwrite {
		if err := os.RemoveAll(dest); err != nil {
			return wrapOSError(err, dest)
		}
	}

	if err := os.Symlink(target, dest); err != nil {
		return wrapOSError(err, dest)
	}
	return nil
}

// copyTree copies a directory recursively. An existing destination has
// already been approved for overwrite by the caller and is replaced
// wholesale, not merged.
func copyTree(source, dest string, overwrite bool) error {
	if _, err := os.Lstat(dest); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, dest)
		}
		if err := os.RemoveAll(dest); err != nil {
			return fmt.Errorf("failed to remove existing destination: %w", err)
		}
	}

	return filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return wrapOSError(err, path)
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		info, err := d.Info()
		if err != nil {
			return wrapOSError(err, path)
		}

		switch {
		case d.IsDir():
			if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
				return wrapOSError(err, target)
			}
			return nil
		case info.Mode()&os.ModeSymlink != 0:
			return copySymlink(path, target, false)
		case info.Mode().IsRegular():
			return copyFileContents(path, target, info, false)
		default:
			// Sockets, devices, and fifos are skipped; a tree copy carries
			// data, not special files.
			return nil
		}
	})
}
