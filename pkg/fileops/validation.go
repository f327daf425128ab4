package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ValidatePath validates that path resolves to a descendant of allowedBase.
//
// Both paths are made absolute and symlink-resolved before the containment
// check, so a base or path reached through a symlinked parent (such as /tmp
// on macOS) compares correctly. Paths that do not exist yet are resolved
// through their deepest existing ancestor, which makes the check usable for
// destination paths as well as sources.
//
// The validation fails with:
//   - ErrPathTraversal when any component of path is a literal "..", when a
//     component fails IsSafeFilename, or when the resolved path falls outside
//     the resolved allowedBase
//   - ErrUnsafeSymlink when the leaf is a symlink and allowSymlinks is false
//
// This check is advisory-then-enforced: operations re-verify at open time
// with OpenNoFollow because the filesystem can change between validation and
// use (TOCTOU).
//
// Parameters:
//   - path: the path to validate (absolute or relative)
//   - allowedBase: the directory path must stay inside; trusted, supplied by
//     the caller
//   - allowSymlinks: when true a symlink leaf is not rejected, though its
//     resolved target must still stay inside allowedBase
//
// Usage example:
//
//	cfg := fileops.DefaultSecurityConfig()
//	if err := cfg.ValidatePath(dest, destDir, false); err != nil {
//	    return err
//	}
func (c *SecurityConfig) ValidatePath(pathName, allowedBase string, allowSymlinks bool) error {
	if strings.TrimSpace(pathName) == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidName)
	}
	if strings.ContainsRune(pathName, 0) {
		return fmt.Errorf("%w: path contains null byte", ErrPathTraversal)
	}

	if err := c.validateComponents(pathName); err != nil {
		return err
	}

	absPath, err := filepath.Abs(pathName)
	if err != nil {
		return fmt.Errorf("cannot resolve path: %w", err)
	}
	absBase, err := filepath.Abs(allowedBase)
	if err != nil {
		return fmt.Errorf("cannot resolve base directory: %w", err)
	}

	resolvedBase := resolveExisting(absBase)
	resolvedPath := resolveExisting(absPath)
	if !isWithin(resolvedPath, resolvedBase) {
		return fmt.Errorf("%w: %s is outside %s", ErrPathTraversal, pathName, allowedBase)
	}

	if !allowSymlinks {
		if info, lerr := os.Lstat(absPath); lerr == nil && info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", ErrUnsafeSymlink, pathName)
		}
	}

	return nil
}

// validateComponents checks every component of the raw path: a literal ".."
// anywhere is rejected outright, and every other component must pass
// IsSafeFilename. The volume name (on Windows) is skipped.
func (c *SecurityConfig) validateComponents(pathName string) error {
	rest := pathName[len(filepath.VolumeName(pathName)):]
	rest = strings.ReplaceAll(rest, `\`, "/")

	for _, seg := range strings.Split(rest, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return fmt.Errorf("%w: %q contains a parent-directory component", ErrPathTraversal, pathName)
		}
		if !c.IsSafeFilename(seg) {
			return fmt.Errorf("%w: unsafe component %q", ErrPathTraversal, seg)
		}
	}
	return nil
}

// ValidateArchiveMember validates an archive member name against the
// extraction directory destDir. Member names trust nothing: absolute paths
// are rejected outright, every ".." segment is rejected regardless of where
// the name would land, and every segment must pass IsSafeFilename. Finally
// the name is joined with destDir and the joined path must remain inside it.
// This is the canonical zip-slip defense.
//
// Backslashes are normalized to forward slashes first, so archives built on
// Windows validate the same way as archives built elsewhere.
//
// The validation fails with ErrAbsolutePath for absolute member names
// (including drive-letter forms) and ErrPathTraversal for everything else.
func (c *SecurityConfig) ValidateArchiveMember(memberPath, destDir string) error {
	if memberPath == "" {
		return fmt.Errorf("%w: empty archive member name", ErrInvalidName)
	}
	if strings.ContainsRune(memberPath, 0) {
		return fmt.Errorf("%w: member name contains null byte", ErrPathTraversal)
	}

	normalized := strings.ReplaceAll(memberPath, `\`, "/")
	if path.IsAbs(normalized) || hasDrivePrefix(normalized) {
		return fmt.Errorf("%w: %q", ErrAbsolutePath, memberPath)
	}

	for _, seg := range strings.Split(normalized, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return fmt.Errorf("%w: member %q contains a parent-directory segment", ErrPathTraversal, memberPath)
		}
		if !c.IsSafeFilename(seg) {
			return fmt.Errorf("%w: member %q has unsafe segment %q", ErrPathTraversal, memberPath, seg)
		}
	}

	cleanDest := filepath.Clean(destDir)
	joined := filepath.Join(cleanDest, filepath.FromSlash(normalized))
	if !isWithin(joined, cleanDest) {
		return fmt.Errorf("%w: member %q resolves outside destination", ErrPathTraversal, memberPath)
	}

	return nil
}

// hasDrivePrefix reports whether a slash-normalized name starts with a
// Windows drive letter such as "C:" or "c:/evil".
func hasDrivePrefix(name string) bool {
	if len(name) < 2 || name[1] != ':' {
		return false
	}
	drive := name[0]
	return ('a' <= drive && drive <= 'z') || ('A' <= drive && drive <= 'Z')
}

// isWithin reports whether path is base itself or a descendant of base. Both
// arguments must already be cleaned absolute paths of the same resolution
// level (both lexical or both symlink-resolved).
func isWithin(pathName, base string) bool {
	rel, err := filepath.Rel(base, pathName)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolveExisting resolves symlinks in path. When the path does not exist
// yet, its deepest existing ancestor is resolved and the remaining lexical
// components are rejoined, which gives destination paths a stable resolved
// form.
func resolveExisting(pathName string) string {
	resolved, err := filepath.EvalSymlinks(pathName)
	if err == nil {
		return resolved
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return filepath.Clean(pathName)
	}

	parent := filepath.Dir(pathName)
	if parent == pathName {
		return pathName
	}
	return filepath.Join(resolveExisting(parent), filepath.Base(pathName))
}
