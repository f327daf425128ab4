package fileops

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IsSymlink checks if a given path is a symbolic link.
// This function uses lstat to examine the file without following symlinks.
//
// Parameters:
//   - path: File path to check
//
// Returns:
//   - bool: true if the path is a symbolic link, false otherwise
//   - error: File system access errors
//
// Usage example:
//
//	isLink, err := fileops.IsSymlink("/path/to/potential/symlink")
//	if err != nil {
//	    return fmt.Errorf("failed to check symlink: %w", err)
//	}
//	if isLink {
//	    fmt.Println("Path is a symbolic link")
//	}
func IsSymlink(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, wrapOSError(err, path)
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}

// GetSymlinkTarget returns the immediate target of a symbolic link without resolving
// the full chain. This is useful when you need to know what a symlink directly points to,
// for example when recording the link inside an archive.
//
// Parameters:
//   - linkPath: Path to the symbolic link
//
// Returns:
//   - string: Direct target of the symlink (may be relative)
//   - error: Read errors or if path is not a symlink
//
// Usage example:
//
//	target, err := fileops.GetSymlinkTarget("/path/to/symlink")
//	if err != nil {
//	    return fmt.Errorf("failed to read symlink target: %w", err)
//	}
//	fmt.Printf("Symlink directly points to: %s\n", target)
func GetSymlinkTarget(linkPath string) (string, error) {
	isLink, err := IsSymlink(linkPath)
	if err != nil {
		return "", fmt.Errorf("cannot verify symlink: %w", err)
	}
	if !isLink {
		return "", fmt.Errorf("path is not a symbolic link: %s", linkPath)
	}

	target, err := os.Readlink(linkPath)
	if err != nil {
		return "", fmt.Errorf("failed to read symlink: %w", err)
	}

	return target, nil
}

// ValidateSymlinkTarget validates the target string of a symbolic link that is about
// to be created under baseDir, typically while extracting an archive. The target is
// checked lexically, before the link exists, so a hostile link can be rejected without
// ever touching the filesystem.
//
// Parameters:
//   - target: Link target exactly as recorded (may be relative, may use backslashes)
//   - linkDir: Absolute directory the link itself will live in
//   - baseDir: Absolute directory the resolved target must stay within
//
// Returns:
//   - error: ErrAbsolutePath for absolute targets, ErrPathTraversal for targets that
//     resolve outside baseDir, nil when the target is confined
//
// The function rejects:
//   - Empty targets and targets containing NUL bytes
//   - Absolute targets, including Windows drive and UNC forms
//   - Relative targets whose lexical resolution from linkDir escapes baseDir
//
// Security considerations:
//   - Validation is lexical only. It does not follow other symlinks that may already
//     exist under baseDir; extraction must additionally create links with confined
//     primitives (see internal/archive) to hold the boundary under concurrent change.
//
// Usage example:
//
//	err := fileops.ValidateSymlinkTarget("../shared/data", "/dest/sub", "/dest")
//	if err != nil {
//	    return fmt.Errorf("refusing symlink: %w", err)
//	}
func ValidateSymlinkTarget(target, linkDir, baseDir string) error {
	if target == "" {
		return fmt.Errorf("%w: empty symlink target", ErrInvalidName)
	}
	if strings.ContainsRune(target, 0) {
		return fmt.Errorf("%w: symlink target contains NUL byte", ErrPathTraversal)
	}

	// Archives written on Windows can carry backslash-separated targets.
	norm := strings.ReplaceAll(target, "\\", "/")

	if path.IsAbs(norm) || hasDrivePrefix(norm) {
		return fmt.Errorf("%w: absolute symlink target %q", ErrAbsolutePath, target)
	}

	resolved := filepath.Join(linkDir, filepath.FromSlash(norm))
	if !isWithin(resolved, baseDir) {
		return fmt.Errorf("%w: symlink target %q escapes %s", ErrPathTraversal, target, baseDir)
	}

	return nil
}
