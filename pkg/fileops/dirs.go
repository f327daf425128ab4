package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CreateDirectory creates a single directory called name inside parent and
// returns its path. The name is validated with IsSafeFilename before any
// filesystem call, so separator characters, control characters, and reserved
// names are rejected with ErrInvalidName.
//
// Behavior:
//   - an existing directory of the same name fails with ErrAlreadyExists
//     unless existOK is true
//   - an existing non-directory of the same name always fails with
//     ErrAlreadyExists
//   - a missing parent fails with ErrPathNotFound
//
// A nil cfg falls back to DefaultSecurityConfig.
func CreateDirectory(cfg *SecurityConfig, parent, name string, existOK bool) (string, error) {
	if cfg == nil {
		cfg = DefaultSecurityConfig()
	}
	if !cfg.IsSafeFilename(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	path := filepath.Join(parent, name)
	err := os.Mkdir(path, 0o755)
	if err == nil {
		return path, nil
	}

	if errors.Is(err, fs.ErrExist) {
		if existOK {
			if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
				return path, nil
			}
		}
		return "", fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}

	return "", wrapOSError(err, path)
}

// EnsureDirectoryExists creates a directory and all necessary parent
// directories. This is equivalent to `mkdir -p` and is safe to call
// multiple times.
//
// The function sets directory permissions to 0755 (readable and executable
// by all, writable by owner only).
func EnsureDirectoryExists(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, wrapOSError(err, path))
	}
	return nil
}
