//go:build windows

package fileops

import (
	"fmt"
	"os"
)

// openNoFollow approximates no-follow semantics on Windows: the symlink
// status is checked with Lstat immediately before the open. Unlike the Unix
// O_NOFOLLOW path this is not atomic; a link planted between the check and
// the open is not caught. The window is narrow but real, and callers that
// need the hard guarantee should treat Windows as best-effort here.
func openNoFollow(path string) (*os.File, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, wrapOSError(err, path)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymlinkRace, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, wrapOSError(err, path)
	}
	return f, nil
}
