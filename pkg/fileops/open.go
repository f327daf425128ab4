package fileops

import "os"

// OpenNoFollow opens path for reading, refusing to follow a symlink leaf.
//
// This closes the classic race where a validated regular file is swapped for
// a symlink between the validation and the open: the open itself fails with
// ErrSymlinkRace instead of silently following the link.
//
// On Unix the refusal is atomic via the O_NOFOLLOW open flag. On Windows no
// equivalent flag is available through the os package, so the symlink check
// happens immediately before the open; that narrows the race window but
// cannot fully close it. See the platform files for details.
func OpenNoFollow(path string) (*os.File, error) {
	return openNoFollow(path)
}
