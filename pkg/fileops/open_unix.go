//go:build unix

package fileops

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// openNoFollow opens path with O_NOFOLLOW, so a symlink leaf fails inside
// the open syscall itself with no check-to-use window. Linux and macOS report
// a refused symlink as ELOOP; some BSDs use EMLINK.
func openNoFollow(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|unix.O_NOFOLLOW, 0)
	if err != nil {
		if errors.Is(err, unix.ELOOP) || errors.Is(err, unix.EMLINK) {
			return nil, fmt.Errorf("%w: %s", ErrSymlinkRace, path)
		}
		return nil, wrapOSError(err, path)
	}
	return f, nil
}
