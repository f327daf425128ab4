package cli

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"dualfm/internal/archive"
)

func TestListSize(t *testing.T) {
	orig := lsHuman
	defer func() { lsHuman = orig }()

	dir := archive.Entry{Name: "docs/", IsDir: true}
	file := archive.Entry{Name: "docs/a.txt", Size: 2048}

	lsHuman = false
	assert.Equal(t, "-", listSize(dir))
	assert.Equal(t, "2048", listSize(file))

	lsHuman = true
	assert.Equal(t, "2.0 KiB", listSize(file))
}

func TestListName(t *testing.T) {
	plain := archive.Entry{Name: "a.txt"}
	link := archive.Entry{Name: "current", IsSymlink: true, LinkTarget: "releases/v2", Mode: fs.ModeSymlink | 0o777}
	hard := archive.Entry{Name: "copy.bin", IsHardlink: true, LinkTarget: "orig.bin"}

	assert.Equal(t, "a.txt", listName(plain))
	assert.Equal(t, "current -> releases/v2", listName(link))
	assert.Equal(t, "copy.bin link to orig.bin", listName(hard))
}
