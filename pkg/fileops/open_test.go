//go:build unix

package fileops

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenNoFollow(t *testing.T) {
	tempDir := createTempDir(t)
	defer os.RemoveAll(tempDir)

	t.Run("opens regular file", func(t *testing.T) {
		path := createTestFile(t, tempDir, "readable.txt", "readable content")

		f, err := OpenNoFollow(path)
		if err != nil {
			t.Fatalf("OpenNoFollow failed: %v", err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if string(data) != "readable content" {
			t.Errorf("Content mismatch: %q", data)
		}
	})

	t.Run("refuses symlink leaf", func(t *testing.T) {
		target := createTestFile(t, tempDir, "real.txt", "real")
		link := filepath.Join(tempDir, "sneaky")
		if err := os.Symlink(target, link); err != nil {
			t.Fatalf("Failed to create symlink: %v", err)
		}

		_, err := OpenNoFollow(link)
		if !errors.Is(err, ErrSymlinkRace) {
			t.Errorf("Expected ErrSymlinkRace, got: %v", err)
		}
	})

	t.Run("symlink in parent directory is followed", func(t *testing.T) {
		// Only the leaf is protected; a symlinked ancestor is legitimate
		// (validation resolves ancestors separately).
		realDir := filepath.Join(tempDir, "real_dir")
		if err := os.Mkdir(realDir, 0o755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		createTestFile(t, realDir, "inner.txt", "inner")

		dirLink := filepath.Join(tempDir, "dir_link")
		if err := os.Symlink(realDir, dirLink); err != nil {
			t.Fatalf("Failed to create symlink: %v", err)
		}

		f, err := OpenNoFollow(filepath.Join(dirLink, "inner.txt"))
		if err != nil {
			t.Fatalf("OpenNoFollow through symlinked parent failed: %v", err)
		}
		f.Close()
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := OpenNoFollow(filepath.Join(tempDir, "void.txt"))
		if !errors.Is(err, ErrPathNotFound) {
			t.Errorf("Expected ErrPathNotFound, got: %v", err)
		}
	})
}
