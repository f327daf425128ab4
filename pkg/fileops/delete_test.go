package fileops

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDeleteFile(t *testing.T) {
	tempDir := createTempDir(t)
	defer os.RemoveAll(tempDir)

	t.Run("delete regular file", func(t *testing.T) {
		path := createTestFile(t, tempDir, "victim.txt", "bye")

		if err := DeleteFile(path, false); err != nil {
			t.Fatalf("DeleteFile failed: %v", err)
		}
		if fileExists(path) {
			t.Error("File still exists after delete")
		}
	})

	t.Run("delete symlink leaves target", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlink creation requires elevated privileges on Windows")
		}
		target := createTestFile(t, tempDir, "survivor.txt", "still here")
		link := filepath.Join(tempDir, "doomed_link")
		if err := os.Symlink(target, link); err != nil {
			t.Fatalf("Failed to create symlink: %v", err)
		}

		if err := DeleteFile(link, false); err != nil {
			t.Fatalf("DeleteFile failed: %v", err)
		}

		if fileExists(link) {
			t.Error("Symlink still exists after delete")
		}
		if readFileContent(t, target) != "still here" {
			t.Error("Symlink target was affected by deleting the link")
		}
	})
}

func TestDeleteDirectory(t *testing.T) {
	tempDir := createTempDir(t)
	defer os.RemoveAll(tempDir)

	t.Run("delete empty directory", func(t *testing.T) {
		dir := filepath.Join(tempDir, "empty")
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}

		if err := DeleteFile(dir, false); err != nil {
			t.Fatalf("DeleteFile failed: %v", err)
		}
		if fileExists(dir) {
			t.Error("Directory still exists after delete")
		}
	})

	t.Run("non-empty directory requires recursive", func(t *testing.T) {
		dir := filepath.Join(tempDir, "full")
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		createTestFile(t, dir, "content.txt", "x")

		if err := DeleteFile(dir, false); err == nil {
			t.Fatal("Expected error deleting non-empty directory without recursive")
		}
		if !fileExists(dir) {
			t.Error("Directory was removed despite the error")
		}

		if err := DeleteFile(dir, true); err != nil {
			t.Fatalf("Recursive DeleteFile failed: %v", err)
		}
		if fileExists(dir) {
			t.Error("Directory still exists after recursive delete")
		}
	})
}

func TestDeleteFileErrors(t *testing.T) {
	tempDir := createTempDir(t)
	defer os.RemoveAll(tempDir)

	t.Run("non-existent path", func(t *testing.T) {
		err := DeleteFile(filepath.Join(tempDir, "never_was.txt"), false)
		if !errors.Is(err, ErrPathNotFound) {
			t.Errorf("Expected ErrPathNotFound, got: %v", err)
		}
	})
}
