package fileops

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestAtomicFile(t *testing.T) {
	tempDir := createTempDir(t)
	defer os.RemoveAll(tempDir)

	t.Run("commit writes destination", func(t *testing.T) {
		dest := filepath.Join(tempDir, "committed.txt")

		af, err := CreateAtomic(dest)
		if err != nil {
			t.Fatalf("CreateAtomic failed: %v", err)
		}
		if _, err := af.Write([]byte("payload")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := af.Commit(false); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		if readFileContent(t, dest) != "payload" {
			t.Error("Committed content mismatch")
		}
		requireNoWorkFiles(t, tempDir)
	})

	t.Run("temp file is hidden and in destination directory", func(t *testing.T) {
		dest := filepath.Join(tempDir, "inspect.txt")

		af, err := CreateAtomic(dest)
		if err != nil {
			t.Fatalf("CreateAtomic failed: %v", err)
		}
		defer af.Discard()

		base := filepath.Base(af.tempPath)
		if !strings.HasPrefix(base, tempPrefix) {
			t.Errorf("Temp name %q does not carry prefix %q", base, tempPrefix)
		}
		if !strings.Contains(base, "inspect.txt") {
			t.Errorf("Temp name %q does not reference the destination name", base)
		}
		if filepath.Dir(af.tempPath) != tempDir {
			t.Errorf("Temp file created outside destination directory: %s", af.tempPath)
		}
	})

	t.Run("discard leaves nothing behind", func(t *testing.T) {
		dest := filepath.Join(tempDir, "abandoned.txt")

		af, err := CreateAtomic(dest)
		if err != nil {
			t.Fatalf("CreateAtomic failed: %v", err)
		}
		if _, err := af.Write([]byte("never seen")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		af.Discard()

		if fileExists(dest) {
			t.Error("Destination exists after discard")
		}
		requireNoWorkFiles(t, tempDir)
	})

	t.Run("discard is idempotent and safe after commit", func(t *testing.T) {
		dest := filepath.Join(tempDir, "twice.txt")

		af, err := CreateAtomic(dest)
		if err != nil {
			t.Fatalf("CreateAtomic failed: %v", err)
		}
		if _, err := af.Write([]byte("kept")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := af.Commit(false); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		af.Discard()
		af.Discard()

		if readFileContent(t, dest) != "kept" {
			t.Error("Discard after commit damaged the destination")
		}
	})

	t.Run("mode and modification time applied", func(t *testing.T) {
		dest := filepath.Join(tempDir, "meta.txt")
		want := time.Date(2019, 3, 9, 8, 0, 0, 0, time.UTC)

		af, err := CreateAtomic(dest)
		if err != nil {
			t.Fatalf("CreateAtomic failed: %v", err)
		}
		if _, err := af.Write([]byte("meta")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := af.Chmod(0o600); err != nil {
			t.Fatalf("Chmod failed: %v", err)
		}
		af.SetModTime(want)
		if err := af.Commit(false); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		info, err := os.Stat(dest)
		if err != nil {
			t.Fatalf("Failed to stat destination: %v", err)
		}
		if runtime.GOOS != "windows" && info.Mode().Perm() != 0o600 {
			t.Errorf("Mode not applied. Expected 0600, got %v", info.Mode().Perm())
		}
		if !info.ModTime().Truncate(time.Second).Equal(want) {
			t.Errorf("Modification time not applied. Expected %v, got %v", want, info.ModTime())
		}
	})
}

func TestAtomicFileConflicts(t *testing.T) {
	tempDir := createTempDir(t)
	defer os.RemoveAll(tempDir)

	t.Run("existing destination without overwrite", func(t *testing.T) {
		dest := createTestFile(t, tempDir, "guarded.txt", "original")

		af, err := CreateAtomic(dest)
		if err != nil {
			t.Fatalf("CreateAtomic failed: %v", err)
		}
		if _, err := af.Write([]byte("intruder")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		err = af.Commit(false)
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("Expected ErrAlreadyExists, got: %v", err)
		}

		if readFileContent(t, dest) != "original" {
			t.Error("Destination was modified by refused commit")
		}
		requireNoWorkFiles(t, tempDir)
	})

	t.Run("file appearing mid-write is not clobbered", func(t *testing.T) {
		dest := filepath.Join(tempDir, "late_arrival.txt")

		af, err := CreateAtomic(dest)
		if err != nil {
			t.Fatalf("CreateAtomic failed: %v", err)
		}
		if _, err := af.Write([]byte("slow writer")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		// Another actor creates the destination while the write is open.
		createTestFile(t, tempDir, "late_arrival.txt", "fast writer")

		err = af.Commit(false)
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("Expected ErrAlreadyExists, got: %v", err)
		}
		if readFileContent(t, dest) != "fast writer" {
			t.Error("Concurrent file was clobbered")
		}
		requireNoWorkFiles(t, tempDir)
	})

	t.Run("existing destination with overwrite", func(t *testing.T) {
		dest := createTestFile(t, tempDir, "replaceable.txt", "old")

		af, err := CreateAtomic(dest)
		if err != nil {
			t.Fatalf("CreateAtomic failed: %v", err)
		}
		if _, err := af.Write([]byte("new")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := af.Commit(true); err != nil {
			t.Fatalf("Commit with overwrite failed: %v", err)
		}

		if readFileContent(t, dest) != "new" {
			t.Error("Destination was not replaced")
		}
		requireNoWorkFiles(t, tempDir)
	})

	t.Run("concurrent writers to the same destination do not collide", func(t *testing.T) {
		dest := filepath.Join(tempDir, "contested.txt")

		first, err := CreateAtomic(dest)
		if err != nil {
			t.Fatalf("CreateAtomic failed: %v", err)
		}
		second, err := CreateAtomic(dest)
		if err != nil {
			t.Fatalf("Second CreateAtomic failed: %v", err)
		}

		if first.tempPath == second.tempPath {
			t.Fatal("Two atomic writers share a temp file")
		}

		if _, err := first.Write([]byte("first")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if _, err := second.Write([]byte("second")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := first.Commit(false); err != nil {
			t.Fatalf("First commit failed: %v", err)
		}
		if err := second.Commit(true); err != nil {
			t.Fatalf("Second commit failed: %v", err)
		}

		if readFileContent(t, dest) != "second" {
			t.Error("Last committed writer should win")
		}
		requireNoWorkFiles(t, tempDir)
	})
}
