package operations

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dualfm/internal/engine"
	"dualfm/pkg/fileops"
)

func writeTestFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestCopyItemsSuccess(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "A", "a.txt")
	writeTestFile(t, source, []byte("hi"))
	destDir := filepath.Join(dir, "B")
	require.NoError(t, os.MkdirAll(destDir, 0o755))

	o := New(nil)
	s := o.CopyItems(context.Background(), []string{source}, destDir, false, nil)

	assert.Equal(t, Success, s.Result)
	assert.Equal(t, 1, s.SuccessCount)
	assert.Zero(t, s.ErrorCount)
	assert.False(t, s.Cancelled)

	got, err := os.ReadFile(filepath.Join(destDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))
}

func TestCopyItemsConflict(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "A", "a.txt")
	writeTestFile(t, source, []byte("new"))
	destDir := filepath.Join(dir, "B")
	occupied := filepath.Join(destDir, "a.txt")
	writeTestFile(t, occupied, []byte("original"))

	o := New(nil)
	s := o.CopyItems(context.Background(), []string{source}, destDir, false, nil)

	assert.Equal(t, Failure, s.Result)
	assert.Zero(t, s.SuccessCount)
	assert.Equal(t, 1, s.ErrorCount)
	require.Len(t, s.Errors, 1)
	assert.Equal(t, source, s.Errors[0].Item)
	assert.Contains(t, s.Errors[0].Err.Error(), "already exists")

	got, err := os.ReadFile(occupied)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
}

func TestCopyItemsPartialBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "A", "a.txt")
	b := filepath.Join(dir, "A", "b.txt")
	writeTestFile(t, a, []byte("alpha"))
	writeTestFile(t, b, []byte("bravo"))
	destDir := filepath.Join(dir, "B")
	writeTestFile(t, filepath.Join(destDir, "b.txt"), []byte("blocking"))

	o := New(nil)
	s := o.CopyItems(context.Background(), []string{a, b}, destDir, false, nil)

	assert.Equal(t, Partial, s.Result)
	assert.Equal(t, 1, s.SuccessCount)
	assert.Equal(t, 1, s.ErrorCount)
	assert.FileExists(t, filepath.Join(destDir, "a.txt"))
}

func TestCopyItemsRecordsErrorsInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ok := filepath.Join(dir, "A", "ok.txt")
	writeTestFile(t, ok, []byte("fine"))
	destDir := filepath.Join(dir, "B")
	require.NoError(t, os.MkdirAll(destDir, 0o755))

	ghost1 := filepath.Join(dir, "A", "ghost1.txt")
	ghost2 := filepath.Join(dir, "A", "ghost2.txt")

	o := New(nil)
	s := o.CopyItems(context.Background(), []string{ghost1, ok, ghost2}, destDir, false, nil)

	assert.Equal(t, Partial, s.Result)
	assert.Equal(t, 1, s.SuccessCount)
	assert.Equal(t, 2, s.ErrorCount)
	require.Len(t, s.Errors, 2)
	assert.Equal(t, ghost1, s.Errors[0].Item)
	assert.Equal(t, ghost2, s.Errors[1].Item)
	assert.ErrorIs(t, s.Errors[0].Err, fileops.ErrPathNotFound)

	// The failure before it did not stop ok.txt from copying.
	assert.FileExists(t, filepath.Join(destDir, "ok.txt"))
}

func TestCopyItemsInvalidItemName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	destDir := filepath.Join(dir, "B")
	require.NoError(t, os.MkdirAll(destDir, 0o755))

	o := New(nil)
	s := o.CopyItems(context.Background(), []string{".."}, destDir, false, nil)

	assert.Equal(t, Failure, s.Result)
	require.Len(t, s.Errors, 1)
	assert.ErrorIs(t, s.Errors[0].Err, fileops.ErrInvalidName)
}

func TestCopyItemsThresholdPolicy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	destDir := filepath.Join(dir, "B")
	require.NoError(t, os.MkdirAll(destDir, 0o755))

	small := filepath.Join(dir, "A", "small.txt")
	writeTestFile(t, small, []byte("light"))

	var snaps int
	count := func(engine.Progress) { snaps++ }

	o := New(nil)
	s := o.CopyItems(context.Background(), []string{small}, destDir, false, count)
	require.Equal(t, Success, s.Result)
	// A light batch goes through the direct path, which reports nothing.
	assert.Zero(t, snaps)

	big := filepath.Join(dir, "A", "big.bin")
	writeTestFile(t, big, make([]byte, engine.AsyncThreshold))

	s = o.CopyItems(context.Background(), []string{big}, destDir, false, count)
	require.Equal(t, Success, s.Result)
	assert.Positive(t, snaps)
}

func TestCopyItemsCancelledMidBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	srcDir := filepath.Join(dir, "A")
	destDir := filepath.Join(dir, "B")
	require.NoError(t, os.MkdirAll(destDir, 0o755))

	content := make([]byte, 1<<20)
	for i := range content {
		content[i] = byte(i % 127)
	}
	items := make([]string, 3)
	for i, name := range []string{"one.bin", "two.bin", "three.bin"} {
		items[i] = filepath.Join(srcDir, name)
		writeTestFile(t, items[i], content)
	}

	// 1 MiB at 256 KiB chunks is four snapshots per file; cancelling on the
	// sixth lands mid-copy of the second item.
	var o *Orchestrator
	snaps := 0
	o = New(&Options{ChunkSize: 256 * 1024})
	s := o.CopyItems(context.Background(), items, destDir, false, func(engine.Progress) {
		snaps++
		if snaps == 6 {
			o.Cancel()
		}
	})

	assert.Equal(t, 6, snaps, "no progress may arrive after the cancel")
	assert.True(t, s.Cancelled)
	assert.Equal(t, Partial, s.Result)
	assert.Equal(t, 1, s.SuccessCount)
	assert.Equal(t, 1, s.ErrorCount)
	require.Len(t, s.Errors, 1)
	assert.Equal(t, items[1], s.Errors[0].Item)
	assert.ErrorIs(t, s.Errors[0].Err, fileops.ErrCancelled)

	// The completed first item stands; the cancelled second and the never
	// attempted third do not exist, not even as temp files.
	assert.FileExists(t, filepath.Join(destDir, "one.bin"))
	entries, err := os.ReadDir(destDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMoveItems(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "A", "a.txt")
	b := filepath.Join(dir, "A", "b.txt")
	writeTestFile(t, a, []byte("alpha"))
	writeTestFile(t, b, []byte("bravo"))
	destDir := filepath.Join(dir, "B")
	require.NoError(t, os.MkdirAll(destDir, 0o755))

	o := New(nil)
	s := o.MoveItems(context.Background(), []string{a, b}, destDir, false, nil)

	assert.Equal(t, Success, s.Result)
	assert.Equal(t, 2, s.SuccessCount)
	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)
	assert.FileExists(t, filepath.Join(destDir, "a.txt"))
	assert.FileExists(t, filepath.Join(destDir, "b.txt"))
}

func TestMoveItemsConflictKeepsSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "A", "a.txt")
	writeTestFile(t, source, []byte("incoming"))
	destDir := filepath.Join(dir, "B")
	writeTestFile(t, filepath.Join(destDir, "a.txt"), []byte("original"))

	o := New(nil)
	s := o.MoveItems(context.Background(), []string{source}, destDir, false, nil)

	assert.Equal(t, Failure, s.Result)
	assert.FileExists(t, source)
	got, err := os.ReadFile(filepath.Join(destDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
}

func TestDeleteItems(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "loose.txt")
	writeTestFile(t, file, []byte("x"))
	tree := filepath.Join(dir, "tree")
	writeTestFile(t, filepath.Join(tree, "sub", "deep.txt"), []byte("y"))

	o := New(nil)
	s := o.DeleteItems(context.Background(), []string{file, tree}, true, nil)

	assert.Equal(t, Success, s.Result)
	assert.Equal(t, 2, s.SuccessCount)
	assert.NoFileExists(t, file)
	assert.NoDirExists(t, tree)
}

func TestDeleteItemsMissingItem(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "real.txt")
	writeTestFile(t, file, []byte("x"))

	o := New(nil)
	s := o.DeleteItems(context.Background(), []string{file, filepath.Join(dir, "ghost.txt")}, false, nil)

	assert.Equal(t, Partial, s.Result)
	assert.Equal(t, 1, s.SuccessCount)
	assert.Equal(t, 1, s.ErrorCount)
	assert.ErrorIs(t, s.Errors[0].Err, fileops.ErrPathNotFound)
}

func TestDeleteItemsNonRecursiveDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tree := filepath.Join(dir, "tree")
	writeTestFile(t, filepath.Join(tree, "kept.txt"), []byte("x"))

	o := New(nil)
	s := o.DeleteItems(context.Background(), []string{tree}, false, nil)

	assert.Equal(t, Failure, s.Result)
	assert.FileExists(t, filepath.Join(tree, "kept.txt"))
}

func TestNewDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	o := New(nil)

	created, err := o.NewDirectory(dir, "fresh", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fresh"), created)
	assert.DirExists(t, created)

	_, err = o.NewDirectory(dir, "fresh", false)
	require.ErrorIs(t, err, fileops.ErrAlreadyExists)

	_, err = o.NewDirectory(dir, "fresh", true)
	require.NoError(t, err)

	_, err = o.NewDirectory(dir, "bad/name", false)
	require.ErrorIs(t, err, fileops.ErrInvalidName)
}

func TestDirectorySize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.bin"), make([]byte, 300))
	writeTestFile(t, filepath.Join(dir, "sub", "b.bin"), make([]byte, 700))

	o := New(nil)
	total, err := o.DirectorySize(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, total)
}

func TestArchiveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	writeTestFile(t, filepath.Join(srcDir, "a.txt"), []byte("alpha"))
	writeTestFile(t, filepath.Join(srcDir, "docs", "b.txt"), []byte("bravo"))

	o := New(nil)
	dest := filepath.Join(dir, "bundle.zip")
	require.NoError(t, o.CreateArchive(context.Background(), []string{srcDir}, dest, 6, dir, false))

	entries, err := o.ListArchive(dest)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	info, err := o.ArchiveInfo(dest)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Files)

	outDir := filepath.Join(dir, "out")
	require.NoError(t, o.ExtractArchive(context.Background(), dest, outDir, nil, false, true))

	got, err := os.ReadFile(filepath.Join(outDir, "src", "docs", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bravo", string(got))
}

func TestExtractArchiveRejectsHostile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	hostile := filepath.Join(dir, "hostile.zip")
	f, err := os.Create(hostile)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("../evil.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	o := New(nil)
	dest := filepath.Join(dir, "unpack")
	err = o.ExtractArchive(context.Background(), hostile, dest, nil, false, true)
	require.ErrorIs(t, err, fileops.ErrPathTraversal)
	assert.NoDirExists(t, dest)
	assert.NoFileExists(t, filepath.Join(dir, "evil.txt"))
}

func TestCancelWithoutBatch(t *testing.T) {
	t.Parallel()

	o := New(nil)
	// Nothing in flight; cancelling must be a harmless no-op.
	o.Cancel()
	o.Cancel()

	dir := t.TempDir()
	source := filepath.Join(dir, "a.txt")
	writeTestFile(t, source, []byte("still works"))
	destDir := filepath.Join(dir, "B")
	require.NoError(t, os.MkdirAll(destDir, 0o755))

	s := o.CopyItems(context.Background(), []string{source}, destDir, false, nil)
	assert.Equal(t, Success, s.Result)
}

func TestCopyItemsRejectsSeparatorRoot(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("root path spelling differs")
	}

	dir := t.TempDir()
	destDir := filepath.Join(dir, "B")
	require.NoError(t, os.MkdirAll(destDir, 0o755))

	o := New(nil)
	s := o.CopyItems(context.Background(), []string{"/"}, destDir, false, nil)
	require.Len(t, s.Errors, 1)
	assert.ErrorIs(t, s.Errors[0].Err, fileops.ErrInvalidName)
	assert.True(t, strings.Contains(s.Errors[0].Err.Error(), "destination name"))
}
