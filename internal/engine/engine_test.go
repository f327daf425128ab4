package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dualfm/pkg/fileops"
)

const osWindows = "windows"

// patterned returns n bytes of deterministic non-repeating-ish content so
// truncated or reordered copies never compare equal.
func patterned(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func writeTestFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	e := New(nil)
	assert.Equal(t, DefaultChunkSize, e.chunkSize)
	assert.False(t, e.Cancelled())

	e = New(&Options{ChunkSize: 4096})
	assert.Equal(t, 4096, e.chunkSize)

	e = New(&Options{ChunkSize: -1})
	assert.Equal(t, DefaultChunkSize, e.chunkSize)
}

func TestCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	e := New(nil)
	for range 3 {
		e.Cancel()
	}
	assert.True(t, e.Cancelled())

	// Cancelling again after the flag is already set must stay a no-op.
	e.Cancel()
	assert.True(t, e.Cancelled())
}

func TestCancelRearmedPerOperation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "in.txt")
	writeTestFile(t, source, []byte("still here"))

	e := New(nil)
	e.Cancel()
	require.True(t, e.Cancelled())

	// A new operation starts with a clean flag, so the earlier Cancel does
	// not leak into it.
	dest := filepath.Join(dir, "out.txt")
	require.NoError(t, e.CopyFile(context.Background(), source, dest, false))
	assert.False(t, e.Cancelled())

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("still here"), got)
}

func TestShouldUseAsync(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	small := filepath.Join(dir, "small.txt")
	writeTestFile(t, small, []byte("tiny"))

	big := filepath.Join(dir, "big.bin")
	writeTestFile(t, big, bytes.Repeat([]byte{0x42}, int(AsyncThreshold)))

	lightDir := filepath.Join(dir, "light")
	writeTestFile(t, filepath.Join(lightDir, "a.txt"), []byte("a"))
	writeTestFile(t, filepath.Join(lightDir, "b.txt"), []byte("b"))

	heavyDir := filepath.Join(dir, "heavy")
	writeTestFile(t, filepath.Join(heavyDir, "a.bin"), bytes.Repeat([]byte{0x01}, 600*1024))
	writeTestFile(t, filepath.Join(heavyDir, "sub", "b.bin"), bytes.Repeat([]byte{0x02}, 600*1024))

	tests := []struct {
		name  string
		items []string
		want  bool
	}{
		{"empty list", nil, false},
		{"small file", []string{small}, false},
		{"file at threshold", []string{big}, true},
		{"light directory", []string{lightDir}, false},
		{"heavy directory aggregate", []string{heavyDir}, true},
		{"missing item", []string{filepath.Join(dir, "ghost")}, false},
		{"mixed light and heavy", []string{small, lightDir, heavyDir}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ShouldUseAsync(tt.items))
		})
	}
}

func TestCheckpointHonorsContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "in.txt")
	writeTestFile(t, source, []byte("data"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(nil)
	err := e.CopyFile(ctx, source, filepath.Join(dir, "out.txt"), false)
	require.ErrorIs(t, err, fileops.ErrCancelled)
	assert.NoFileExists(t, filepath.Join(dir, "out.txt"))
}
