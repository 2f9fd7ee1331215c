package securefs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T) *SecureFS {
	t.Helper()
	sfs, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sfs.Close() })
	return sfs
}

func TestValidateRelativePath(t *testing.T) {
	t.Parallel()

	sfs := newTestFS(t)

	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"assets/place-photos/p1.jpg", filepath.FromSlash("assets/place-photos/p1.jpg"), nil},
		{"./a/../b.json", "b.json", nil},
		{"", "", ErrInvalidPath},
		{"/etc/passwd", "", ErrInvalidPath},
		{"../outside", "", ErrPathTraversal},
		{"a/../../outside", "", ErrPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := sfs.ValidateRelativePath(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	t.Parallel()

	sfs := newTestFS(t)
	require.NoError(t, sfs.MkdirAll("data"))

	write := func(s string) func(io.Writer) error {
		return func(w io.Writer) error {
			_, err := io.WriteString(w, s)
			return err
		}
	}

	require.NoError(t, sfs.WriteFileAtomic("data/cache.json", write("first")))
	require.NoError(t, sfs.WriteFileAtomic("data/cache.json", write("second")))

	data, err := sfs.ReadFile("data/cache.json")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Join(sfs.BaseDir(), "data"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestWriteFileAtomicFailureKeepsOriginal(t *testing.T) {
	t.Parallel()

	sfs := newTestFS(t)
	target := filepath.Join(sfs.BaseDir(), "cache.json")
	require.NoError(t, os.WriteFile(target, []byte("original"), FilePerm))

	err := sfs.WriteFileAtomic("cache.json", func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return fmt.Errorf("encoder exploded")
	})
	require.Error(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	entries, err := os.ReadDir(sfs.BaseDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file removed")
}

func TestExists(t *testing.T) {
	t.Parallel()

	sfs := newTestFS(t)
	require.NoError(t, os.WriteFile(filepath.Join(sfs.BaseDir(), "p1.jpg"), []byte("x"), FilePerm))

	ok, err := sfs.Exists("p1.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sfs.Exists("p2.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = sfs.Exists("../p1.jpg")
	require.ErrorIs(t, err, ErrPathTraversal)
	assert.False(t, sfs.ExistsNoErr("../p1.jpg"))
}

func TestReadFileSizeLimit(t *testing.T) {
	t.Parallel()

	sfs := newTestFS(t)
	require.NoError(t, os.WriteFile(filepath.Join(sfs.BaseDir(), "big.json"), make([]byte, 64), FilePerm))

	sfs.SetMaxReadFileSize(32)
	_, err := sfs.ReadFile("big.json")
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestSymlinkEscapeRejected(t *testing.T) {
	t.Parallel()

	sfs := newTestFS(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("s"), FilePerm))
	if err := os.Symlink(outside, filepath.Join(sfs.BaseDir(), "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := sfs.ReadFile("link/secret")
	require.Error(t, err)
}
