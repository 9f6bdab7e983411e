package localfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteNew(t *testing.T) {
	t.Run("creates the file and missing parents", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "output", "nested", "pic.jpg")
		require.NoError(t, WriteNew(path, []byte("image bytes")))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "image bytes", string(got))
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pic.jpg")
		require.NoError(t, WriteNew(path, []byte("original")))

		err := WriteNew(path, []byte("replacement"))
		require.ErrorIs(t, err, ErrAlreadyExists)

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "original", string(got), "existing content must be untouched")
	})
}

func TestResolve(t *testing.T) {
	t.Run("existing file resolves to an absolute path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pic.jpg")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

		abs, err := Resolve(path)
		require.NoError(t, err)
		require.True(t, filepath.IsAbs(abs))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Resolve(filepath.Join(t.TempDir(), "missing.jpg"))
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestOpen(t *testing.T) {
	t.Run("hands an existing file to the handler", func(t *testing.T) {
		var opened string
		restore := openFile
		openFile = func(path string) error {
			opened = path
			return nil
		}
		defer func() { openFile = restore }()

		path := filepath.Join(t.TempDir(), "pic.jpg")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

		require.NoError(t, Open(path))
		require.True(t, filepath.IsAbs(opened))
		require.Equal(t, "pic.jpg", filepath.Base(opened))
	})

	t.Run("missing file never reaches the handler", func(t *testing.T) {
		restore := openFile
		called := false
		openFile = func(string) error {
			called = true
			return nil
		}
		defer func() { openFile = restore }()

		err := Open(filepath.Join(t.TempDir(), "missing.jpg"))
		require.ErrorIs(t, err, ErrNotFound)
		require.False(t, called)
	})
}

func TestOpenURL(t *testing.T) {
	var opened string
	restore := openURL
	openURL = func(rawurl string) error {
		opened = rawurl
		return nil
	}
	defer func() { openURL = restore }()

	require.NoError(t, OpenURL("file:///tmp/page.html"))
	require.Equal(t, "file:///tmp/page.html", opened)
}
