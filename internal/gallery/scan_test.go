package gallery

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, nil, 0644))
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"b.jpeg",
		"a/c.jpeg",
		"a/deep/d.jpeg",
		"upper.JPEG",
		"photo.jpg",
		"notes.txt",
	)
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir.jpeg"), 0755))

	got, err := Scan(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "c.jpeg"),
		filepath.Join(root, "a", "deep", "d.jpeg"),
		filepath.Join(root, "b.jpeg"),
	}, got)

	got, err = Scan(context.Background(), root, []string{".jpg", ".JPEG"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "photo.jpg"),
		filepath.Join(root, "upper.JPEG"),
	}, got)
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.jpeg")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, root, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadFileList(t *testing.T) {
	got, err := ReadFileList(strings.NewReader("  a.jpeg \r\n\n b/c.png\n\t\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpeg", "b/c.png"}, got)

	got, err = ReadFileList(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}
