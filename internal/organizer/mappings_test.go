package organizer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMappings(t *testing.T) {
	m := DefaultMappings()
	require.Len(t, m, 6)

	folder, ok := folderFor(m, ".png")
	assert.True(t, ok)
	assert.Equal(t, "img_bin", folder)

	folder, ok = folderFor(m, ".psd")
	assert.True(t, ok)
	assert.Equal(t, "adobe_bin", folder)

	_, ok = folderFor(m, ".webp")
	assert.False(t, ok)
}

func TestLoadMappings(t *testing.T) {
	in := `
- folder: photos
  extensions: [JPG, .jpeg, " .Png "]
- folder: docs
  extensions: [pdf, ""]
- folder: more_photos
  extensions: [.jpg]
`
	m, err := LoadMappings(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []Mapping{
		{Folder: "photos", Extensions: []string{".jpg", ".jpeg", ".png"}},
		{Folder: "docs", Extensions: []string{".pdf"}},
		{Folder: "more_photos", Extensions: []string{".jpg"}},
	}, m)

	folder, _ := folderFor(m, ".jpg")
	assert.Equal(t, "photos", folder, "first mapping wins")
}

func TestLoadMappings_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty document", ""},
		{"not a list", "folder: x\n"},
		{"unknown field", "- folder: x\n  exts: [.a]\n"},
		{"missing folder", "- extensions: [.a]\n"},
		{"nested folder", "- folder: a/b\n  extensions: [.a]\n"},
		{"parent folder", "- folder: ..\n  extensions: [.a]\n"},
		{"empty list", "[]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMappings(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestLoadMappingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- folder: bin\n  extensions: [.bin]\n"), 0644))

	m, err := LoadMappingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Mapping{{Folder: "bin", Extensions: []string{".bin"}}}, m)

	_, err = LoadMappingsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
