package organizer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mapping sends files with one of Extensions into Folder.
type Mapping struct {
	Folder     string   `yaml:"folder"`
	Extensions []string `yaml:"extensions"`
}

// DefaultMappings returns the built-in folder table. Order matters: the first
// mapping that lists an extension wins.
func DefaultMappings() []Mapping {
	return []Mapping{
		{Folder: "img_bin", Extensions: []string{".jpg", ".png", ".gif"}},
		{Folder: "pdf_bin", Extensions: []string{".pdf"}},
		{Folder: "html_bin", Extensions: []string{".html"}},
		{Folder: "adobe_bin", Extensions: []string{".ai", ".psd"}},
		{Folder: "vect_bin", Extensions: []string{".svg"}},
		{Folder: "txt_bin", Extensions: []string{".txt"}},
	}
}

// LoadMappings decodes a YAML list of mappings:
//
//	- folder: img_bin
//	  extensions: [jpg, .PNG]
//
// Extensions are lower-cased and given a leading dot.
func LoadMappings(r io.Reader) ([]Mapping, error) {
	var mappings []Mapping
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&mappings); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("mappings file is empty")
		}
		return nil, fmt.Errorf("failed to parse mappings: %w", err)
	}

	for i := range mappings {
		exts := make([]string, 0, len(mappings[i].Extensions))
		for _, ext := range mappings[i].Extensions {
			if ext = normalizeExt(ext); ext != "" {
				exts = append(exts, ext)
			}
		}
		mappings[i].Extensions = exts
	}
	if err := validateMappings(mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

// LoadMappingsFile reads mappings from a YAML file.
func LoadMappingsFile(path string) ([]Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mappings file: %w", err)
	}
	defer f.Close()
	return LoadMappings(f)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func validateMappings(mappings []Mapping) error {
	if len(mappings) == 0 {
		return errors.New("at least one mapping is required")
	}
	for _, m := range mappings {
		if err := validateFolder(m.Folder); err != nil {
			return err
		}
	}
	return nil
}

func validateFolder(name string) error {
	if name == "" {
		return errors.New("mapping folder name is required")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid folder name %q: must be a plain directory name", name)
	}
	return nil
}

// folderFor returns the first folder that takes ext.
func folderFor(mappings []Mapping, ext string) (string, bool) {
	for _, m := range mappings {
		for _, e := range m.Extensions {
			if e == ext {
				return m.Folder, true
			}
		}
	}
	return "", false
}
