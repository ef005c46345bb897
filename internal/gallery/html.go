package gallery

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mulchkit/mulch/internal/browser"
	"github.com/mulchkit/mulch/internal/imaging"
	"github.com/mulchkit/mulch/internal/instrumentation"
)

// Default page titles.
const (
	ListingTitle = "JPEG File List"
	GalleryTitle = "Image List"
)

var listingTemplate = template.Must(template.New("listing").Funcs(funcs).Parse(`<html>
<head>
<title>{{.Title}}</title>
</head>
<body>
{{range .Paths}}<p><a href="{{href .}}">{{.}}</a></p>
{{end}}</body>
</html>
`))

var galleryTemplate = template.Must(template.New("gallery").Funcs(funcs).Parse(`<html>
<head>
<title>{{.Title}}</title>
</head>
<body>
{{range .Entries}}<a href="{{href .Path}}"><img src="{{href .Path}}" alt="{{.Path}}"></a>
{{if .HasDimensions}}<p>{{.Path}} ({{.Dimensions}})</p>{{else}}<p>{{.Path}} (no dimensions)</p>{{end}}
{{end}}</body>
</html>
`))

var funcs = template.FuncMap{"href": href}

// href turns a file path into a link target. Absolute paths become file
// URLs; relative ones stay relative to the page.
func href(path string) template.URL {
	slashed := filepath.ToSlash(path)
	if filepath.IsAbs(path) {
		if !strings.HasPrefix(slashed, "/") {
			slashed = "/" + slashed
		}
		return template.URL((&url.URL{Scheme: "file", Path: slashed}).String())
	}
	return template.URL((&url.URL{Path: slashed}).String())
}

// Entry is one image on a gallery page.
type Entry struct {
	Path          string
	Dimensions    imaging.Dimensions
	HasDimensions bool
}

// Prober reads the dimensions of an image file.
type Prober func(path string) (imaging.Dimensions, error)

// BuildEntries probes every path. A path that cannot be probed still gets an
// entry, shown without dimensions.
func BuildEntries(ctx context.Context, paths []string, probe Prober, metrics *instrumentation.Metrics) []Entry {
	if probe == nil {
		probe = imaging.Probe
	}
	ctx, span := instrumentation.StartSpan(ctx, "gallery.build_entries")
	defer span.End()

	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		e := Entry{Path: p}
		if d, err := probe(p); err == nil {
			e.Dimensions = d
			e.HasDimensions = true
			metrics.RecordImageProbe(ctx, instrumentation.StatusSuccess)
		} else {
			metrics.RecordImageProbe(ctx, instrumentation.StatusError)
		}
		entries = append(entries, e)
	}
	instrumentation.SetSpanSuccess(span)
	return entries
}

// WriteListing writes a page linking to every path.
func WriteListing(w io.Writer, title string, paths []string) error {
	return listingTemplate.Execute(w, struct {
		Title string
		Paths []string
	}{title, paths})
}

// WriteGallery writes a page showing every entry as a linked image with its
// path and dimensions.
func WriteGallery(w io.Writer, title string, entries []Entry) error {
	return galleryTemplate.Execute(w, struct {
		Title   string
		Entries []Entry
	}{title, entries})
}

// WriteFile renders a page into path.
func WriteFile(path string, render func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to write %s: %w", path, cerr)
		}
	}()

	if err := render(f); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return nil
}

// OpenBrowser opens a written page in the default browser.
func OpenBrowser(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return browser.Open(abs)
}
