// Package imaging reads image dimensions from file headers.
package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"
)

// ErrUnknownFormat is returned for files that are not a supported image.
var ErrUnknownFormat = fmt.Errorf("unknown image format: %w", image.ErrFormat)

// Dimensions is the displayed size of an image in pixels.
type Dimensions struct {
	Width  int
	Height int
}

// String formats d as WxH.
func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Probe reads the dimensions of the image at path. Only the header is
// decoded.
func Probe(path string) (Dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}, err
	}
	defer f.Close()

	return ProbeReader(f)
}

// ProbeReader reads the dimensions of an image. JPEGs whose EXIF orientation
// rotates them by 90 degrees report their displayed size.
func ProbeReader(r io.ReadSeeker) (Dimensions, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Dimensions{}, ErrUnknownFormat
		}
		return Dimensions{}, fmt.Errorf("failed to read image header: %w", err)
	}

	d := Dimensions{Width: cfg.Width, Height: cfg.Height}
	if format == "jpeg" && rotated(r) {
		d.Width, d.Height = d.Height, d.Width
	}
	return d, nil
}

// rotated reports whether the EXIF orientation is one of the transposed
// values 5 to 8. Missing or broken EXIF data means no rotation.
func rotated(r io.ReadSeeker) bool {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return false
	}
	x, err := exif.Decode(r)
	if err != nil {
		return false
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return false
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return false
	}
	return orientation >= 5 && orientation <= 8
}
