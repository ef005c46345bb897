// Package organizer sorts the loose files of a directory, by default the
// Windows desktop, into per-type folders.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/image/webp"

	"github.com/mulchkit/mulch/internal/instrumentation"
	"github.com/mulchkit/mulch/internal/logging"
)

// DefaultImageFolder receives converted WebP images.
const DefaultImageFolder = "img_bin"

// ErrUnsupportedPlatform is returned by DesktopDir outside Windows.
var ErrUnsupportedPlatform = errors.New("desktop organizer is intended to run on Windows")

// DefaultSkip lists file names that are never moved.
var DefaultSkip = []string{"desktop_organizer.py", "requirements.txt"}

// Config configures an Organizer.
type Config struct {
	// Dir is the directory to organize
	Dir string

	// Mappings route extensions to folders (default: DefaultMappings)
	Mappings []Mapping

	// Skip lists file names left in place, compared case-insensitively
	Skip []string

	// ImageFolder receives .webp files and their PNG conversions
	ImageFolder string

	// DryRun plans moves without touching the filesystem
	DryRun bool
}

// DefaultConfig returns a config for MULCH_ORGANIZE_DIR with the built-in
// mappings. Dir is empty when the variable is unset; callers fall back to
// DesktopDir.
func DefaultConfig() Config {
	return Config{
		Dir:         os.Getenv("MULCH_ORGANIZE_DIR"),
		Mappings:    DefaultMappings(),
		Skip:        append([]string(nil), DefaultSkip...),
		ImageFolder: DefaultImageFolder,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return errors.New("directory is required")
	}
	if err := validateMappings(c.Mappings); err != nil {
		return err
	}
	return validateFolder(c.ImageFolder)
}

// DesktopDir returns ~/Desktop on Windows and ErrUnsupportedPlatform
// elsewhere.
func DesktopDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return desktopDir(runtime.GOOS, home)
}

func desktopDir(goos, home string) (string, error) {
	if goos != "windows" {
		return "", ErrUnsupportedPlatform
	}
	return filepath.Join(home, "Desktop"), nil
}

// Move is one planned or completed file move.
type Move struct {
	Source string
	Dest   string
	Folder string
	// Converted marks a PNG produced from a WebP source.
	Converted bool
}

// FileError records a file that could not be organized.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Report summarizes a run.
type Report struct {
	CreatedFolders  []string
	ExistingFolders []string
	Moves           []Move
	Errors          []*FileError
}

// Organizer moves files according to its Config.
type Organizer struct {
	config  Config
	logger  logging.Logger
	metrics *instrumentation.Metrics
}

// New creates an Organizer.
func New(config Config, logger logging.Logger, metrics *instrumentation.Metrics) (*Organizer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid organizer config: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Organizer{config: config, logger: logger, metrics: metrics}, nil
}

// Run creates the destination folders and moves every matching file into
// place. Failures on single files are collected in the report.
func (o *Organizer) Run(ctx context.Context) (*Report, error) {
	ctx, span := instrumentation.StartSpan(ctx, "organizer.run", instrumentation.ResourceID(o.config.Dir))
	defer span.End()

	report, err := o.run(ctx)
	if err != nil {
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	return report, err
}

func (o *Organizer) run(ctx context.Context) (*Report, error) {
	info, err := os.Stat(o.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", o.config.Dir)
	}

	report := &Report{}
	if err := o.createFolders(report); err != nil {
		return nil, err
	}

	// ReadDir sorts by name.
	entries, err := os.ReadDir(o.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		name := entry.Name()
		path := filepath.Join(o.config.Dir, name)
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if o.skipped(name) {
			o.logger.Debug("skipping file", "file", name)
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		if ext == ".webp" {
			o.handleWebP(ctx, name, report)
			continue
		}

		folder, ok := folderFor(o.config.Mappings, ext)
		if !ok {
			continue
		}
		move := Move{Source: path, Dest: filepath.Join(o.config.Dir, folder, name), Folder: folder}
		if err := o.move(move); err != nil {
			o.fail(ctx, report, name, folder, err)
			continue
		}
		o.succeed(ctx, report, move)
	}

	return report, nil
}

func (o *Organizer) createFolders(report *Report) error {
	seen := make(map[string]bool)
	folders := make([]string, 0, len(o.config.Mappings)+1)
	for _, m := range o.config.Mappings {
		if !seen[m.Folder] {
			seen[m.Folder] = true
			folders = append(folders, m.Folder)
		}
	}
	if !seen[o.config.ImageFolder] {
		folders = append(folders, o.config.ImageFolder)
	}

	for _, folder := range folders {
		path := filepath.Join(o.config.Dir, folder)
		if fi, err := os.Stat(path); err == nil {
			if !fi.IsDir() {
				return fmt.Errorf("destination %s exists and is not a directory", path)
			}
			report.ExistingFolders = append(report.ExistingFolders, path)
			continue
		}

		if !o.config.DryRun {
			if err := os.MkdirAll(path, 0755); err != nil {
				return fmt.Errorf("failed to create folder %s: %w", path, err)
			}
		}
		o.logger.Info("created folder", "folder", path)
		report.CreatedFolders = append(report.CreatedFolders, path)
	}
	return nil
}

// handleWebP converts a WebP file to PNG next to it, then moves both into
// the image folder.
func (o *Organizer) handleWebP(ctx context.Context, name string, report *Report) {
	folder := o.config.ImageFolder
	src := filepath.Join(o.config.Dir, name)
	pngName := strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
	pngPath := filepath.Join(o.config.Dir, pngName)

	moves := []Move{
		{Source: src, Dest: filepath.Join(o.config.Dir, folder, name), Folder: folder},
		{Source: pngPath, Dest: filepath.Join(o.config.Dir, folder, pngName), Folder: folder, Converted: true},
	}

	if !o.config.DryRun {
		if err := convertWebP(src, pngPath); err != nil {
			o.fail(ctx, report, name, folder, err)
			return
		}
	}
	for _, m := range moves {
		if err := o.move(m); err != nil {
			o.fail(ctx, report, filepath.Base(m.Source), folder, err)
			return
		}
		o.succeed(ctx, report, m)
	}
}

func (o *Organizer) move(m Move) error {
	if o.config.DryRun {
		return nil
	}
	if err := os.Rename(m.Source, m.Dest); err != nil {
		return fmt.Errorf("failed to move: %w", err)
	}
	return nil
}

func (o *Organizer) succeed(ctx context.Context, report *Report, m Move) {
	o.logger.Info("moved file", "file", filepath.Base(m.Source), "folder", m.Folder)
	o.metrics.RecordFileOrganized(ctx, m.Folder, instrumentation.StatusSuccess)
	report.Moves = append(report.Moves, m)
}

func (o *Organizer) fail(ctx context.Context, report *Report, name, folder string, err error) {
	o.logger.Error("failed to organize file", "file", name, "error", err)
	o.metrics.RecordFileOrganized(ctx, folder, instrumentation.StatusError)
	report.Errors = append(report.Errors, &FileError{File: name, Err: err})
}

func (o *Organizer) skipped(name string) bool {
	for _, s := range o.config.Skip {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

func convertWebP(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	img, err := webp.Decode(in)
	if err != nil {
		return fmt.Errorf("failed to decode webp: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	if err := png.Encode(out, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
