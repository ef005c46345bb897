package gmail

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/mulchkit/mulch/internal/instrumentation"
	"github.com/mulchkit/mulch/internal/logging"
	"github.com/mulchkit/mulch/internal/mimepart"
)

// Mode selects what a download writes.
type Mode string

const (
	// ModeBundle writes flattened EmailRecords to a timestamped file.
	ModeBundle Mode = "bundle"

	// ModeRaw writes the full API messages to OutputFile.
	ModeRaw Mode = "raw"
)

// Default file names.
const (
	DefaultLabelsFile = "labels.csv"
	DefaultRawFile    = "emails.json"

	bundleTimeLayout = "2006_01_02_1504"
)

// ErrNoLabels is returned when the mailbox reports no labels.
var ErrNoLabels = errors.New("no labels found in mailbox")

// DownloaderConfig configures a Downloader.
type DownloaderConfig struct {
	// Mode is "bundle" or "raw" (default: bundle)
	Mode Mode

	// LabelsFile lists label names for bundle mode. When it does not exist
	// the user is prompted instead.
	LabelsFile string

	// OutputDir receives the output file (default: current directory)
	OutputDir string

	// OutputFile is the raw mode file name (default: emails.json)
	OutputFile string

	// Now stamps bundle file names (default: time.Now)
	Now func() time.Time
}

// DefaultDownloaderConfig returns a config from MULCH_DOWNLOAD_MODE,
// MULCH_LABELS_FILE and MULCH_OUTPUT_DIR.
func DefaultDownloaderConfig() DownloaderConfig {
	return DownloaderConfig{
		Mode:       Mode(getEnvOrDefault("MULCH_DOWNLOAD_MODE", string(ModeBundle))),
		LabelsFile: getEnvOrDefault("MULCH_LABELS_FILE", DefaultLabelsFile),
		OutputDir:  getEnvOrDefault("MULCH_OUTPUT_DIR", "."),
		OutputFile: DefaultRawFile,
		Now:        time.Now,
	}
}

// Validate checks the configuration.
func (c *DownloaderConfig) Validate() error {
	switch c.Mode {
	case ModeBundle, ModeRaw:
	default:
		return fmt.Errorf("invalid download mode: %s (must be bundle or raw)", c.Mode)
	}
	if c.Mode == ModeRaw && c.OutputFile == "" {
		return errors.New("output file is required in raw mode")
	}
	return nil
}

// DownloadResult summarizes a download.
type DownloadResult struct {
	// Found is the number of messages matching the labels
	Found int
	// Written is the number of messages in the output file
	Written int
	// Skipped is the number of messages that could not be fetched or converted
	Skipped int
	// Path is the output file, empty when nothing was written
	Path string
}

// Downloader fetches every message carrying a set of labels and writes them
// to a JSON file.
type Downloader struct {
	client  *Client
	config  DownloaderConfig
	in      *bufio.Reader
	out     io.Writer
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewDownloader creates a Downloader. Label prompts read from in and all user
// facing progress goes to out.
func NewDownloader(client *Client, config DownloaderConfig, in io.Reader, out io.Writer, logger *slog.Logger, metrics *instrumentation.Metrics) *Downloader {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.OutputDir == "" {
		config.OutputDir = "."
	}
	if logger == nil {
		logger = logging.Discard().Logger()
	}
	return &Downloader{
		client:  client,
		config:  config,
		in:      bufio.NewReader(in),
		out:     out,
		logger:  logging.WithOperation(logger, "download"),
		metrics: metrics,
	}
}

// Run performs the download.
func (d *Downloader) Run(ctx context.Context) (*DownloadResult, error) {
	if err := d.config.Validate(); err != nil {
		return nil, err
	}

	labels, err := d.client.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	index := NewLabelIndex(labels)
	if index.Len() == 0 {
		return nil, ErrNoLabels
	}

	query, err := d.selectQuery(index)
	if err != nil {
		return nil, err
	}
	d.logger.Info("listing messages", slog.String("query", query))

	fmt.Fprintln(d.out, "Getting messages...")
	messages, err := d.client.ListMessages(ctx, query)
	if err != nil {
		return nil, err
	}

	result := &DownloadResult{Found: len(messages)}
	if len(messages) == 0 {
		fmt.Fprintln(d.out, "No messages found with the specified labels.")
		return result, nil
	}
	fmt.Fprintf(d.out, "Found %d message(s). Fetching content...\n", len(messages))

	if d.config.Mode == ModeRaw {
		return d.runRaw(ctx, messages, result)
	}
	return d.runBundle(ctx, messages, index, result)
}

func (d *Downloader) runBundle(ctx context.Context, messages []*gmail.Message, index *LabelIndex, result *DownloadResult) (*DownloadResult, error) {
	records := make([]*EmailRecord, 0, len(messages))
	for i, m := range messages {
		fmt.Fprintf(d.out, "Downloading email %d of %d...\n", i+1, len(messages))

		msg, err := d.fetch(ctx, m.Id)
		if err != nil {
			result.Skipped++
			continue
		}

		record, err := BuildRecord(msg, index)
		if err != nil {
			var decodeErr *mimepart.DecodeError
			if errors.As(err, &decodeErr) {
				d.metrics.RecordExtractionError(ctx)
			}
			d.logger.Warn("skipping message", logging.MessageID(m.Id),
				logging.Status(logging.StatusSkipped), logging.Err(err))
			d.metrics.RecordMessageExport(ctx, instrumentation.StatusError)
			result.Skipped++
			continue
		}

		d.logger.Debug("exported message", logging.MessageID(m.Id),
			logging.UserHash(record.Sender), logging.Status(logging.StatusSuccess))
		d.metrics.RecordMessageExport(ctx, instrumentation.StatusSuccess)
		records = append(records, record)
	}

	if len(records) == 0 {
		fmt.Fprintln(d.out, "No emails could be downloaded.")
		return result, nil
	}

	name := fmt.Sprintf("email_%s_%d.json", d.config.Now().Format(bundleTimeLayout), len(records))
	path, err := d.write(name, records)
	if err != nil {
		return nil, err
	}
	result.Written = len(records)
	result.Path = path

	fmt.Fprintf(d.out, "Success! Downloaded %d email(s) and saved to %s.\n", len(records), path)
	return result, nil
}

func (d *Downloader) runRaw(ctx context.Context, messages []*gmail.Message, result *DownloadResult) (*DownloadResult, error) {
	full := make([]*gmail.Message, 0, len(messages))
	for _, m := range messages {
		msg, err := d.fetch(ctx, m.Id)
		if err != nil {
			result.Skipped++
			continue
		}
		d.metrics.RecordMessageExport(ctx, instrumentation.StatusSuccess)
		full = append(full, msg)
	}

	path, err := d.write(d.config.OutputFile, full)
	if err != nil {
		return nil, err
	}
	result.Written = len(full)
	result.Path = path

	fmt.Fprintf(d.out, "Emails have been downloaded and saved to %s\n", path)
	return result, nil
}

// fetch gets one message, logging and counting a failure.
func (d *Downloader) fetch(ctx context.Context, id string) (*gmail.Message, error) {
	start := time.Now()
	msg, err := d.client.GetMessage(ctx, id)
	elapsed := slog.Duration(logging.KeyDuration, time.Since(start))
	if err != nil {
		d.logger.Warn("failed to fetch message", logging.MessageID(id),
			logging.Status(logging.StatusError), elapsed, logging.Err(err))
		d.metrics.RecordMessageExport(ctx, instrumentation.StatusError)
		return nil, err
	}
	d.logger.Debug("fetched message", logging.MessageID(id), logging.Status(logging.StatusSuccess), elapsed)
	return msg, nil
}

// selectQuery picks the labels to download and builds the search query.
func (d *Downloader) selectQuery(index *LabelIndex) (string, error) {
	if d.config.Mode == ModeRaw {
		names, err := d.promptLabels(index, index.Names())
		if err != nil {
			return "", err
		}
		ids, err := index.Resolve(names)
		if err != nil {
			return "", err
		}
		return LabelIDQuery(ids), nil
	}

	names, err := d.labelsFromFile(index)
	if err != nil {
		return "", err
	}
	if names == nil {
		fmt.Fprintf(d.out, "%s not found. Please select labels from the list below.\n", d.config.LabelsFile)
		names, err = d.promptLabels(index, index.SortedNames())
		if err != nil {
			return "", err
		}
	}
	return LabelNameQuery(names), nil
}

// labelsFromFile returns the validated names in LabelsFile, or nil when the
// file does not exist.
func (d *Downloader) labelsFromFile(index *LabelIndex) ([]string, error) {
	if d.config.LabelsFile == "" {
		return nil, nil
	}
	f, err := os.Open(d.config.LabelsFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(d.out, "Found %s, using labels from file.\n", d.config.LabelsFile)
	names, err := ReadLabelsCSV(f)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("labels file %s lists no labels", d.config.LabelsFile)
	}
	if _, err := index.Resolve(names); err != nil {
		return nil, fmt.Errorf("labels file %s: %w", d.config.LabelsFile, err)
	}
	d.logger.Debug("using labels from file", logging.File(d.config.LabelsFile), logging.Count(len(names)))
	d.logLabels(names)
	return names, nil
}

func (d *Downloader) logLabels(names []string) {
	for _, name := range names {
		d.logger.Debug("selected label", logging.Label(name))
	}
}

// promptLabels lists the available labels and asks until every entered name
// is valid.
func (d *Downloader) promptLabels(index *LabelIndex, available []string) ([]string, error) {
	fmt.Fprintln(d.out, "Available labels:")
	for _, name := range available {
		fmt.Fprintf(d.out, "- %s\n", name)
	}

	for {
		fmt.Fprint(d.out, "Enter the names of the labels to filter by, separated by commas: ")
		line, err := d.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && strings.TrimSpace(line) != "") {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("no labels entered: %w", io.ErrUnexpectedEOF)
			}
			return nil, fmt.Errorf("failed to read labels: %w", err)
		}

		names := ParseLabelInput(line)
		if _, err := index.Resolve(names); err != nil {
			fmt.Fprintln(d.out, "One or more label names are invalid. Please try again.")
			d.logger.Debug("invalid label input", logging.Err(err))
			continue
		}
		d.logLabels(names)
		return names, nil
	}
}

// write encodes v as indented JSON into OutputDir/name.
func (d *Downloader) write(name string, v any) (string, error) {
	if err := os.MkdirAll(d.config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode messages: %w", err)
	}

	path := filepath.Join(d.config.OutputDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	d.logger.Info("wrote messages", logging.File(path))
	return path, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
