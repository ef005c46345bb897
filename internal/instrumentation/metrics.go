package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrFolder    = "folder"
)

// Metrics provides methods for recording observability metrics.
// The zero value is a valid no-op recorder.
type Metrics struct {
	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// Download metrics
	messagesExportedTotal metric.Int64Counter
	extractionErrorsTotal metric.Int64Counter

	// File metrics
	filesOrganizedTotal metric.Int64Counter
	imagesProbedTotal   metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.messagesExportedTotal, err = meter.Int64Counter(
		"messages_exported_total",
		metric.WithDescription("Total number of Gmail messages processed for export"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages_exported_total counter: %w", err)
	}

	m.extractionErrorsTotal, err = meter.Int64Counter(
		"extraction_errors_total",
		metric.WithDescription("Total number of message body decode failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction_errors_total counter: %w", err)
	}

	m.filesOrganizedTotal, err = meter.Int64Counter(
		"files_organized_total",
		metric.WithDescription("Total number of files moved by the organizer"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create files_organized_total counter: %w", err)
	}

	m.imagesProbedTotal, err = meter.Int64Counter(
		"images_probed_total",
		metric.WithDescription("Total number of image dimension probes"),
		metric.WithUnit("{image}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create images_probed_total counter: %w", err)
	}

	return m, nil
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
//
// Parameters:
//   - service: Google service name (gmail)
//   - operation: Operation type (list, get)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMessageExport records one message handled by the downloader.
func (m *Metrics) RecordMessageExport(ctx context.Context, status string) {
	if m == nil || m.messagesExportedTotal == nil {
		return
	}
	m.messagesExportedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordExtractionError records a message whose body could not be decoded.
func (m *Metrics) RecordExtractionError(ctx context.Context) {
	if m == nil || m.extractionErrorsTotal == nil {
		return
	}
	m.extractionErrorsTotal.Add(ctx, 1)
}

// RecordFileOrganized records a file move into a destination folder.
func (m *Metrics) RecordFileOrganized(ctx context.Context, folder, status string) {
	if m == nil || m.filesOrganizedTotal == nil {
		return
	}
	m.filesOrganizedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrFolder, folder),
		attribute.String(attrStatus, status),
	))
}

// RecordImageProbe records an image dimension probe.
func (m *Metrics) RecordImageProbe(ctx context.Context, status string) {
	if m == nil || m.imagesProbedTotal == nil {
		return
	}
	m.imagesProbedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}
