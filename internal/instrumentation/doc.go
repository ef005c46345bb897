// Package instrumentation provides OpenTelemetry metrics and tracing for the
// mulch commands.
//
// mulch runs as a short-lived CLI, so there is no scrape endpoint. Metrics
// are either pushed (OTLP), printed (stdout) or, with the prometheus
// exporter, written to a node_exporter textfile when the provider shuts down.
//
// # Metrics
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// Download Metrics:
//   - messages_exported_total: Counter of messages by status (success, error)
//   - extraction_errors_total: Counter of body/attachment extraction failures
//
// File Metrics:
//   - files_organized_total: Counter of organizer moves by folder and status
//   - images_probed_total: Counter of image dimension probes by status
//
// # Tracing
//
// Spans are created for each command run and for Google API calls
// (google.<service>.<operation>).
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - MULCH_INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - MULCH_METRICS_EXPORTER: prometheus, otlp, stdout, none (default: none)
//   - MULCH_METRICS_TEXTFILE: Prometheus textfile path (prometheus exporter only)
//   - MULCH_TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - OTEL_SERVICE_NAME: Service name (default: mulch)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordGoogleAPIOperation(ctx, "gmail", "list", "success", time.Since(start))
package instrumentation
