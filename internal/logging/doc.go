// Package logging provides structured logging utilities for mulch.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Handler construction from environment or flags (text or JSON)
//   - Consistent attribute naming across the codebase
//   - PII sanitization (sender addresses are hashed)
//   - Logger adapter interface for packages that only need levelled output
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "gmail.download")
//	logger.Info("message exported",
//	    logging.MessageID(id),
//	    logging.Status(logging.StatusSuccess))
//
// Sanitize sensitive data before logging:
//
//	logger.Debug("record built",
//	    logging.UserHash(record.Sender))
package logging
