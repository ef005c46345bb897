// Package cmd implements the command-line interface for mulch.
//
// This package provides the following commands:
//   - download: Export Gmail messages carrying a set of labels to JSON
//   - organize: Move loose files into per-type folders
//   - dims: Print the dimensions of image files
//   - scan: Find image files and write an HTML page linking to them
//   - gallery: Write an HTML gallery for a list of image paths
//   - version: Display version information
//
// Every command loads .env, configures structured logging and starts the
// OpenTelemetry provider before it runs.
package cmd
