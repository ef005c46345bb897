package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/mulchkit/mulch/internal/instrumentation"
	"github.com/mulchkit/mulch/internal/logging"
)

// version will be set by main
var version = "dev"

// rootCmd represents the base command for the mulch application
var rootCmd, rootApp = newRootCmd()

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	// PersistentPostRunE is skipped when a command fails.
	rootApp.shutdown()
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// app holds the state shared by all subcommands of one invocation.
type app struct {
	logLevel  string
	logFormat string
	envFile   string

	logger   *slog.Logger
	provider *instrumentation.Provider
	span     trace.Span

	shutdownOnce sync.Once
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "mulch",
		Short: "Small automations for mail, files and images",
		Long: `mulch bundles a handful of personal automation tasks:

  - download: export Gmail messages selected by label to JSON
  - organize: sort loose desktop files into per-type folders
  - dims:     print the dimensions of image files
  - scan:     find image files and write an HTML listing
  - gallery:  render an HTML gallery from a list of image paths`,
		SilenceUsage:       true,
		Version:            version,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	cmd.SetVersionTemplate(`{{printf "mulch version %s\n" .Version}}`)

	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $MULCH_LOG_LEVEL or info)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text, json (default: $MULCH_LOG_FORMAT or text)")
	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "Load environment variables from this file (default: .env if present)")

	cmd.AddCommand(newDownloadCmd(a))
	cmd.AddCommand(newOrganizeCmd(a))
	cmd.AddCommand(newDimsCmd(a))
	cmd.AddCommand(newScanCmd(a))
	cmd.AddCommand(newGalleryCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd, a
}

// setup loads the environment, then builds the logger and the telemetry
// provider for the command about to run.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := loadEnv(a.envFile); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Output = cmd.ErrOrStderr()
	if a.logLevel != "" {
		logCfg.Level = a.logLevel
	}
	if a.logFormat != "" {
		logCfg.Format = a.logFormat
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	a.logger = logging.WithOperation(logger, cmd.Name())
	slog.SetDefault(logger)

	instrCfg := instrumentation.DefaultConfig()
	instrCfg.ServiceVersion = version
	provider, err := instrumentation.NewProvider(cmd.Context(), instrCfg)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	a.provider = provider

	ctx, span := instrumentation.StartCommandSpan(cmd.Context(), cmd.Name())
	a.span = span
	cmd.SetContext(ctx)

	a.logger.Debug("command started", slog.String("trace_id", instrumentation.GetTraceID(ctx)))
	return nil
}

func (a *app) teardown(cmd *cobra.Command, args []string) error {
	a.shutdown()
	return nil
}

// shutdown ends the command span and flushes telemetry. It runs at most once.
func (a *app) shutdown() {
	a.shutdownOnce.Do(func() {
		if a.span != nil {
			a.span.End()
		}
		if a.provider == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.provider.Shutdown(ctx); err != nil && a.logger != nil {
			a.logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	})
}

// metrics returns the recorder of the active provider, or nil.
func (a *app) metrics() *instrumentation.Metrics {
	if a.provider == nil {
		return nil
	}
	return a.provider.Metrics()
}

// loadEnv loads path, or .env when path is empty. A missing default file is
// not an error. Variables already set in the environment win.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}
