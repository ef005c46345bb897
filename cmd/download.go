package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mulchkit/mulch/internal/browser"
	"github.com/mulchkit/mulch/internal/gmail"
	"github.com/mulchkit/mulch/internal/google"
	"github.com/mulchkit/mulch/internal/logging"
)

func newDownloadCmd(a *app) *cobra.Command {
	var (
		mode         string
		labelsFile   string
		outputDir    string
		outputFile   string
		credentials  string
		token        string
		callbackAddr string
		noBrowser    bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download Gmail messages by label",
		Long: `Download every Gmail message that carries all of the selected labels.

In bundle mode (default) labels are read from labels.csv when the file exists,
otherwise you are prompted to choose from the mailbox's labels. Each message is
reduced to its headers, plain-text body, label names and attachment names and
the result is written to email_YYYY_MM_DD_HHMM_N.json.

In raw mode you are always prompted, and the full API messages are written to
emails.json.

The first run opens a browser to authorize read-only Gmail access. The token is
cached in token.json and refreshed automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := a.logger

			gcfg := google.DefaultConfig()
			if cmd.Flags().Changed("credentials") {
				gcfg.CredentialsFile = credentials
			}
			if cmd.Flags().Changed("token") {
				gcfg.TokenFile = token
			}
			if cmd.Flags().Changed("callback-addr") {
				gcfg.CallbackAddr = callbackAddr
			}

			var auth google.Authorizer
			if noBrowser {
				auth = &google.PromptAuthorizer{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
			} else {
				auth = &google.LoopbackAuthorizer{
					Addr: gcfg.CallbackAddr,
					Open: browser.Open,
					Out:  cmd.ErrOrStderr(),
				}
			}

			httpClient, err := google.NewHTTPClient(ctx, gcfg, auth, logger)
			if err != nil {
				return fmt.Errorf("failed to authorize Gmail access: %w", err)
			}

			client, err := gmail.NewClient(ctx, httpClient, nil, gmail.WithMetrics(a.metrics()))
			if err != nil {
				return err
			}

			dcfg := gmail.DefaultDownloaderConfig()
			if cmd.Flags().Changed("mode") {
				dcfg.Mode = gmail.Mode(mode)
			}
			if cmd.Flags().Changed("labels-file") {
				dcfg.LabelsFile = labelsFile
			}
			if cmd.Flags().Changed("output-dir") {
				dcfg.OutputDir = outputDir
			}
			if cmd.Flags().Changed("output-file") {
				dcfg.OutputFile = outputFile
			}

			d := gmail.NewDownloader(client, dcfg, cmd.InOrStdin(), cmd.OutOrStdout(), logger, a.metrics())
			result, err := d.Run(ctx)
			if err != nil {
				return err
			}

			logger.Info("download complete",
				slog.Int("found", result.Found),
				slog.Int("written", result.Written),
				slog.Int("skipped", result.Skipped),
				logging.File(result.Path))
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(gmail.ModeBundle), "Download mode: bundle or raw")
	cmd.Flags().StringVar(&labelsFile, "labels-file", gmail.DefaultLabelsFile, "CSV file listing label names (bundle mode)")
	cmd.Flags().StringVar(&outputDir, "output-dir", ".", "Directory for the output file")
	cmd.Flags().StringVar(&outputFile, "output-file", gmail.DefaultRawFile, "Output file name (raw mode)")
	cmd.Flags().StringVar(&credentials, "credentials", "credentials.json", "OAuth client credentials file")
	cmd.Flags().StringVar(&token, "token", "token.json", "OAuth token cache file")
	cmd.Flags().StringVar(&callbackAddr, "callback-addr", "localhost:0", "Listen address for the OAuth browser callback")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the consent URL and read the code from stdin instead of using a browser")

	return cmd
}
