package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mulchkit/mulch/internal/logging"
	"github.com/mulchkit/mulch/internal/organizer"
)

func newOrganizeCmd(a *app) *cobra.Command {
	var (
		dir          string
		mappingsFile string
		imageFolder  string
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Sort loose files into per-type folders",
		Long: `Move the files of a directory into folders by extension:

  img_bin    .jpg .png .gif (and .webp, converted to .png)
  pdf_bin    .pdf
  html_bin   .html
  adobe_bin  .ai .psd
  vect_bin   .svg
  txt_bin    .txt

Without --dir the Windows desktop is organized. A YAML file given with
--mappings replaces the table above.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := organizer.DefaultConfig()
			if dir != "" {
				cfg.Dir = dir
			}
			if cfg.Dir == "" {
				desktop, err := organizer.DesktopDir()
				if err != nil {
					return fmt.Errorf("%w; use --dir to organize another directory", err)
				}
				cfg.Dir = desktop
			}
			if mappingsFile != "" {
				mappings, err := organizer.LoadMappingsFile(mappingsFile)
				if err != nil {
					return err
				}
				cfg.Mappings = mappings
			}
			if cmd.Flags().Changed("image-folder") {
				cfg.ImageFolder = imageFolder
			}
			cfg.DryRun = dryRun

			org, err := organizer.New(cfg, logging.NewSlogAdapter(a.logger), a.metrics())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Organizing %s\n", cfg.Dir)
			report, err := org.Run(cmd.Context())
			if report != nil {
				printReport(cmd, report, dryRun)
			}
			if err != nil {
				return err
			}

			if len(report.Errors) > 0 {
				a.logger.Warn("some files could not be organized", logging.Count(len(report.Errors)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory to organize (default: $MULCH_ORGANIZE_DIR or the desktop)")
	cmd.Flags().StringVar(&mappingsFile, "mappings", "", "YAML file with folder/extension mappings")
	cmd.Flags().StringVar(&imageFolder, "image-folder", organizer.DefaultImageFolder, "Folder receiving .webp files and their PNG conversions")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be moved without changing anything")

	return cmd
}

func printReport(cmd *cobra.Command, report *organizer.Report, dryRun bool) {
	out := cmd.OutOrStdout()
	created, moved := "Created folder", "Moved"
	if dryRun {
		created, moved = "Would create folder", "Would move"
	}

	for _, f := range report.CreatedFolders {
		fmt.Fprintf(out, "  - %s: %s\n", created, f)
	}
	for _, f := range report.ExistingFolders {
		fmt.Fprintf(out, "  - Folder already exists: %s\n", f)
	}
	for _, m := range report.Moves {
		fmt.Fprintf(out, "  - %s '%s' to '%s'\n", moved, filepath.Base(m.Source), m.Folder)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "  - Error processing '%s': %v\n", e.File, e.Err)
	}
}
