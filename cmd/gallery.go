package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mulchkit/mulch/internal/gallery"
	"github.com/mulchkit/mulch/internal/imaging"
	"github.com/mulchkit/mulch/internal/logging"
)

func newGalleryCmd(a *app) *cobra.Command {
	var (
		listFile string
		output   string
		title    string
		open     bool
	)

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Write an HTML gallery for a list of image paths",
		Long: `Read image paths, one per line, and write an HTML page showing each image
linked to itself with its path and dimensions. Images whose dimensions cannot
be read are listed with "(no dimensions)".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(listFile)
			if err != nil {
				return fmt.Errorf("failed to open file list: %w", err)
			}
			paths, err := gallery.ReadFileList(f)
			f.Close()
			if err != nil {
				return err
			}

			entries := gallery.BuildEntries(cmd.Context(), paths, imaging.Probe, a.metrics())
			missing := 0
			for _, e := range entries {
				if !e.HasDimensions {
					missing++
					a.logger.Debug("no dimensions for image", logging.File(e.Path))
				}
			}

			if err := gallery.WriteFile(output, func(w io.Writer) error {
				return gallery.WriteGallery(w, title, entries)
			}); err != nil {
				return err
			}
			a.logger.Info("gallery written", logging.File(output), logging.Count(len(entries)))
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d image(s) to %s (%d without dimensions)\n", len(entries), output, missing)

			if open {
				if err := gallery.OpenBrowser(output); err != nil {
					a.logger.Warn("failed to open browser", logging.Err(err))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listFile, "list", "jpeg_file_paths.txt", "File listing image paths, one per line")
	cmd.Flags().StringVarP(&output, "output", "o", "jpeg_file_list.html", "HTML file to write")
	cmd.Flags().StringVar(&title, "title", gallery.GalleryTitle, "Page title")
	cmd.Flags().BoolVar(&open, "open", false, "Open the page in the default browser")

	return cmd
}
