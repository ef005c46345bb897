package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mulchkit/mulch/internal/gallery"
	"github.com/mulchkit/mulch/internal/logging"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		root     string
		exts     []string
		output   string
		listFile string
		title    string
		open     bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Find image files and write an HTML listing",
		Long: `Walk a directory tree for files ending in one of the given extensions
(compared case-sensitively) and write an HTML page linking to each of them.

With --list the paths are also written one per line, ready for the gallery
command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := gallery.Scan(cmd.Context(), root, exts)
			if err != nil {
				return err
			}
			a.logger.Info("scan complete", logging.Count(len(paths)), logging.Folder(root))

			if err := gallery.WriteFile(output, func(w io.Writer) error {
				return gallery.WriteListing(w, title, paths)
			}); err != nil {
				return err
			}

			if listFile != "" {
				if err := gallery.WriteFile(listFile, func(w io.Writer) error {
					_, err := io.WriteString(w, strings.Join(paths, "\n")+"\n")
					return err
				}); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Found %d file(s); wrote %s\n", len(paths), output)

			if open {
				if err := gallery.OpenBrowser(output); err != nil {
					a.logger.Warn("failed to open browser", logging.Err(err))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "Directory to scan")
	cmd.Flags().StringSliceVar(&exts, "ext", gallery.DefaultExtensions, "File name suffixes to match")
	cmd.Flags().StringVarP(&output, "output", "o", "jpeg_file_paths.html", "HTML file to write")
	cmd.Flags().StringVar(&listFile, "list", "", "Also write the matching paths, one per line, to this file")
	cmd.Flags().StringVar(&title, "title", gallery.ListingTitle, "Page title")
	cmd.Flags().BoolVar(&open, "open", false, "Open the page in the default browser")

	return cmd
}
