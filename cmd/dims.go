package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mulchkit/mulch/internal/imaging"
	"github.com/mulchkit/mulch/internal/instrumentation"
	"github.com/mulchkit/mulch/internal/logging"
)

func newDimsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dims FILE...",
		Short: "Print the dimensions of image files",
		Long: `Print the width and height of JPEG, PNG, GIF and WebP images. Only the
file header is read. JPEGs rotated by their EXIF orientation report the
displayed size.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			failed := 0
			for _, path := range args {
				d, err := imaging.Probe(path)
				if err != nil {
					failed++
					a.metrics().RecordImageProbe(ctx, instrumentation.StatusError)
					a.logger.Error("failed to read image dimensions", logging.File(path), logging.Err(err))
					continue
				}
				a.metrics().RecordImageProbe(ctx, instrumentation.StatusSuccess)

				if len(args) > 1 {
					fmt.Fprintf(out, "%s: ", path)
				}
				fmt.Fprintf(out, "The dimensions of the image are: width %d x height %d\n", d.Width, d.Height)
			}

			if failed > 0 {
				return fmt.Errorf("failed to read %d of %d images", failed, len(args))
			}
			return nil
		},
	}
}
