package hasbird

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/birdnet-spec/internal/conf"
	"github.com/tphakala/birdnet-spec/internal/detector"
	"github.com/tphakala/birdnet-spec/internal/spectrogram"
)

// Command creates the hasbird command that runs the detector on saved
// spectrogram images.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hasbird [image.png]...",
		Short: "Classify spectrogram images as bird or noise",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold := conf.GetSettings().Detector.Threshold
			for _, path := range args {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				spec, err := spectrogram.LoadPNG(path)
				if err != nil {
					return err
				}
				d := detector.Classify(spec, threshold)
				label := "noise"
				if d.Bird {
					label = "bird"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\n", path, label, d.RThresh)
			}
			return nil
		},
	}

	cmd.Flags().Float64P("threshold", "t", conf.DefaultThreshold, "Minimum active row count for a bird image")
	conf.AnnotateFlag(cmd.Flags(), "threshold", "detector.threshold")

	return cmd
}
