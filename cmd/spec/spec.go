package spec

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/birdnet-spec/internal/conf"
	"github.com/tphakala/birdnet-spec/internal/datastore"
	"github.com/tphakala/birdnet-spec/internal/logger"
	"github.com/tphakala/birdnet-spec/internal/preprocess"
)

// Command creates the spec command that turns recordings into bird and
// noise spectrogram images.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spec [input]",
		Short: "Extract mel spectrogram images from audio",
		Long:  "Split a WAV or FLAC file, or every audio file under a directory, into chunks and save each chunk's mel spectrogram under bird/ or noise/.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	setupFlags(cmd)

	return cmd
}

// setupFlags configures flags specific to the spec command.
func setupFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("output", "o", "spectrograms", "Output directory for bird/ and noise/ images")
	flags.Float64("seconds", conf.DefaultSeconds, "Chunk length in seconds")
	flags.Float64("overlap", conf.DefaultOverlap, "Overlap between chunks in seconds")
	flags.Float64("minlen", conf.DefaultMinLen, "Minimum chunk length in seconds")
	flags.Float64P("threshold", "t", conf.DefaultThreshold, "Minimum active row count for a bird chunk")
	flags.Float64("power", conf.DefaultPower, "Spectrogram power, 1 for amplitude or 2 for power")
	flags.Bool("save-noise", true, "Also save chunks classified as noise")
	flags.Int("workers", 0, "Files processed concurrently, 0 for automatic")

	for name, key := range map[string]string{
		"output":     "spec.output",
		"seconds":    "spec.seconds",
		"overlap":    "spec.overlap",
		"minlen":     "spec.minlen",
		"threshold":  "detector.threshold",
		"power":      "spec.power",
		"save-noise": "spec.savenoise",
		"workers":    "spec.workers",
	} {
		conf.AnnotateFlag(flags, name, key)
	}
}

func run(cmd *cobra.Command, input string) error {
	settings := conf.GetSettings()
	opts, err := preprocess.OptionsFromSettings(settings)
	if err != nil {
		return err
	}
	opts.Progress = os.Stderr

	store := datastore.New(settings)
	if store != nil {
		if err := store.Open(); err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				preprocess.GetLogger().Warn("failed to close datastore", logger.Error(err))
			}
		}()
	}

	res, err := preprocess.New(opts, store).Run(cmd.Context(), input)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d files, %d chunks: %d bird, %d noise in %s\n",
		res.Files, res.Segments, res.Birds, res.Noise, res.Elapsed.Round(time.Millisecond))
	if res.Failed > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d files could not be decoded and were skipped\n", res.Failed)
	}
	return nil
}
