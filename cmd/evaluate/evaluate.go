package evaluate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/birdnet-spec/internal/conf"
	"github.com/tphakala/birdnet-spec/internal/evaluation"
	"github.com/tphakala/birdnet-spec/internal/metrics"
)

// Command creates the evaluate command for trained checkpoints.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a trained checkpoint on the test split",
		Long:  "Load params.json and <restore_file>.tflite from the model directory, run the test split and save metrics_test_<restore_file>.json.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := evaluation.Run(cmd.Context(), conf.GetSettings())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), metrics.FormatMetrics(m))
			return nil
		},
	}

	setupFlags(cmd)

	return cmd
}

// setupFlags keeps the flag names of the training scripts
func setupFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("data_dir", conf.DefaultDataDir, "Directory containing the dataset")
	flags.String("model_dir", conf.DefaultModelDir, "Directory containing params.json")
	flags.Int("num_classes", conf.DefaultNumClasses, "Number of classes")
	flags.String("restore_file", conf.DefaultRestoreFile, "Name of the checkpoint in model_dir, without extension")
	flags.String("split", conf.DefaultSplit, "Dataset split to evaluate")
	flags.String("layout", "auto", "Dataset layout: auto, manifest or folders")
	flags.Int("threads", 0, "Inference threads, 0 for automatic")
	flags.String("cm_dir", ".", "Base directory for cm_test/ and cm_val/")

	for name, key := range map[string]string{
		"data_dir":     "evaluate.datadir",
		"model_dir":    "evaluate.modeldir",
		"num_classes":  "evaluate.numclasses",
		"restore_file": "evaluate.restorefile",
		"split":        "evaluate.split",
		"layout":       "evaluate.layout",
		"threads":      "evaluate.threads",
		"cm_dir":       "evaluate.cmdir",
	} {
		conf.AnnotateFlag(flags, name, key)
	}
}
