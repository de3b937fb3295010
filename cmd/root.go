package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tphakala/birdnet-spec/cmd/evaluate"
	"github.com/tphakala/birdnet-spec/cmd/hasbird"
	"github.com/tphakala/birdnet-spec/cmd/spec"
	"github.com/tphakala/birdnet-spec/internal/conf"
	"github.com/tphakala/birdnet-spec/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand() *cobra.Command {
	var configFile string
	var central *logger.CentralLogger

	rootCmd := &cobra.Command{
		Use:           "birdnet-spec",
		Short:         "Bird sound spectrogram preprocessing and model evaluation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, &configFile)

	rootCmd.AddCommand(
		spec.Command(),
		hasbird.Command(),
		evaluate.Command(),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd); err != nil {
			return err
		}

		settings, err := conf.Load(configFile)
		if err != nil {
			return err
		}

		central, err = initLogging(settings)
		return err
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if central == nil {
			return nil
		}
		return central.Close()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(configFile, "config", "", "Path to config.yaml")
	conf.AnnotateFlag(rootCmd.PersistentFlags(), "debug", "debug")
}

// bindFlags binds the flags of the command being run to their viper keys,
// so flags set on the command line take precedence over the config file.
func bindFlags(cmd *cobra.Command) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys, ok := f.Annotations[conf.ViperKeyAnnotation]
		if !ok || len(keys) == 0 || bindErr != nil {
			return
		}
		if err := viper.BindPFlag(keys[0], f); err != nil {
			bindErr = fmt.Errorf("error binding flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

// initLogging replaces the global logger with one built from settings
func initLogging(settings *conf.Settings) (*logger.CentralLogger, error) {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = "debug"
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = "debug"
			cfg.Console = &console
		}
	}

	central, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	return central, nil
}
