// conf/defaults.go default values for settings
package conf

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/tphakala/birdnet-spec/internal/logger"
)

// Defaults shared with the command line flags.
const (
	DefaultSampleRate  = 44100
	DefaultSeconds     = 3.0
	DefaultOverlap     = 2.5
	DefaultMinLen      = 3.0
	DefaultNFFT        = 2048
	DefaultHopLength   = 512
	DefaultNMels       = 128
	DefaultPower       = 2.0
	DefaultThreshold   = 30.0
	DefaultDataDir     = "datasets/spec_split"
	DefaultModelDir    = "experiments/base_model"
	DefaultNumClasses  = 300
	DefaultRestoreFile = "best"
	DefaultSplit       = "test"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("spec.output", "spectrograms")
	viper.SetDefault("spec.samplerate", DefaultSampleRate)
	viper.SetDefault("spec.seconds", DefaultSeconds)
	viper.SetDefault("spec.overlap", DefaultOverlap)
	viper.SetDefault("spec.minlen", DefaultMinLen)
	viper.SetDefault("spec.nfft", DefaultNFFT)
	viper.SetDefault("spec.hoplength", DefaultHopLength)
	viper.SetDefault("spec.nmels", DefaultNMels)
	viper.SetDefault("spec.fmin", 0.0)
	viper.SetDefault("spec.fmax", 0.0)
	viper.SetDefault("spec.power", DefaultPower)
	viper.SetDefault("spec.imagescale", "linear")
	viper.SetDefault("spec.savenoise", true)
	viper.SetDefault("spec.workers", 0)

	viper.SetDefault("detector.threshold", DefaultThreshold)

	viper.SetDefault("evaluate.datadir", DefaultDataDir)
	viper.SetDefault("evaluate.modeldir", DefaultModelDir)
	viper.SetDefault("evaluate.numclasses", DefaultNumClasses)
	viper.SetDefault("evaluate.restorefile", DefaultRestoreFile)
	viper.SetDefault("evaluate.split", DefaultSplit)
	viper.SetDefault("evaluate.layout", "auto")
	viper.SetDefault("evaluate.threads", 0)
	viper.SetDefault("evaluate.cmdir", ".")

	viper.SetDefault("output.sqlite.enabled", false)
	viper.SetDefault("output.sqlite.path", "birdnet-spec.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.defaultlevel", logger.DefaultLogLevel)
	viper.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.fileoutput.enabled", logger.DefaultFileEnabled)
	viper.SetDefault("logging.fileoutput.path", logger.DefaultLogPath)
	viper.SetDefault("logging.fileoutput.level", logger.DefaultLogLevel)
}

// configureEnvironmentVariables lets BIRDNET_SPEC_SPEC_SECONDS override spec.seconds and so on.
func configureEnvironmentVariables() {
	viper.SetEnvPrefix("BIRDNET_SPEC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}
