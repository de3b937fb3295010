// Package conf loads and validates birdnet-spec configuration.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/birdnet-spec/internal/errors"
	"github.com/tphakala/birdnet-spec/internal/logger"
)

// SpecSettings controls audio chunking, mel spectrogram extraction and image output.
type SpecSettings struct {
	Output     string  `yaml:"output"`     // output directory for bird/ and noise/ images
	SampleRate int     `yaml:"samplerate"` // analysis sample rate, audio is resampled to this
	Seconds    float64 `yaml:"seconds"`    // chunk length in seconds
	Overlap    float64 `yaml:"overlap"`    // overlap between consecutive chunks in seconds
	MinLen     float64 `yaml:"minlen"`     // minimum chunk length in seconds
	NFFT       int     `yaml:"nfft"`       // FFT window size
	HopLength  int     `yaml:"hoplength"`  // STFT hop in samples
	NMels      int     `yaml:"nmels"`      // number of mel bands
	FMin       float64 `yaml:"fmin"`       // lowest mel band edge in Hz
	FMax       float64 `yaml:"fmax"`       // highest mel band edge in Hz, 0 means Nyquist
	Power      float64 `yaml:"power"`      // 1 for amplitude, 2 for power
	ImageScale string  `yaml:"imagescale"` // linear or db
	SaveNoise  bool    `yaml:"savenoise"`  // also write images classified as noise
	Workers    int     `yaml:"workers"`    // concurrent files, 0 for automatic
}

// DetectorSettings configures the bird/noise heuristic.
type DetectorSettings struct {
	Threshold float64 `yaml:"threshold"` // minimum active row count for a bird segment
}

// EvaluateSettings mirrors the evaluate command line.
type EvaluateSettings struct {
	DataDir     string `yaml:"datadir"`     // directory containing the split dataset
	ModelDir    string `yaml:"modeldir"`    // directory containing params.json and checkpoints
	NumClasses  int    `yaml:"numclasses"`  // number of classes in the dataset split
	RestoreFile string `yaml:"restorefile"` // checkpoint name without extension
	Split       string `yaml:"split"`       // dataset split to evaluate
	Layout      string `yaml:"layout"`      // auto, manifest or folders
	Threads     int    `yaml:"threads"`     // inference threads, 0 for automatic
	CMDir       string `yaml:"cmdir"`       // base directory for cm_test/ and cm_val/
}

// SQLiteSettings contains settings for SQLite output.
type SQLiteSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MySQLSettings contains settings for MySQL output.
type MySQLSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
}

// OutputSettings selects where segment decisions and evaluation runs are stored.
type OutputSettings struct {
	SQLite SQLiteSettings `yaml:"sqlite"`
	MySQL  MySQLSettings  `yaml:"mysql"`
}

// Settings contains all configuration options.
type Settings struct {
	Debug    bool                 `yaml:"debug"`
	Spec     SpecSettings         `yaml:"spec"`
	Detector DetectorSettings     `yaml:"detector"`
	Evaluate EvaluateSettings     `yaml:"evaluate"`
	Output   OutputSettings       `yaml:"output"`
	Logging  logger.LoggingConfig `yaml:"logging"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configFile, or config.yaml from the default paths when configFile
// is empty, merges environment overrides and validates the result.
// A missing config file is created with default values.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// GetSettings returns the most recently loaded settings
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// initViper sets defaults and environment bindings, then reads the config file.
func initViper(configFile string) error {
	viper.SetConfigType("yaml")
	setDefaultConfig()
	configureEnvironmentVariables()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return createDefaultConfig(configFile)
		}
	} else {
		viper.SetConfigName("config")
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return err
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			configPaths, pathErr := GetDefaultConfigPaths()
			if pathErr != nil {
				return pathErr
			}
			return createDefaultConfig(filepath.Join(configPaths[0], "config.yaml"))
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Category(errors.CategoryConfiguration).
			FileContext(viper.ConfigFileUsed()).
			Build()
	}

	return nil
}

// createDefaultConfig writes the current defaults to configPath and reads it back.
func createDefaultConfig(configPath string) error {
	defaults := &Settings{}
	if err := viper.Unmarshal(defaults); err != nil {
		return fmt.Errorf("error building default config: %w", err)
	}

	if err := SaveYAMLConfig(configPath, defaults); err != nil {
		return err
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// SaveYAMLConfig writes settings to configPath atomically.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.New(fmt.Errorf("error creating directories for config file: %w", err)).
			Category(errors.CategoryFileIO).
			FileContext(configPath).
			Build()
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		return errors.New(fmt.Errorf("error replacing config file: %w", err)).
			Category(errors.CategoryFileIO).
			FileContext(configPath).
			Build()
	}
	return nil
}
