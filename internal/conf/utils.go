// conf/utils.go various util functions for configuration package
package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/birdnet-spec/internal/errors"
)

const appName = "birdnet-spec"

// GetDefaultConfigPaths returns the configuration search path for the current OS.
// If one of the paths already holds config.yaml, only that path is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case "windows":
		configPaths = []string{
			filepath.Join(homeDir, "AppData", "Roaming", appName),
			".",
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", appName),
			".",
		}
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// ModelPath returns the checkpoint path for restoreFile inside modelDir.
func ModelPath(modelDir, restoreFile string) string {
	return filepath.Join(modelDir, restoreFile+".tflite")
}
