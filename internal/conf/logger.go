package conf

import "github.com/tphakala/birdnet-spec/internal/logger"

// GetLogger returns the config package logger, resolved from the current global logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
