package preprocess

import "github.com/tphakala/birdnet-spec/internal/logger"

// GetLogger returns the preprocess package logger
func GetLogger() logger.Logger {
	return logger.Global().Module("preprocess")
}
