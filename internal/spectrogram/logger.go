package spectrogram

import (
	"github.com/tphakala/birdnet-spec/internal/logger"
)

// GetLogger returns the spectrogram package logger.
// Fetched dynamically so it follows the current centralized logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("spectrogram")
}
