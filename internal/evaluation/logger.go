package evaluation

import "github.com/tphakala/birdnet-spec/internal/logger"

const moduleName = "evaluation"

// GetLogger returns the evaluation logger. It is resolved on every call
// because Run swaps the global logger to add evaluate.log.
func GetLogger() logger.Logger {
	return logger.Global().Module(moduleName)
}
