package model

import (
	"sync"

	"github.com/tphakala/birdnet-spec/internal/logger"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the model package logger.
// Uses sync.Once to ensure the logger is only initialized once.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("model")
	})
	return serviceLogger
}
