package datastore

import (
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/birdnet-spec/internal/logger"
)

// slowQueryThreshold marks queries logged as slow by the GORM adapter
const slowQueryThreshold = 200 * time.Millisecond

// GetLogger returns the datastore package logger
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// createGormLogger routes GORM output through the central logger
func createGormLogger() gormlogger.Interface {
	return logger.NewGormLoggerAdapter(GetLogger(), slowQueryThreshold)
}
