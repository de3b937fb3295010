package datastore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Segment records the detector decision for one chunk of a recording
type Segment struct {
	ID         uint    `gorm:"primaryKey"`
	File       string  `gorm:"index;size:512"`
	ChunkIndex int     `gorm:"index"`
	Start      float64 // chunk offset in seconds
	Bird       bool    `gorm:"index"`
	RThresh    int
	ImagePath  string `gorm:"size:1024"`
	CreatedAt  time.Time
}

// EvaluationRun records one evaluation of a checkpoint
type EvaluationRun struct {
	ID           string `gorm:"primaryKey;size:36"`
	ModelDir     string `gorm:"size:512"`
	RestoreFile  string `gorm:"size:255"`
	Architecture string `gorm:"size:64"`
	NumClasses   int
	Split        string `gorm:"size:32"`
	Seed         int64
	Metrics      string `gorm:"type:text"` // JSON object of metric name to value
	StartedAt    time.Time
	FinishedAt   time.Time
	CreatedAt    time.Time
}

// BeforeCreate assigns a UUID to runs created without one
func (r *EvaluationRun) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// SetMetrics stores metrics as JSON
func (r *EvaluationRun) SetMetrics(metrics map[string]float64) error {
	data, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	r.Metrics = string(data)
	return nil
}

// MetricValues decodes the stored metrics
func (r *EvaluationRun) MetricValues() (map[string]float64, error) {
	if r.Metrics == "" {
		return map[string]float64{}, nil
	}
	obj, err := jason.NewObjectFromBytes([]byte(r.Metrics))
	if err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	values := obj.Map()
	out := make(map[string]float64, len(values))
	for key, v := range values {
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", key, err)
		}
		out[key] = f
	}
	return out, nil
}
