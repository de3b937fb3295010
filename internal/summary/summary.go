// Package summary records scalar evaluation summaries as JSON lines and
// exports their latest values as a Prometheus text file.
package summary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/tphakala/birdnet-spec/internal/errors"
	"github.com/tphakala/birdnet-spec/internal/logger"
)

// File names inside the summary directory
const (
	ScalarsFile  = "eval.jsonl"
	TextfileName = "eval.prom"
)

// Record is one line of the scalars file
type Record struct {
	Tag      string  `json:"tag"`
	Value    float64 `json:"value"`
	Step     int     `json:"step"`
	WallTime float64 `json:"wall_time"`
}

// Writer appends scalars to <dir>/eval.jsonl and mirrors the latest value
// of each tag in Prometheus gauges.
type Writer struct {
	dir      string
	out      *logger.BufferedFileWriter
	registry *prometheus.Registry
	values   *prometheus.GaugeVec
	steps    *prometheus.GaugeVec
	written  prometheus.Counter
	tags     map[string]struct{}
	mu       sync.Mutex
	closed   bool
}

// New creates dir if needed and opens the scalars file for appending
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fileError(err, dir)
	}
	out, err := logger.NewBufferedFileWriter(filepath.Join(dir, ScalarsFile), logger.WithFlushInterval(0))
	if err != nil {
		return nil, fileError(err, filepath.Join(dir, ScalarsFile))
	}

	w := &Writer{
		dir:      dir,
		out:      out,
		registry: prometheus.NewRegistry(),
		tags:     make(map[string]struct{}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "birdnet_spec_eval_scalar",
			Help: "Most recent value of an evaluation scalar.",
		}, []string{"tag"}),
		steps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "birdnet_spec_eval_scalar_step",
			Help: "Global step of the most recent evaluation scalar.",
		}, []string{"tag"}),
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birdnet_spec_eval_scalars_total",
			Help: "Total number of evaluation scalars recorded.",
		}),
	}
	for _, c := range []prometheus.Collector{w.values, w.steps, w.written} {
		if err := w.registry.Register(c); err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("failed to register summary metrics: %w", err)
		}
	}
	return w, nil
}

// Scalar records value for tag at step
func (w *Writer) Scalar(tag string, value float64, step int) error {
	line, err := json.Marshal(Record{
		Tag:      tag,
		Value:    value,
		Step:     step,
		WallTime: float64(time.Now().UnixNano()) / 1e9,
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.Newf("summary writer is closed").
			Component("summary").
			Category(errors.CategoryFileIO).
			Build()
	}
	if _, err := w.out.Write(append(line, '\n')); err != nil {
		return fileError(err, w.out.FilePath())
	}
	w.values.WithLabelValues(tag).Set(value)
	w.steps.WithLabelValues(tag).Set(float64(step))
	w.written.Inc()
	w.tags[tag] = struct{}{}
	return nil
}

// Last returns the most recent value recorded for tag
func (w *Writer) Last(tag string) (float64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.tags[tag]; !ok {
		return 0, false
	}
	var m dto.Metric
	if err := w.values.WithLabelValues(tag).Write(&m); err != nil {
		return 0, false
	}
	return m.GetGauge().GetValue(), true
}

// Close flushes the scalars file and writes <dir>/eval.prom
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	closeErr := w.out.Close()
	promPath := filepath.Join(w.dir, TextfileName)
	if err := prometheus.WriteToTextfile(promPath, w.registry); err != nil {
		return errors.Join(closeErr, fileError(err, promPath))
	}
	if closeErr != nil {
		return fileError(closeErr, w.out.FilePath())
	}
	return nil
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("summary").
		Category(errors.CategoryFileIO).
		FileContext(path).
		Build()
}
