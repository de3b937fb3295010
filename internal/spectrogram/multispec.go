package spectrogram

import (
	"context"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/birdnet-spec/internal/errors"
	"github.com/tphakala/birdnet-spec/internal/logger"
	"github.com/tphakala/birdnet-spec/internal/myaudio"
)

// Segment is the mel spectrogram of one chunk of a recording
type Segment struct {
	Index int
	Start float64 // seconds from the beginning of the recording
	Spec  *mat.Dense
}

// GetMultiSpec loads path at cfg.SampleRate, splits it into overlapping
// chunks and returns one mel spectrogram per chunk. A zero sample rate
// selects the analysis rate of 44.1 kHz.
func GetMultiSpec(ctx context.Context, path string, split myaudio.SplitOptions, cfg MelConfig) ([]Segment, error) {
	start := time.Now()

	if cfg.SampleRate <= 0 {
		cfg.SampleRate = myaudio.AnalysisSampleRate
	}
	sig, err := myaudio.LoadAtRate(path, cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	chunks, err := myaudio.SplitSignal(sig.Samples, sig.SampleRate, split)
	if err != nil {
		return nil, err
	}
	step := int((split.Seconds - split.Overlap) * float64(sig.SampleRate))

	segments := make([]Segment, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(err).
				Component("spectrogram").
				Category(errors.CategoryCancellation).
				FileContext(path).
				Build()
		}
		spec, err := MelSpectrogram(chunk, cfg)
		if err != nil {
			return nil, errors.New(err).
				Component("spectrogram").
				Category(errors.CategoryProcessing).
				FileContext(path).
				Context("chunk", i).
				Build()
		}
		segments = append(segments, Segment{
			Index: i,
			Start: float64(i*step) / float64(sig.SampleRate),
			Spec:  spec,
		})
	}

	GetLogger().Debug("computed chunk spectrograms",
		logger.String("file", filepath.Base(path)),
		logger.Int("chunks", len(segments)),
		logger.Duration("elapsed", time.Since(start)))
	return segments, nil
}
