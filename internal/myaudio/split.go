package myaudio

import (
	"github.com/tphakala/birdnet-spec/internal/errors"
)

// SplitOptions controls how a signal is cut into overlapping chunks
type SplitOptions struct {
	Seconds float64 // chunk length
	Overlap float64 // overlap between consecutive chunks
	MinLen  float64 // chunks shorter than this are dropped
}

// DefaultSplitOptions returns 3 second chunks with 2.5 seconds overlap
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{Seconds: 3.0, Overlap: 2.5, MinLen: 3.0}
}

// Validate checks the options against the sample rate they will be used with
func (o SplitOptions) Validate(sampleRate int) error {
	var reason string
	switch {
	case sampleRate <= 0:
		reason = "sample rate must be positive"
	case o.Seconds <= 0:
		reason = "chunk length must be positive"
	case o.Overlap < 0 || o.Overlap >= o.Seconds:
		reason = "overlap must be in [0, seconds)"
	case o.MinLen < 0:
		reason = "minimum length must be non-negative"
	case int((o.Seconds-o.Overlap)*float64(sampleRate)) < 1:
		reason = "chunk step is shorter than one sample"
	default:
		return nil
	}
	return errors.Newf("invalid split options: %s", reason).
		Component("myaudio").
		Category(errors.CategoryValidation).
		Context("seconds", o.Seconds).
		Context("overlap", o.Overlap).
		Context("minlen", o.MinLen).
		Build()
}

// SplitSignal cuts samples into chunks of Seconds length, advancing by
// Seconds-Overlap. A chunk is kept only if it is at least MinLen long; when no
// chunk qualifies the whole signal is returned as the only chunk.
// Returned chunks share memory with samples.
func SplitSignal(samples []float32, sampleRate int, opts SplitOptions) ([][]float32, error) {
	if err := opts.Validate(sampleRate); err != nil {
		return nil, err
	}

	rate := float64(sampleRate)
	step := int((opts.Seconds - opts.Overlap) * rate)
	size := int(opts.Seconds * rate)
	minLen := opts.MinLen * rate

	var splits [][]float32
	for start := 0; start < len(samples); start += step {
		end := min(start+size, len(samples))
		split := samples[start:end:end]
		if float64(len(split)) >= minLen {
			splits = append(splits, split)
		}
	}

	if len(splits) == 0 {
		splits = append(splits, samples)
	}
	return splits, nil
}
