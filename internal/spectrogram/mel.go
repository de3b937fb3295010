// Package spectrogram computes mel spectrograms from audio signals and
// encodes them as grayscale PNG images.
//
// Matrices are gonum *mat.Dense values with one row per mel band (row 0 is
// the lowest band) and one column per STFT frame.
package spectrogram

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/birdnet-spec/internal/errors"
)

// Default STFT and mel parameters
const (
	DefaultNFFT      = 2048
	DefaultHopLength = 512
	DefaultNMels     = 128
	DefaultPower     = 2.0
)

// MelConfig holds the parameters of a mel spectrogram
type MelConfig struct {
	SampleRate int
	NFFT       int
	HopLength  int
	NMels      int
	FMin       float64
	FMax       float64 // 0 means SampleRate/2
	Power      float64 // 1 for amplitude, 2 for power
}

// DefaultMelConfig returns the default configuration for sampleRate
func DefaultMelConfig(sampleRate int) MelConfig {
	return MelConfig{
		SampleRate: sampleRate,
		NFFT:       DefaultNFFT,
		HopLength:  DefaultHopLength,
		NMels:      DefaultNMels,
		Power:      DefaultPower,
	}
}

// Validate checks the configuration
func (c MelConfig) Validate() error {
	var reason string
	nyquist := float64(c.SampleRate) / 2
	switch {
	case c.SampleRate <= 0:
		reason = "sample rate must be positive"
	case c.NFFT < 2:
		reason = "nfft must be at least 2"
	case c.HopLength <= 0:
		reason = "hop length must be positive"
	case c.NMels <= 0:
		reason = "mel band count must be positive"
	case c.FMax > nyquist:
		reason = fmt.Sprintf("fmax %.1f exceeds Nyquist frequency %.1f", c.FMax, nyquist)
	case c.FMin < 0 || c.FMin >= c.maxFrequency():
		reason = "fmin must be in [0, fmax)"
	case c.Power != 1 && c.Power != 2:
		reason = "power must be 1 or 2"
	default:
		return nil
	}
	return errors.Newf("invalid mel configuration: %s", reason).
		Component("spectrogram").
		Category(errors.CategoryValidation).
		Build()
}

func (c MelConfig) maxFrequency() float64 {
	if c.FMax <= 0 {
		return float64(c.SampleRate) / 2
	}
	return c.FMax
}

// MelSpectrogram computes the mel spectrogram of samples.
// The STFT is centered with reflect padding and uses a periodic Hann window.
func MelSpectrogram(samples []float32, cfg MelConfig) (*mat.Dense, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.Newf("cannot compute spectrogram of an empty signal").
			Component("spectrogram").
			Category(errors.CategoryValidation).
			Build()
	}

	spec := stft(samples, cfg)
	filters := melFilterbank(cfg.SampleRate, cfg.NFFT, cfg.NMels, cfg.FMin, cfg.maxFrequency())

	var mel mat.Dense
	mel.Mul(filters, spec)
	return &mel, nil
}

// stft returns |X|^power with shape (1 + nfft/2) x frames.
func stft(samples []float32, cfg MelConfig) *mat.Dense {
	padded := reflectPad(samples, cfg.NFFT/2)
	numFrames := 1 + (len(padded)-cfg.NFFT)/cfg.HopLength
	numBins := 1 + cfg.NFFT/2

	window := hannWindow(cfg.NFFT)
	fft := fourier.NewFFT(cfg.NFFT)
	frame := make([]float64, cfg.NFFT)
	coeffs := make([]complex128, numBins)

	spec := mat.NewDense(numBins, numFrames, nil)
	for t := range numFrames {
		offset := t * cfg.HopLength
		for i := range frame {
			frame[i] = padded[offset+i] * window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for f, c := range coeffs {
			mag := cmplx.Abs(c)
			if cfg.Power == 2 {
				mag *= mag
			}
			spec.Set(f, t, mag)
		}
	}
	return spec
}

// reflectPad pads x on both sides by pad samples, mirroring around the edge
// samples without repeating them.
func reflectPad(x []float32, pad int) []float64 {
	n := len(x)
	out := make([]float64, n+2*pad)
	for i := range out {
		out[i] = float64(x[reflectIndex(i-pad, n)])
	}
	return out
}

func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}
