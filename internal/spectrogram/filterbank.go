package spectrogram

import (
	"fmt"
	"math"
	"time"

	"github.com/mjibson/go-dsp/window"
	"github.com/patrickmn/go-cache"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	filterCacheTTL     = 30 * time.Minute
	filterCacheCleanup = 10 * time.Minute
)

// filterCache holds filterbanks and windows; both are read-only once built.
var filterCache = cache.New(filterCacheTTL, filterCacheCleanup)

// Slaney mel scale constants: linear below 1 kHz, logarithmic above.
const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27

func hzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

func melToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// melFrequencies returns n frequencies evenly spaced on the mel scale.
func melFrequencies(n int, fmin, fmax float64) []float64 {
	mels := make([]float64, n)
	floats.Span(mels, hzToMel(fmin), hzToMel(fmax))
	for i, m := range mels {
		mels[i] = melToHz(m)
	}
	return mels
}

// melFilterbank returns the nMels x (1 + nfft/2) triangular filter matrix with
// Slaney area normalisation. Results are cached per parameter set.
func melFilterbank(sampleRate, nfft, nMels int, fmin, fmax float64) *mat.Dense {
	key := fmt.Sprintf("mel:%d:%d:%d:%g:%g", sampleRate, nfft, nMels, fmin, fmax)
	if cached, ok := filterCache.Get(key); ok {
		if m, ok := cached.(*mat.Dense); ok {
			return m
		}
	}

	numBins := 1 + nfft/2
	fftFreqs := make([]float64, numBins)
	floats.Span(fftFreqs, 0, float64(sampleRate)/2)

	melF := melFrequencies(nMels+2, fmin, fmax)
	fdiff := make([]float64, len(melF)-1)
	for i := range fdiff {
		fdiff[i] = melF[i+1] - melF[i]
	}

	weights := mat.NewDense(nMels, numBins, nil)
	for i := range nMels {
		enorm := 2.0 / (melF[i+2] - melF[i])
		for k, f := range fftFreqs {
			lower := (f - melF[i]) / fdiff[i]
			upper := (melF[i+2] - f) / fdiff[i+1]
			w := math.Max(0, math.Min(lower, upper))
			weights.Set(i, k, w*enorm)
		}
	}

	filterCache.Set(key, weights, cache.DefaultExpiration)
	return weights
}

// hannWindow returns a periodic Hann window of length n.
func hannWindow(n int) []float64 {
	key := fmt.Sprintf("hann:%d", n)
	if cached, ok := filterCache.Get(key); ok {
		if w, ok := cached.([]float64); ok {
			return w
		}
	}
	// a symmetric window of n+1 points truncated to n is periodic
	w := window.Hann(n + 1)[:n]
	filterCache.Set(key, w, cache.DefaultExpiration)
	return w
}
