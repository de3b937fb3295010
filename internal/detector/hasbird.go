// Package detector separates spectrogram chunks that contain bird vocalisations
// from chunks that contain only noise.
//
// The heuristic crops the frequency range, median filters the image, keeps
// pixels that stand well above both their row and column medians, closes the
// resulting mask and counts the frequency rows that carry signal.
package detector

import (
	"gonum.org/v1/gonum/mat"
)

// DefaultThreshold is the minimum number of signal rows for a bird decision
const DefaultThreshold = 30.0

// Band limits of the analysed frequency rows
const (
	bandLow  = 20
	bandHigh = 100
)

const (
	blurSize     = 5
	closingSize  = 5
	rowFactor    = 3.0
	colFactor    = 4.0
	rowDilations = 2
)

// Decision is the outcome of the detector for one spectrogram
type Decision struct {
	Bird    bool
	RThresh int        // number of frequency rows with signal after dilation
	Mask    *mat.Dense // closed binary mask, nil when the band is empty
}

// HasBird reports whether spec shows bird sounds and returns the closed mask.
// spec has one row per mel band with row 0 the lowest.
func HasBird(spec mat.Matrix, threshold float64) (bool, *mat.Dense) {
	d := Classify(spec, threshold)
	return d.Bird, d.Mask
}

// Classify runs the detector and returns the full decision
func Classify(spec mat.Matrix, threshold float64) Decision {
	rows, cols := spec.Dims()
	lo, hi := min(bandLow, rows), min(bandHigh, rows)
	if hi <= lo || cols == 0 {
		return Decision{Bird: threshold <= 0}
	}

	// single precision working copy of the band
	img := mat.NewDense(hi-lo, cols, nil)
	for r := lo; r < hi; r++ {
		for c := range cols {
			img.Set(r-lo, c, float64(float32(spec.At(r, c))))
		}
	}

	img = medianBlur(img, blurSize)

	rowMed := rowMedians(img)
	colMed := colMedians(img)
	img.Apply(func(r, _ int, v float64) float64 {
		if v < rowMed[r]*rowFactor {
			return 0
		}
		return v
	}, img)
	img.Apply(func(_, c int, v float64) float64 {
		if v < colMed[c]*colFactor {
			return 0
		}
		return v
	}, img)
	img.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return 1
		}
		return v
	}, img)

	mask := closing(img, closingSize)

	maskRows, _ := mask.Dims()
	signal := make([]bool, maskRows)
	for r := range maskRows {
		signal[r] = mat.Max(mask.RowView(r)) != 0
	}
	rthresh := 0
	for _, s := range binaryDilation1D(signal, rowDilations) {
		if s {
			rthresh++
		}
	}

	return Decision{
		Bird:    float64(rthresh) >= threshold,
		RThresh: rthresh,
		Mask:    mask,
	}
}
