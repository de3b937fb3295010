package myaudio

import (
	"github.com/tphakala/birdnet-spec/internal/errors"
)

// ResampleAudio resamples audio from originalRate to targetRate using cubic
// (Catmull-Rom) interpolation. Equal rates return the input unchanged.
// The output holds ceil(len(audio) * targetRate / originalRate) samples.
func ResampleAudio(audio []float32, originalRate, targetRate int) ([]float32, error) {
	if originalRate <= 0 || targetRate <= 0 {
		return nil, errors.Newf("invalid resample rates: %d -> %d", originalRate, targetRate).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Build()
	}
	if originalRate == targetRate {
		return audio, nil
	}

	audioLength := len(audio)
	if audioLength == 0 {
		return []float32{}, nil
	}

	newLength := (audioLength*targetRate + originalRate - 1) / originalRate
	resampled := make([]float32, newLength)
	ratio := float64(targetRate) / float64(originalRate)
	lastIndex := audioLength - 1

	at := func(i int) float32 {
		if i < 0 {
			return audio[0]
		}
		if i > lastIndex {
			return audio[lastIndex]
		}
		return audio[i]
	}

	for i := range newLength {
		origPos := float64(i) / ratio
		index := int(origPos)
		frac := float32(origPos - float64(index))

		y0, y1, y2, y3 := at(index-1), at(index), at(index+1), at(index+2)
		mu2 := frac * frac
		a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
		a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
		a2 := -0.5*y0 + 0.5*y2
		a3 := y1

		resampled[i] = a0*frac*mu2 + a1*mu2 + a2*frac + a3
	}

	return resampled, nil
}
