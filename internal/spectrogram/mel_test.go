package spectrogram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/birdnet-spec/internal/errors"
)

func sine(n, sampleRate int, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestMelScaleConversions(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 15.0, hzToMel(1000), 1e-9)
	assert.InDelta(t, 3.0, hzToMel(200), 1e-9)
	for _, hz := range []float64{0, 50, 440, 999, 1000, 4000, 22050} {
		assert.InDelta(t, hz, melToHz(hzToMel(hz)), 1e-6, "round trip %v Hz", hz)
	}
}

func TestHannWindow(t *testing.T) {
	t.Parallel()

	w := hannWindow(8)
	require.Len(t, w, 8)
	assert.InDelta(t, 0.0, w[0], 1e-12)
	assert.InDelta(t, 1.0, w[4], 1e-12)
	// periodic: symmetric around n/2, not around (n-1)/2
	assert.InDelta(t, w[1], w[7], 1e-12)
	assert.InDelta(t, w[3], w[5], 1e-12)
}

func TestMelFilterbank(t *testing.T) {
	t.Parallel()

	fb := melFilterbank(22050, 2048, 40, 0, 11025)
	rows, cols := fb.Dims()
	assert.Equal(t, 40, rows)
	assert.Equal(t, 1025, cols)

	for i := range rows {
		var sum float64
		for k := range cols {
			v := fb.At(i, k)
			require.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		assert.Positive(t, sum, "filter %d is empty", i)
	}

	again := melFilterbank(22050, 2048, 40, 0, 11025)
	assert.Same(t, fb, again, "filterbank should be served from cache")
}

func TestMelFilterbankWeights(t *testing.T) {
	t.Parallel()

	fb := melFilterbank(22050, 2048, 40, 0, 11025)

	tests := []struct {
		band, bin int
		want      float64
	}{
		{0, 0, 0},
		{0, 1, 0.0016347200434479725},
		{0, 2, 0.003269440086895945},
		{1, 8, 0.0007557271919883128},
		{10, 77, 0.0026531117895392162},
		{11, 92, 0.009692079802234065},
		{11, 93, 0.008154228343834875},
		{20, 178, 0.000523119818126709},
		{39, 868, 2.8442367876909595e-05},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, fb.At(tt.band, tt.bin), 1e-12, "weight[%d][%d]", tt.band, tt.bin)
	}

	// area normalisation: each triangle integrates to about one over Hz
	binWidth := 22050.0 / 2048
	rows, _ := fb.Dims()
	for i := range rows {
		assert.InDelta(t, 1.0, mat.Sum(fb.RowView(i))*binWidth, 5e-3, "area of filter %d", i)
	}
}

func TestMelSpectrogramPureTone(t *testing.T) {
	t.Parallel()

	// a tone centred on FFT bin 93 leaks only into bins 92 and 94 under a
	// periodic Hann window: |X| is A*N/4 at the bin and A*N/8 beside it
	const bin = 93
	cfg := DefaultMelConfig(22050)
	cfg.NMels = 40
	spec, err := MelSpectrogram(sine(22050, 22050, bin*22050.0/2048), cfg)
	require.NoError(t, err)

	const frame = 10
	assert.InEpsilon(t, 801.5932631123435, spec.At(11, frame), 1e-4)
	assert.InEpsilon(t, 360.67119415346315, spec.At(12, frame), 1e-4)
	assert.InDelta(t, 0.0, spec.At(10, frame), 1e-6)
	assert.InDelta(t, 0.0, spec.At(13, frame), 1e-6)
}

func TestReflectIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		i, n, want int
	}{
		{0, 4, 0},
		{-1, 4, 1},
		{-2, 4, 2},
		{-3, 4, 3},
		{-4, 4, 2},
		{4, 4, 2},
		{5, 4, 1},
		{6, 4, 0},
		{3, 1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reflectIndex(tt.i, tt.n), "reflectIndex(%d, %d)", tt.i, tt.n)
	}

	padded := reflectPad([]float32{1, 2, 3}, 2)
	assert.Equal(t, []float64{3, 2, 1, 2, 3, 2, 1}, padded)
}

func TestMelConfigValidate(t *testing.T) {
	t.Parallel()

	base := DefaultMelConfig(44100)
	tests := []struct {
		name    string
		mutate  func(*MelConfig)
		wantErr bool
	}{
		{"defaults", func(*MelConfig) {}, false},
		{"amplitude", func(c *MelConfig) { c.Power = 1 }, false},
		{"zero rate", func(c *MelConfig) { c.SampleRate = 0 }, true},
		{"tiny nfft", func(c *MelConfig) { c.NFFT = 1 }, true},
		{"zero hop", func(c *MelConfig) { c.HopLength = 0 }, true},
		{"no mels", func(c *MelConfig) { c.NMels = 0 }, true},
		{"fmax above nyquist", func(c *MelConfig) { c.FMax = 30000 }, true},
		{"fmin above fmax", func(c *MelConfig) { c.FMin = 5000; c.FMax = 4000 }, true},
		{"power three", func(c *MelConfig) { c.Power = 3 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMelSpectrogramShape(t *testing.T) {
	t.Parallel()

	cfg := DefaultMelConfig(44100)
	spec, err := MelSpectrogram(sine(44100, 44100, 1000), cfg)
	require.NoError(t, err)

	rows, cols := spec.Dims()
	assert.Equal(t, 128, rows)
	assert.Equal(t, 1+44100/512, cols)
}

func TestMelSpectrogramPeakBand(t *testing.T) {
	t.Parallel()

	cfg := DefaultMelConfig(44100)
	spec, err := MelSpectrogram(sine(44100, 44100, 1000), cfg)
	require.NoError(t, err)

	// band energy summed over time
	rows, _ := spec.Dims()
	energy := make([]float64, rows)
	for r := range rows {
		energy[r] = mat.Sum(spec.RowView(r))
	}
	peak := 0
	for r, e := range energy {
		if e > energy[peak] {
			peak = r
		}
	}

	centers := melFrequencies(cfg.NMels+2, 0, 22050)[1 : cfg.NMels+1]
	closest := 0
	for i, f := range centers {
		if math.Abs(f-1000) < math.Abs(centers[closest]-1000) {
			closest = i
		}
	}
	assert.InDelta(t, closest, peak, 2, "peak band %d, expected near %d", peak, closest)
}

func TestMelSpectrogramPower(t *testing.T) {
	t.Parallel()

	samples := sine(8192, 16000, 440)
	powerCfg := DefaultMelConfig(16000)
	ampCfg := powerCfg
	ampCfg.Power = 1

	power, err := MelSpectrogram(samples, powerCfg)
	require.NoError(t, err)
	amp, err := MelSpectrogram(samples, ampCfg)
	require.NoError(t, err)

	assert.Greater(t, mat.Max(power), mat.Max(amp), "power spectrogram of a loud tone should exceed amplitude")
}

func TestMelSpectrogramEmpty(t *testing.T) {
	t.Parallel()

	_, err := MelSpectrogram(nil, DefaultMelConfig(44100))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}
