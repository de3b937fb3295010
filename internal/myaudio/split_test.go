package myaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

func TestSplitSignal(t *testing.T) {
	t.Parallel()

	const rate = 10
	tests := []struct {
		name       string
		n          int
		opts       SplitOptions
		wantStarts []int
		wantLens   []int
	}{
		{
			name:       "defaults over 5 seconds",
			n:          50,
			opts:       DefaultSplitOptions(),
			wantStarts: []int{0, 5, 10, 15, 20},
			wantLens:   []int{30, 30, 30, 30, 30},
		},
		{
			name:       "exactly one chunk",
			n:          30,
			opts:       DefaultSplitOptions(),
			wantStarts: []int{0},
			wantLens:   []int{30},
		},
		{
			name:       "too short keeps whole signal",
			n:          12,
			opts:       DefaultSplitOptions(),
			wantStarts: []int{0},
			wantLens:   []int{12},
		},
		{
			name:       "short tail kept when above minlen",
			n:          25,
			opts:       SplitOptions{Seconds: 1, Overlap: 0, MinLen: 0.5},
			wantStarts: []int{0, 10, 20},
			wantLens:   []int{10, 10, 5},
		},
		{
			name:       "zero minlen keeps every tail",
			n:          12,
			opts:       SplitOptions{Seconds: 1, Overlap: 0.5, MinLen: 0},
			wantStarts: []int{0, 5, 10},
			wantLens:   []int{10, 7, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			splits, err := SplitSignal(ramp(tt.n), rate, tt.opts)
			require.NoError(t, err)
			require.Len(t, splits, len(tt.wantStarts))
			for i, split := range splits {
				assert.Len(t, split, tt.wantLens[i], "split %d", i)
				assert.InDelta(t, float64(tt.wantStarts[i]), split[0], 0, "split %d", i)
			}
		})
	}
}

func TestSplitSignalEmpty(t *testing.T) {
	t.Parallel()

	splits, err := SplitSignal(nil, 44100, DefaultSplitOptions())
	require.NoError(t, err)
	require.Len(t, splits, 1)
	assert.Empty(t, splits[0])
}

func TestSplitSignalAppendDoesNotClobber(t *testing.T) {
	t.Parallel()

	sig := ramp(40)
	splits, err := SplitSignal(sig, 10, SplitOptions{Seconds: 1, Overlap: 0, MinLen: 1})
	require.NoError(t, err)
	_ = append(splits[0], 99)
	assert.InDelta(t, 10.0, sig[10], 0)
}

func TestSplitOptionsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts SplitOptions
		rate int
	}{
		{"zero seconds", SplitOptions{Seconds: 0}, 44100},
		{"overlap equals seconds", SplitOptions{Seconds: 3, Overlap: 3}, 44100},
		{"negative overlap", SplitOptions{Seconds: 3, Overlap: -1}, 44100},
		{"negative minlen", SplitOptions{Seconds: 3, MinLen: -1}, 44100},
		{"zero rate", DefaultSplitOptions(), 0},
		{"sub-sample step", SplitOptions{Seconds: 1, Overlap: 0.99}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Error(t, tt.opts.Validate(tt.rate))
			_, err := SplitSignal(ramp(10), tt.rate, tt.opts)
			require.Error(t, err)
		})
	}

	require.NoError(t, DefaultSplitOptions().Validate(44100))
}
