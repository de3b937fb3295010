package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectLoss(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		single bool
		lossFn int
		want   string
	}{
		{"single label", true, LossFnWARP, LossCrossEntropy},
		{"warp", false, LossFnWARP, LossWARP},
		{"lsep", false, LossFnLSEP, LossLSEP},
		{"absent", false, 0, LossBCE},
		{"unknown id", false, 7, LossBCE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name, fn := SelectLoss(tt.single, tt.lossFn)
			assert.Equal(t, tt.want, name)
			assert.NotNil(t, fn)
		})
	}
}

func TestBCEWithLogits(t *testing.T) {
	t.Parallel()

	// zero logits give log(2) regardless of the target
	assert.InDelta(t, math.Log(2), BCEWithLogits([][]float32{{0, 0}}, [][]float32{{1, 0}}), 1e-12)

	logits := [][]float32{{2, -1}}
	labels := [][]float32{{1, 0}}
	want := (math.Log1p(math.Exp(-2)) + math.Log1p(math.Exp(-1))) / 2
	assert.InDelta(t, want, BCEWithLogits(logits, labels), 1e-9)

	// large logits stay finite
	assert.InDelta(t, 100.0, BCEWithLogits([][]float32{{100}}, [][]float32{{0}}), 1e-9)
	assert.Zero(t, BCEWithLogits(nil, nil))
}

func TestCrossEntropy(t *testing.T) {
	t.Parallel()

	logits := [][]float32{{0, 0, 0}}
	labels := [][]float32{{0, 1, 0}}
	assert.InDelta(t, math.Log(3), CrossEntropy(logits, labels), 1e-12)

	confident := [][]float32{{0, 50, 0}}
	assert.InDelta(t, 0.0, CrossEntropy(confident, labels), 1e-9)
	assert.Zero(t, CrossEntropy(nil, nil))
}

func TestLSEP(t *testing.T) {
	t.Parallel()

	logits := [][]float32{{1, 0, 2}}
	labels := [][]float32{{1, 0, 0}}
	// positive 1, negatives 0 and 2
	want := math.Log1p(math.Exp(-1) + math.Exp(1))
	assert.InDelta(t, want, LSEP(logits, labels), 1e-9)

	// no negatives contributes zero
	assert.InDelta(t, 0.0, LSEP([][]float32{{3, 4}}, [][]float32{{1, 1}}), 1e-12)
}

func TestWARP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		logits [][]float32
		labels [][]float32
		want   float64
	}{
		{
			name:   "well separated",
			logits: [][]float32{{5, 0, 0}},
			labels: [][]float32{{1, 0, 0}},
			want:   0,
		},
		{
			name:   "one violator",
			logits: [][]float32{{0.5, 0, -5}},
			labels: [][]float32{{1, 0, 0}},
			want:   0.5,
		},
		{
			name:   "two violators",
			logits: [][]float32{{0, 0, 0}},
			labels: [][]float32{{1, 0, 0}},
			want:   1.5,
		},
		{
			name:   "no positives",
			logits: [][]float32{{0, 0}},
			labels: [][]float32{{0, 0}},
			want:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, WARP(tt.logits, tt.labels), 1e-9)
		})
	}
}

func TestArgmax(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, argmax([]float32{0, 1, 3, 3}))
	assert.Equal(t, 0, argmax([]float32{1, 1}))
	assert.InDelta(t, 0.5, sigmoid(0), 1e-12)
}
