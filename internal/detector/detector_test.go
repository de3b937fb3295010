package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// fill returns a rows x cols matrix with every value set to v
func fill(rows, cols int, v float64) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	m.Apply(func(_, _ int, _ float64) float64 { return v }, m)
	return m
}

// paint sets the block [r0,r1) x [c0,c1) of m to v
func paint(m *mat.Dense, r0, r1, c0, c1 int, v float64) {
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			m.Set(r, c, v)
		}
	}
}

func TestMedian(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"odd", []float64{5, 1, 3}, 3},
		{"even averages middle pair", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, median(tt.values), 1e-12)
		})
	}
}

func TestRowAndColMedians(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(2, 4, []float64{
		1, 2, 3, 4,
		9, 9, 0, 0,
	})
	assert.Equal(t, []float64{2.5, 4.5}, rowMedians(m))
	assert.Equal(t, []float64{5, 5.5, 1.5, 2}, colMedians(m))
	// input is untouched
	assert.Equal(t, 9.0, m.At(1, 0))
}

func TestMedianBlurReplicatesBorder(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(3, 3, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	out := medianBlur(m, 3)
	assert.Equal(t, 2.0, out.At(0, 0))
	assert.Equal(t, 5.0, out.At(1, 1))
	assert.Equal(t, 8.0, out.At(2, 2))
}

func TestMedianBlurRemovesSpike(t *testing.T) {
	t.Parallel()

	m := fill(7, 7, 1)
	m.Set(3, 3, 1000)
	out := medianBlur(m, 5)
	assert.Equal(t, 1.0, mat.Max(out))
}

func TestClosingFillsGaps(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(5, 9, nil)
	paint(m, 2, 3, 0, 4, 1)
	paint(m, 2, 3, 5, 9, 1)

	closed := closing(m, 5)
	// out-of-image neighbours are ignored, so the erosion keeps the border
	assert.Equal(t, 1.0, mat.Min(closed))
}

func TestClosingKeepsIsolatedPoint(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(9, 9, nil)
	m.Set(4, 4, 1)
	closed := closing(m, 5)
	assert.Equal(t, 1.0, closed.At(4, 4))
	assert.Equal(t, 1.0, mat.Sum(closed))
}

func TestDilateErode(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(5, 5, nil)
	m.Set(0, 0, 1)
	d := dilate(m, 3)
	assert.Equal(t, 4.0, mat.Sum(d))

	e := erode(fill(3, 3, 1), 5)
	assert.Equal(t, 9.0, mat.Sum(e))
}

func TestBinaryDilation1D(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         []bool
		iterations int
		want       []bool
	}{
		{
			name:       "centre grows by two",
			in:         []bool{false, false, false, false, true, false, false, false, false},
			iterations: 2,
			want:       []bool{false, false, true, true, true, true, true, false, false},
		},
		{
			name:       "edge does not wrap",
			in:         []bool{true, false, false, false},
			iterations: 2,
			want:       []bool{true, true, true, false},
		},
		{
			name:       "zero iterations",
			in:         []bool{false, true, false},
			iterations: 0,
			want:       []bool{false, true, false},
		},
		{
			name:       "empty",
			in:         []bool{},
			iterations: 2,
			want:       []bool{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, binaryDilation1D(tt.in, tt.iterations))
		})
	}
}

// birdSpec returns a 128 x 60 spectrogram with a loud block over 30 rows
// (mel rows 40..69) and 10 columns on a flat noise floor.
func birdSpec() *mat.Dense {
	m := fill(128, 60, 1)
	paint(m, 40, 70, 20, 30, 100)
	return m
}

func TestClassify(t *testing.T) {
	t.Parallel()

	spike := fill(128, 60, 1)
	paint(spike, 60, 63, 5, 8, 100)

	tests := []struct {
		name      string
		spec      *mat.Dense
		threshold float64
		wantBird  bool
		wantRows  int
	}{
		{"silence", mat.NewDense(128, 60, nil), DefaultThreshold, false, 0},
		{"flat noise", fill(128, 60, 1), DefaultThreshold, false, 0},
		{"short spike is blurred away", spike, DefaultThreshold, false, 0},
		{"bird band", birdSpec(), DefaultThreshold, true, 34},
		{"threshold equal to count", birdSpec(), 34, true, 34},
		{"threshold above count", birdSpec(), 35, false, 34},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := Classify(tt.spec, tt.threshold)
			assert.Equal(t, tt.wantBird, d.Bird)
			assert.Equal(t, tt.wantRows, d.RThresh)
			require.NotNil(t, d.Mask)
			rows, cols := d.Mask.Dims()
			assert.Equal(t, 80, rows)
			assert.Equal(t, 60, cols)
		})
	}
}

func TestClassifyClipsBand(t *testing.T) {
	t.Parallel()

	d := Classify(fill(90, 10, 1), DefaultThreshold)
	require.NotNil(t, d.Mask)
	rows, _ := d.Mask.Dims()
	assert.Equal(t, 70, rows)

	empty := Classify(fill(15, 10, 1), DefaultThreshold)
	assert.False(t, empty.Bird)
	assert.Nil(t, empty.Mask)
	assert.True(t, Classify(fill(15, 10, 1), 0).Bird)
}

func TestHasBirdMatchesClassify(t *testing.T) {
	t.Parallel()

	bird, mask := HasBird(birdSpec(), DefaultThreshold)
	assert.True(t, bird)
	require.NotNil(t, mask)
	for _, v := range mask.RawMatrix().Data {
		assert.Contains(t, []float64{0, 1}, v)
	}
}

func TestClassifyDoesNotModifyInput(t *testing.T) {
	t.Parallel()

	spec := birdSpec()
	before := mat.DenseCopyOf(spec)
	Classify(spec, DefaultThreshold)
	assert.True(t, mat.Equal(before, spec))
}
