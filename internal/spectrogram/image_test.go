package spectrogram

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestToImageLayout(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(2, 3, []float64{
		0, 1, 2,
		3, 4, 5,
	})
	img := ToImage(m, ImageOptions{Scale: ScaleLinear})

	require.Equal(t, 3, img.Bounds().Dx())
	require.Equal(t, 2, img.Bounds().Dy())
	// row 0 is drawn at the bottom
	assert.Equal(t, uint8(0), img.GrayAt(0, 1).Y)
	assert.Equal(t, uint8(255), img.GrayAt(2, 0).Y)
	assert.Equal(t, uint8(153), img.GrayAt(0, 0).Y)
}

func TestToImageConstant(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(2, 2, []float64{7, 7, 7, 7})
	img := ToImage(m, ImageOptions{})
	for _, px := range img.Pix {
		assert.Equal(t, uint8(0), px)
	}
}

func TestPowerToDB(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(2, 2, []float64{
		1, 0.1,
		1e-20, 0.01,
	})
	db := PowerToDB(m, 80)
	assert.InDelta(t, 0.0, db.At(0, 0), 1e-9)
	assert.InDelta(t, -10.0, db.At(0, 1), 1e-9)
	assert.InDelta(t, -80.0, db.At(1, 0), 1e-9)
	assert.InDelta(t, -20.0, db.At(1, 1), 1e-9)

	unclipped := PowerToDB(m, 0)
	assert.InDelta(t, -100.0, unclipped.At(1, 0), 1e-9)
}

func TestNormalizeMax(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(1, 3, []float64{1, 2, 4})
	NormalizeMax(m)
	assert.Equal(t, []float64{0.25, 0.5, 1}, m.RawRowView(0))

	zero := mat.NewDense(1, 2, nil)
	NormalizeMax(zero)
	assert.Equal(t, []float64{0, 0}, zero.RawRowView(0))
}

func TestPNGRoundTrip(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(3, 4, []float64{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	})
	path := filepath.Join(t.TempDir(), "nested", "spec.png")
	require.NoError(t, SavePNG(path, m, ImageOptions{}))

	loaded, err := LoadPNG(path)
	require.NoError(t, err)
	rows, cols := loaded.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 4, cols)
	for r := range rows {
		for c := range cols {
			assert.InDelta(t, m.At(r, c)/11, loaded.At(r, c), 1.0/255)
		}
	}
}

func TestLoadPNGErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadPNG(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}

func TestParseImageScale(t *testing.T) {
	t.Parallel()

	s, err := ParseImageScale("")
	require.NoError(t, err)
	assert.Equal(t, ScaleLinear, s)

	s, err = ParseImageScale("db")
	require.NoError(t, err)
	assert.Equal(t, ScaleDB, s)

	_, err = ParseImageScale("log")
	require.Error(t, err)
}
