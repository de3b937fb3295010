package spectrogram

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/birdnet-spec/internal/errors"
)

// ImageScale selects how matrix values map to pixel intensities
type ImageScale string

const (
	ScaleLinear ImageScale = "linear"
	ScaleDB     ImageScale = "db"
)

// dB conversion parameters, matching librosa power_to_db
const (
	dbAmin = 1e-10
	dbTop  = 80.0
)

const imageFilePermissions = 0o644

// ImageOptions controls ToImage
type ImageOptions struct {
	Scale ImageScale
	// Power is the exponent the matrix was computed with; amplitude (1)
	// spectrograms use 20*log10 in dB mode.
	Power float64
}

// ParseImageScale parses a configuration value, empty means linear
func ParseImageScale(s string) (ImageScale, error) {
	switch ImageScale(s) {
	case "", ScaleLinear:
		return ScaleLinear, nil
	case ScaleDB:
		return ScaleDB, nil
	}
	return "", errors.Newf("unknown image scale %q", s).
		Component("spectrogram").
		Category(errors.CategoryValidation).
		Build()
}

// PowerToDB converts a power matrix to decibels relative to its maximum,
// clipping to topDB below the peak. A non-positive topDB disables clipping.
func PowerToDB(m mat.Matrix, topDB float64) *mat.Dense {
	return toDB(m, 10, topDB)
}

func toDB(m mat.Matrix, factor, topDB float64) *mat.Dense {
	out := mat.DenseCopyOf(m)
	raw := out.RawMatrix()
	ref := math.Max(dbAmin, maxValue(out))
	refDB := factor * math.Log10(ref)

	peak := math.Inf(-1)
	out.Apply(func(_, _ int, v float64) float64 {
		db := factor*math.Log10(math.Max(dbAmin, v)) - refDB
		peak = math.Max(peak, db)
		return db
	}, out)
	if topDB > 0 {
		floor := peak - topDB
		for r := range raw.Rows {
			row := raw.Data[r*raw.Stride : r*raw.Stride+raw.Cols]
			for i, v := range row {
				if v < floor {
					row[i] = floor
				}
			}
		}
	}
	return out
}

// NormalizeMax divides m by its maximum in place. An all-zero matrix is left unchanged.
func NormalizeMax(m *mat.Dense) {
	peak := maxValue(m)
	if peak > 0 {
		m.Scale(1/peak, m)
	}
}

func maxValue(m *mat.Dense) float64 {
	raw := m.RawMatrix()
	peak := math.Inf(-1)
	for r := range raw.Rows {
		row := raw.Data[r*raw.Stride : r*raw.Stride+raw.Cols]
		peak = math.Max(peak, floats.Max(row))
	}
	return peak
}

func minValue(m *mat.Dense) float64 {
	raw := m.RawMatrix()
	low := math.Inf(1)
	for r := range raw.Rows {
		row := raw.Data[r*raw.Stride : r*raw.Stride+raw.Cols]
		low = math.Min(low, floats.Min(row))
	}
	return low
}

// ToImage renders m as an 8-bit grayscale image. Values are min-max
// normalised to 0..255 and row 0 (the lowest band) is drawn at the bottom.
func ToImage(m mat.Matrix, opts ImageOptions) *image.Gray {
	work := mat.DenseCopyOf(m)
	if opts.Scale == ScaleDB {
		factor := 10.0
		if opts.Power == 1 {
			factor = 20
		}
		work = toDB(work, factor, dbTop)
	}

	rows, cols := work.Dims()
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	low, high := minValue(work), maxValue(work)
	span := high - low

	for r := range rows {
		y := rows - 1 - r
		for c := range cols {
			var v uint8
			if span > 0 {
				v = uint8(math.Round((work.At(r, c) - low) / span * 255))
			}
			img.SetGray(c, y, color.Gray{Y: v})
		}
	}
	return img
}

// FromImage converts an image back to a matrix with values in [0,1].
// Row 0 of the result is the bottom row of the image.
func FromImage(img image.Image) *mat.Dense {
	b := img.Bounds()
	rows, cols := b.Dy(), b.Dx()
	m := mat.NewDense(rows, cols, nil)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		r := b.Max.Y - 1 - y
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			m.Set(r, x-b.Min.X, float64(g.Y)/255)
		}
	}
	return m
}

// SavePNG writes m to path as a grayscale PNG, creating parent directories.
func SavePNG(path string, m mat.Matrix, opts ImageOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return imageError(err, path, "create_directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, imageFilePermissions)
	if err != nil {
		return imageError(err, path, "create_file")
	}
	if err := png.Encode(f, ToImage(m, opts)); err != nil {
		_ = f.Close()
		return imageError(err, path, "encode_png")
	}
	if err := f.Close(); err != nil {
		return imageError(err, path, "close_file")
	}
	return nil
}

// LoadPNG reads a PNG written by SavePNG
func LoadPNG(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, imageError(err, path, "open_file")
	}
	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	if err != nil {
		return nil, imageError(fmt.Errorf("decode png: %w", err), path, "decode_png")
	}
	return FromImage(img), nil
}

func imageError(err error, path, operation string) error {
	category := errors.CategoryFileIO
	if operation == "encode_png" || operation == "decode_png" {
		category = errors.CategoryImage
	}
	return errors.New(err).
		Component("spectrogram").
		Category(category).
		FileContext(path).
		Context("operation", operation).
		Build()
}
