package detector

import (
	"slices"

	"gonum.org/v1/gonum/mat"
)

// median returns the median of values, averaging the two middle elements when
// the count is even. values is reordered.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	slices.Sort(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

// rowMedians returns the median of each row of m
func rowMedians(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, rows)
	buf := make([]float64, cols)
	for r := range rows {
		mat.Row(buf, r, m)
		out[r] = median(buf)
	}
	return out
}

// colMedians returns the median of each column of m
func colMedians(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, cols)
	buf := make([]float64, rows)
	for c := range cols {
		mat.Col(buf, c, m)
		out[c] = median(buf)
	}
	return out
}

// medianBlur applies a size x size median filter. Pixels outside the image
// take the value of the nearest edge pixel.
func medianBlur(m *mat.Dense, size int) *mat.Dense {
	rows, cols := m.Dims()
	half := size / 2
	out := mat.NewDense(rows, cols, nil)
	window := make([]float64, 0, size*size)

	for r := range rows {
		for c := range cols {
			window = window[:0]
			for dr := -half; dr <= half; dr++ {
				rr := clamp(r+dr, rows)
				for dc := -half; dc <= half; dc++ {
					window = append(window, m.At(rr, clamp(c+dc, cols)))
				}
			}
			out.Set(r, c, median(window))
		}
	}
	return out
}

func clamp(i, n int) int {
	return max(0, min(i, n-1))
}
