package detector

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// dilate replaces each pixel by the maximum of its size x size neighbourhood.
// Neighbours outside the image are ignored.
func dilate(m *mat.Dense, size int) *mat.Dense {
	return rankFilter(m, size, math.Inf(-1), math.Max)
}

// erode replaces each pixel by the minimum of its size x size neighbourhood.
// Neighbours outside the image are ignored.
func erode(m *mat.Dense, size int) *mat.Dense {
	return rankFilter(m, size, math.Inf(1), math.Min)
}

// closing is a dilation followed by an erosion with the same square kernel
func closing(m *mat.Dense, size int) *mat.Dense {
	return erode(dilate(m, size), size)
}

func rankFilter(m *mat.Dense, size int, init float64, pick func(a, b float64) float64) *mat.Dense {
	rows, cols := m.Dims()
	half := size / 2
	out := mat.NewDense(rows, cols, nil)
	for r := range rows {
		for c := range cols {
			acc := init
			for rr := max(0, r-half); rr <= min(rows-1, r+half); rr++ {
				for cc := max(0, c-half); cc <= min(cols-1, c+half); cc++ {
					acc = pick(acc, m.At(rr, cc))
				}
			}
			out.Set(r, c, acc)
		}
	}
	return out
}

// binaryDilation1D dilates a binary signal with the structure [1 1 1],
// repeating iterations times. Values beyond the ends count as false.
func binaryDilation1D(in []bool, iterations int) []bool {
	cur := slices.Clone(in)
	next := make([]bool, len(in))
	for range iterations {
		for i := range cur {
			next[i] = cur[i] ||
				(i > 0 && cur[i-1]) ||
				(i < len(cur)-1 && cur[i+1])
		}
		cur, next = next, cur
	}
	return cur
}
