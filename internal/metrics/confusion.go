package metrics

import (
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/birdnet-spec/internal/errors"
)

// ConfusionMatrix counts argmax predictions against argmax targets.
// Rows are true classes and columns are predicted classes.
func ConfusionMatrix(logits, labels [][]float32, numClasses int) *mat.Dense {
	cm := mat.NewDense(numClasses, numClasses, nil)
	for i, row := range logits {
		truth, pred := argmax(labels[i]), argmax(row)
		cm.Set(truth, pred, cm.At(truth, pred)+1)
	}
	return cm
}

// AverageMatrices returns the element-wise mean, or nil for no matrices
func AverageMatrices(ms []*mat.Dense) *mat.Dense {
	if len(ms) == 0 {
		return nil
	}
	r, c := ms[0].Dims()
	avg := mat.NewDense(r, c, nil)
	for _, m := range ms {
		avg.Add(avg, m)
	}
	avg.Scale(1/float64(len(ms)), avg)
	return avg
}

// SaveNPY writes m to path in NumPy .npy format, creating parent directories
func SaveNPY(path string, m *mat.Dense) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return npyError(err, path)
	}
	f, err := os.Create(path)
	if err != nil {
		return npyError(err, path)
	}
	if err := npyio.Write(f, m); err != nil {
		_ = f.Close()
		return npyError(err, path)
	}
	if err := f.Close(); err != nil {
		return npyError(err, path)
	}
	return nil
}

// LoadNPY reads a matrix written by SaveNPY
func LoadNPY(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, npyError(err, path)
	}
	defer func() { _ = f.Close() }()

	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, npyError(err, path)
	}
	return &m, nil
}

func npyError(err error, path string) error {
	return errors.New(err).
		Component("metrics").
		Category(errors.CategoryFileIO).
		FileContext(path).
		Build()
}
