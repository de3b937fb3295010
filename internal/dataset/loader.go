package dataset

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/birdnet-spec/internal/errors"
)

const defaultPrefetch = 2

// Batch is a group of decoded images with multi-hot labels.
// Inputs are grayscale pixels in row-major order scaled to [0,1].
type Batch struct {
	Inputs [][]float32
	Labels [][]float32
	Files  []string
	Height int
	Width  int
}

// Size returns the number of samples in the batch
func (b Batch) Size() int {
	return len(b.Inputs)
}

// Loader decodes a Dataset in fixed-size batches
type Loader struct {
	ds        *Dataset
	batchSize int
	workers   int
	prefetch  int
}

// NewLoader creates a Loader. workers bounds concurrent image decoding.
func NewLoader(ds *Dataset, batchSize, workers int) (*Loader, error) {
	if batchSize <= 0 {
		return nil, errors.Newf("batch size must be positive, got %d", batchSize).
			Component("dataset").
			Category(errors.CategoryValidation).
			Build()
	}
	return &Loader{
		ds:        ds,
		batchSize: batchSize,
		workers:   max(1, workers),
		prefetch:  defaultPrefetch,
	}, nil
}

// NumBatches returns the number of batches, the last one may be short
func (l *Loader) NumBatches() int {
	return (l.ds.Len() + l.batchSize - 1) / l.batchSize
}

// ForEach calls fn for every batch in order. Batches are decoded ahead of
// fn in a separate goroutine. The first error from decoding or fn stops the
// iteration and is returned.
func (l *Loader) ForEach(ctx context.Context, fn func(i int, b Batch) error) error {
	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan Batch, l.prefetch)

	g.Go(func() error {
		defer close(batches)
		for i := range l.NumBatches() {
			b, err := l.load(gctx, i)
			if err != nil {
				return err
			}
			select {
			case batches <- b:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		i := 0
		for b := range batches {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(i, b); err != nil {
				return err
			}
			i++
		}
		return nil
	})

	return g.Wait()
}

// load decodes batch i
func (l *Loader) load(ctx context.Context, i int) (Batch, error) {
	start := i * l.batchSize
	end := min(start+l.batchSize, l.ds.Len())
	items := l.ds.Items[start:end]

	b := Batch{
		Inputs: make([][]float32, len(items)),
		Labels: make([][]float32, len(items)),
		Files:  make([]string, len(items)),
	}
	heights := make([]int, len(items))
	widths := make([]int, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for j, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pixels, h, w, err := decodeImage(item.Path)
			if err != nil {
				return err
			}
			b.Inputs[j] = pixels
			b.Labels[j] = multiHot(item.Labels, l.ds.NumClasses)
			b.Files[j] = item.Path
			heights[j], widths[j] = h, w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}

	if len(items) > 0 {
		b.Height, b.Width = heights[0], widths[0]
	}
	for j := range items {
		if heights[j] != b.Height || widths[j] != b.Width {
			return Batch{}, errors.Newf("image %s is %dx%d, batch images are %dx%d",
				b.Files[j], widths[j], heights[j], b.Width, b.Height).
				Component("dataset").
				Category(errors.CategoryValidation).
				FileContext(b.Files[j]).
				Build()
		}
	}
	return b, nil
}

func multiHot(labels []int, numClasses int) []float32 {
	out := make([]float32, numClasses)
	for _, l := range labels {
		out[l] = 1
	}
	return out
}

// decodeImage reads a PNG as grayscale values in [0,1]
func decodeImage(path string) ([]float32, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, errors.New(err).
			Component("dataset").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	if err != nil {
		return nil, 0, 0, errors.New(fmt.Errorf("decode png: %w", err)).
			Component("dataset").
			Category(errors.CategoryImage).
			FileContext(path).
			Build()
	}
	pixels, h, w := grayPixels(img)
	return pixels, h, w, nil
}

func grayPixels(img image.Image) (pixels []float32, height, width int) {
	bounds := img.Bounds()
	h, w := bounds.Dy(), bounds.Dx()
	out := make([]float32, 0, h*w)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			out = append(out, float32(g.Y)/255)
		}
	}
	return out, h, w
}
