// Package evaluation runs a trained checkpoint over a dataset split and
// aggregates loss, metrics and confusion matrices.
package evaluation

import (
	"context"
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/birdnet-spec/internal/conf"
	"github.com/tphakala/birdnet-spec/internal/dataset"
	"github.com/tphakala/birdnet-spec/internal/errors"
	"github.com/tphakala/birdnet-spec/internal/logger"
	"github.com/tphakala/birdnet-spec/internal/metrics"
	"github.com/tphakala/birdnet-spec/internal/model"
)

const (
	// LossKey is the summary key holding the batch loss
	LossKey = "loss"

	testCMDir = "cm_test"
	valCMDir  = "cm_val"
)

// Batcher yields batches in a fixed order
type Batcher interface {
	NumBatches() int
	ForEach(ctx context.Context, fn func(i int, b dataset.Batch) error) error
}

// ScalarLogger receives per-step scalar summaries
type ScalarLogger interface {
	Scalar(tag string, value float64, step int) error
}

// Options controls a single Evaluate call.
type Options struct {
	Params     *conf.Params
	NumClasses int
	Epoch      int
	// Eva marks a final test evaluation. It selects cm_test/cm.npy over
	// the per-epoch cm_val/cmNNN.npy file.
	Eva bool
	// CMDir is the base directory for confusion matrices, "." when empty
	CMDir string
	// Summary is optional
	Summary ScalarLogger
}

// Evaluate runs clf over every batch and returns the mean of the per-batch
// summaries. Each summary holds the metric values and the batch loss.
func Evaluate(ctx context.Context, clf model.Classifier, lossFn metrics.LossFunc, data Batcher,
	metricSet metrics.MetricSet, opts Options) (metrics.Summary, error) {
	if opts.Params == nil {
		return nil, errors.Newf("evaluation params are required").
			Component("evaluation").
			Category(errors.CategoryValidation).
			Build()
	}
	steps := max(1, opts.Params.SaveSummarySteps)
	singleLabel := opts.Params.IsSingleLabel()
	numBatches := data.NumBatches()
	log := GetLogger()

	var summaries []metrics.Summary
	var confusion []*mat.Dense

	err := data.ForEach(ctx, func(i int, b dataset.Batch) error {
		logits, err := clf.Predict(b.Inputs)
		if err != nil {
			return err
		}
		if err := checkShape(logits, b, opts.NumClasses); err != nil {
			return err
		}

		summary := metricSet.Evaluate(logits, b.Labels, opts.Params.Threshold)
		summary[LossKey] = lossFn(logits, b.Labels)
		summaries = append(summaries, summary)

		if i%steps == 0 && opts.Summary != nil {
			niter := opts.Epoch*numBatches + i
			for tag, value := range summary {
				if err := opts.Summary.Scalar(tag, value, niter); err != nil {
					return err
				}
			}
		}

		if singleLabel {
			confusion = append(confusion, metrics.ConfusionMatrix(logits, b.Labels, opts.NumClasses))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.New(err).
				Component("evaluation").
				Category(errors.CategoryCancellation).
				Build()
		}
		return nil, err
	}

	if len(summaries) == 0 {
		return nil, errors.Newf("no batches to evaluate").
			Component("evaluation").
			Category(errors.CategoryNotFound).
			Build()
	}

	if singleLabel {
		path := confusionPath(opts.CMDir, opts.Eva, opts.Epoch)
		if err := metrics.SaveNPY(path, metrics.AverageMatrices(confusion)); err != nil {
			return nil, err
		}
		log.Debug("saved confusion matrix", logger.String("path", path))
	}

	mean := metrics.Mean(summaries)
	log.Info("- Eval metrics : "+metrics.FormatMetrics(mean), logger.Float64(LossKey, mean[LossKey]))
	return mean, nil
}

// confusionPath returns cm_test/cm.npy for test runs and cm_val/cmNNN.npy
// for validation epochs
func confusionPath(base string, eva bool, epoch int) string {
	if base == "" {
		base = "."
	}
	if eva {
		return filepath.Join(base, testCMDir, "cm.npy")
	}
	return filepath.Join(base, valCMDir, fmt.Sprintf("cm%03d.npy", epoch))
}

func checkShape(logits [][]float32, b dataset.Batch, numClasses int) error {
	if len(logits) != b.Size() {
		return errors.Newf("model returned %d rows for a batch of %d", len(logits), b.Size()).
			Component("evaluation").
			Category(errors.CategoryProcessing).
			Build()
	}
	for i, row := range logits {
		if len(row) != numClasses || len(b.Labels[i]) != numClasses {
			return errors.Newf("sample %d has %d logits and %d labels, want %d",
				i, len(row), len(b.Labels[i]), numClasses).
				Component("evaluation").
				Category(errors.CategoryProcessing).
				Context("file", b.Files[i]).
				Build()
		}
	}
	return nil
}
