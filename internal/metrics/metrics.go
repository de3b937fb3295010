// Package metrics implements the losses, classification metrics and
// confusion matrices reported by evaluation.
package metrics

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// MetricFunc scores a batch of logits against its targets. threshold applies
// to sigmoid outputs of multi-label metrics.
type MetricFunc func(logits, labels [][]float32, threshold float64) float64

// MetricSet maps metric names to their functions
type MetricSet map[string]MetricFunc

// Summary holds the scalar values of one batch
type Summary map[string]float64

// MultiLabelMetrics returns the metrics for multi-label models
func MultiLabelMetrics() MetricSet {
	return MetricSet{
		"accuracy":      ExactMatch,
		"hamming_score": HammingScore,
		"precision":     Precision,
		"recall":        Recall,
		"f1":            F1,
	}
}

// SingleLabelMetrics returns the metrics for single-label models
func SingleLabelMetrics() MetricSet {
	return MetricSet{
		"accuracy": Accuracy,
		"top5":     Top5,
	}
}

// counts holds micro-averaged confusion counts over a batch
type counts struct {
	tp, fp, fn float64
}

func thresholdCounts(logits, labels [][]float32, threshold float64) counts {
	var c counts
	for i, row := range logits {
		for j, x := range row {
			pred := sigmoid(x) > threshold
			truth := labels[i][j] > 0.5
			switch {
			case pred && truth:
				c.tp++
			case pred:
				c.fp++
			case truth:
				c.fn++
			}
		}
	}
	return c
}

// ExactMatch is the fraction of samples whose thresholded predictions
// equal the target set exactly.
func ExactMatch(logits, labels [][]float32, threshold float64) float64 {
	if len(logits) == 0 {
		return 0
	}
	matches := 0
	for i, row := range logits {
		exact := true
		for j, x := range row {
			if (sigmoid(x) > threshold) != (labels[i][j] > 0.5) {
				exact = false
				break
			}
		}
		if exact {
			matches++
		}
	}
	return float64(matches) / float64(len(logits))
}

// HammingScore is the mean over samples of |pred AND true| / |pred OR true|.
// A sample with empty prediction and target sets scores 1.
func HammingScore(logits, labels [][]float32, threshold float64) float64 {
	if len(logits) == 0 {
		return 0
	}
	var sum float64
	for i, row := range logits {
		var inter, union int
		for j, x := range row {
			pred := sigmoid(x) > threshold
			truth := labels[i][j] > 0.5
			if pred && truth {
				inter++
			}
			if pred || truth {
				union++
			}
		}
		if union == 0 {
			sum++
			continue
		}
		sum += float64(inter) / float64(union)
	}
	return sum / float64(len(logits))
}

// Precision is the micro-averaged precision, 0 when nothing is predicted
func Precision(logits, labels [][]float32, threshold float64) float64 {
	c := thresholdCounts(logits, labels, threshold)
	return ratio(c.tp, c.tp+c.fp)
}

// Recall is the micro-averaged recall, 0 when there are no positives
func Recall(logits, labels [][]float32, threshold float64) float64 {
	c := thresholdCounts(logits, labels, threshold)
	return ratio(c.tp, c.tp+c.fn)
}

// F1 is the harmonic mean of micro precision and recall
func F1(logits, labels [][]float32, threshold float64) float64 {
	c := thresholdCounts(logits, labels, threshold)
	return ratio(2*c.tp, 2*c.tp+c.fp+c.fn)
}

// Accuracy is the fraction of samples whose argmax matches the target argmax
func Accuracy(logits, labels [][]float32, _ float64) float64 {
	return topK(logits, labels, 1)
}

// Top5 is the fraction of samples whose target is among the five largest logits
func Top5(logits, labels [][]float32, _ float64) float64 {
	return topK(logits, labels, 5)
}

func topK(logits, labels [][]float32, k int) float64 {
	if len(logits) == 0 {
		return 0
	}
	hits := 0
	for i, row := range logits {
		target := argmax(labels[i])
		// count logits ranked above the target, earlier indices win ties
		above := 0
		for j, x := range row {
			if x > row[target] || (x == row[target] && j < target) {
				above++
			}
		}
		if above < k {
			hits++
		}
	}
	return float64(hits) / float64(len(logits))
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Evaluate computes every metric in the set for one batch
func (s MetricSet) Evaluate(logits, labels [][]float32, threshold float64) Summary {
	out := make(Summary, len(s)+1)
	for name, fn := range s {
		out[name] = fn(logits, labels, threshold)
	}
	return out
}

// Mean averages each metric over the summaries, taking the metric names
// from the first summary.
func Mean(summaries []Summary) Summary {
	if len(summaries) == 0 {
		return Summary{}
	}
	out := make(Summary, len(summaries[0]))
	for key := range summaries[0] {
		var sum float64
		for _, s := range summaries {
			sum += s[key]
		}
		out[key] = sum / float64(len(summaries))
	}
	return out
}

// FormatMetrics renders metrics as "k: 0.123 ; k2: 4.560" with sorted keys
func FormatMetrics(m map[string]float64) string {
	keys := slices.Sorted(maps.Keys(m))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %05.3f", k, m[k])
	}
	return strings.Join(parts, " ; ")
}
