package metrics

import (
	"math"
)

// LossFunc returns the mean loss of a batch of logits against its targets
type LossFunc func(logits, labels [][]float32) float64

// Loss names as reported in summaries
const (
	LossBCE          = "bce_with_logits"
	LossCrossEntropy = "cross_entropy"
	LossWARP         = "warp"
	LossLSEP         = "lsep"
)

// Loss function ids used by the loss_fn hyperparameter
const (
	LossFnWARP = 1
	LossFnLSEP = 2
)

// SelectLoss picks the loss for a model. Single-label models use cross
// entropy. Multi-label models use WARP or LSEP when lossFn selects them and
// binary cross entropy otherwise.
func SelectLoss(singleLabel bool, lossFn int) (string, LossFunc) {
	switch {
	case singleLabel:
		return LossCrossEntropy, CrossEntropy
	case lossFn == LossFnWARP:
		return LossWARP, WARP
	case lossFn == LossFnLSEP:
		return LossLSEP, LSEP
	default:
		return LossBCE, BCEWithLogits
	}
}

// BCEWithLogits is the element-wise binary cross entropy on logits,
// averaged over every element of the batch.
func BCEWithLogits(logits, labels [][]float32) float64 {
	var sum float64
	var n int
	for i, row := range logits {
		for j, x := range row {
			xf, y := float64(x), float64(labels[i][j])
			sum += math.Max(xf, 0) - xf*y + math.Log1p(math.Exp(-math.Abs(xf)))
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// CrossEntropy is the softmax cross entropy against the argmax of each
// target row, averaged over the batch.
func CrossEntropy(logits, labels [][]float32) float64 {
	if len(logits) == 0 {
		return 0
	}
	var sum float64
	for i, row := range logits {
		target := argmax(labels[i])
		sum += logSumExp(row) - float64(row[target])
	}
	return sum / float64(len(logits))
}

// LSEP is the log-sum-exp pairwise ranking loss:
// log(1 + sum over positive p and negative n of exp(x_n - x_p)).
func LSEP(logits, labels [][]float32) float64 {
	if len(logits) == 0 {
		return 0
	}
	var sum float64
	for i, row := range logits {
		pos, neg := split(row, labels[i])
		var pairs float64
		for _, p := range pos {
			for _, n := range neg {
				pairs += math.Exp(n - p)
			}
		}
		sum += math.Log1p(pairs)
	}
	return sum / float64(len(logits))
}

// WARP is a deterministic weighted approximate-rank pairwise loss. For each
// positive label the negatives violating the unit margin are counted, the
// rank weight is the harmonic number of that count and the loss is the
// weight times the mean margin violation. Positives are averaged per sample
// and samples are averaged over the batch.
func WARP(logits, labels [][]float32) float64 {
	if len(logits) == 0 {
		return 0
	}
	var sum float64
	for i, row := range logits {
		pos, neg := split(row, labels[i])
		if len(pos) == 0 || len(neg) == 0 {
			continue
		}
		var sample float64
		for _, p := range pos {
			var violation float64
			violators := 0
			for _, n := range neg {
				if m := 1 - p + n; m > 0 {
					violation += m
					violators++
				}
			}
			if violators > 0 {
				sample += harmonic(violators) * violation / float64(violators)
			}
		}
		sum += sample / float64(len(pos))
	}
	return sum / float64(len(logits))
}

func harmonic(n int) float64 {
	var h float64
	for k := 1; k <= n; k++ {
		h += 1 / float64(k)
	}
	return h
}

// split separates logits into positive and negative labels
func split(row, labels []float32) (pos, neg []float64) {
	for j, x := range row {
		if labels[j] > 0.5 {
			pos = append(pos, float64(x))
		} else {
			neg = append(neg, float64(x))
		}
	}
	return pos, neg
}

func logSumExp(row []float32) float64 {
	peak := math.Inf(-1)
	for _, x := range row {
		peak = math.Max(peak, float64(x))
	}
	var sum float64
	for _, x := range row {
		sum += math.Exp(float64(x) - peak)
	}
	return peak + math.Log(sum)
}

// argmax returns the index of the largest value, the first one on ties
func argmax(row []float32) int {
	best := 0
	for j, x := range row {
		if x > row[best] {
			best = j
		}
	}
	return best
}

func sigmoid(x float32) float64 {
	return 1 / (1 + math.Exp(-float64(x)))
}
