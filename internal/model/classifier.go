package model

// Classifier produces raw logits for a batch of inputs
type Classifier interface {
	// Predict returns one logit vector of NumClasses values per input
	Predict(inputs [][]float32) ([][]float32, error)
	NumClasses() int
	Close() error
}
