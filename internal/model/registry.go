// Package model loads trained classifier checkpoints and runs inference.
package model

import (
	"fmt"

	"github.com/tphakala/birdnet-spec/internal/errors"
)

// Architecture identifies the network a checkpoint was trained with.
// The numeric values match the model ids used in params.json.
type Architecture int

const (
	DenseNetBase Architecture = iota + 1
	SqueezeNetBase
	InceptionBase
	InceptionResnetBase
	ResNet14
	DenseBR
	ResBR
	DenseNetBLSTM
)

var architectureNames = map[Architecture]string{
	DenseNetBase:        "DenseNetBase",
	SqueezeNetBase:      "SqueezeNetBase",
	InceptionBase:       "InceptionBase",
	InceptionResnetBase: "InceptionResnetBase",
	ResNet14:            "ResNet14",
	DenseBR:             "DenseBR",
	ResBR:               "ResBR",
	DenseNetBLSTM:       "DenseNetBLSTM",
}

func (a Architecture) String() string {
	if name, ok := architectureNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Architecture(%d)", int(a))
}

// ArchitectureFromID returns the architecture registered under id
func ArchitectureFromID(id int) (Architecture, error) {
	a := Architecture(id)
	if _, ok := architectureNames[a]; !ok {
		return 0, errors.Newf("unknown model id %d, expected 1..%d", id, len(architectureNames)).
			Component("model").
			Category(errors.CategoryConfiguration).
			Context("model_id", id).
			Build()
	}
	return a, nil
}
