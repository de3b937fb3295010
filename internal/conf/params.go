package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/tphakala/birdnet-spec/internal/errors"
)

// ParamsFileName is the hyperparameter file expected inside a model directory.
const ParamsFileName = "params.json"

// Params holds the hyperparameters stored next to a checkpoint.
// Optional keys are pointers so that presence can be told apart from zero values.
type Params struct {
	Model            int            `mapstructure:"model" json:"model"`
	BatchSize        int            `mapstructure:"batch_size" json:"batch_size"`
	SaveSummarySteps int            `mapstructure:"save_summary_steps" json:"save_summary_steps"`
	Threshold        float64        `mapstructure:"threshold" json:"threshold"`
	NumWorkers       int            `mapstructure:"num_workers" json:"num_workers"`
	IfSingle         *int           `mapstructure:"if_single" json:"if_single,omitempty"`
	LossFn           *int           `mapstructure:"loss_fn" json:"loss_fn,omitempty"`
	Extra            map[string]any `mapstructure:",remain" json:"-"`
}

// IsSingleLabel reports whether the model was trained as a single-label classifier.
func (p *Params) IsSingleLabel() bool {
	return p.IfSingle != nil && *p.IfSingle == 1
}

// LossFunction returns the configured loss_fn id, or 0 when the key is absent.
func (p *Params) LossFunction() int {
	if p.LossFn == nil {
		return 0
	}
	return *p.LossFn
}

// LoadParams reads params.json from modelDir. A missing file is an error.
func LoadParams(modelDir string) (*Params, error) {
	path := filepath.Join(modelDir, ParamsFileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, errors.Newf("no json configuration file found at %s", path).
			Category(errors.CategoryConfiguration).
			FileContext(path).
			Build()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("threshold", 0.5)
	v.SetDefault("save_summary_steps", 1)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.New(fmt.Errorf("error reading %s: %w", path, err)).
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}

	params := &Params{}
	if err := v.Unmarshal(params); err != nil {
		return nil, errors.New(fmt.Errorf("error decoding %s: %w", path, err)).
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// Validate checks the values the evaluation loop depends on.
func (p *Params) Validate() error {
	ve := ValidationError{}
	if p.BatchSize <= 0 {
		ve.Errors = append(ve.Errors, "batch_size must be positive")
	}
	if p.SaveSummarySteps <= 0 {
		ve.Errors = append(ve.Errors, "save_summary_steps must be positive")
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("threshold %.3f must be within [0, 1]", p.Threshold))
	}
	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Category(errors.CategoryValidation).
			Context("errors", strings.Join(ve.Errors, "; ")).
			Build()
	}
	return nil
}
