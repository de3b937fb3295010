package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-spec/internal/errors"
)

func writeParams(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ParamsFileName), []byte(body), 0o644))
	return dir
}

func TestLoadParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		body         string
		single       bool
		lossFn       int
		hasLossFn    bool
		threshold    float64
		summarySteps int
	}{
		{
			name:         "multi-label defaults",
			body:         `{"model": 1, "batch_size": 16}`,
			threshold:    0.5,
			summarySteps: 1,
		},
		{
			name:         "single label",
			body:         `{"model": 5, "batch_size": 8, "if_single": 1, "save_summary_steps": 10}`,
			single:       true,
			threshold:    0.5,
			summarySteps: 10,
		},
		{
			name:         "if_single present but zero",
			body:         `{"model": 5, "batch_size": 8, "if_single": 0}`,
			threshold:    0.5,
			summarySteps: 1,
		},
		{
			name:         "lsep loss",
			body:         `{"model": 2, "batch_size": 4, "loss_fn": 2, "threshold": 0.3, "learning_rate": 1e-3}`,
			lossFn:       2,
			hasLossFn:    true,
			threshold:    0.3,
			summarySteps: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := LoadParams(writeParams(t, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.single, p.IsSingleLabel())
			assert.Equal(t, tt.lossFn, p.LossFunction())
			assert.Equal(t, tt.hasLossFn, p.LossFn != nil)
			assert.InDelta(t, tt.threshold, p.Threshold, 1e-9)
			assert.Equal(t, tt.summarySteps, p.SaveSummarySteps)
		})
	}
}

func TestLoadParamsKeepsUnknownKeys(t *testing.T) {
	t.Parallel()

	p, err := LoadParams(writeParams(t, `{"batch_size": 2, "learning_rate": 0.001}`))
	require.NoError(t, err)
	assert.Contains(t, p.Extra, "learning_rate")
}

func TestLoadParamsErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadParams(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.Contains(t, err.Error(), "no json configuration file found")

	_, err = LoadParams(writeParams(t, `{"batch_size": 0}`))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Errors, "batch_size must be positive")

	_, err = LoadParams(writeParams(t, `{not json`))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}
