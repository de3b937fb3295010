package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/birdnet-spec/internal/conf"
	"github.com/tphakala/birdnet-spec/internal/spectrogram"
)

// Commands share the global viper instance, so tests here run sequentially.

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	root := RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configFile}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeSpectrogram(t *testing.T) string {
	t.Helper()
	m := mat.NewDense(128, 60, nil)
	m.Apply(func(r, c int, _ float64) float64 {
		if r >= 40 && r < 70 && c >= 20 && c < 30 {
			return 100
		}
		return 1
	}, m)
	path := filepath.Join(t.TempDir(), "chunk_0.png")
	require.NoError(t, spectrogram.SavePNG(path, m, spectrogram.ImageOptions{Scale: spectrogram.ScaleLinear, Power: 2}))
	return path
}

func TestHasBirdCommand(t *testing.T) {
	path := writeSpectrogram(t)

	tests := []struct {
		name      string
		args      []string
		want      string
		threshold float64
	}{
		{"default threshold", nil, "bird", conf.DefaultThreshold},
		{"flag overrides config", []string{"--threshold", "1000"}, "noise", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"hasbird"}, tt.args...)
			out, err := execute(t, append(args, path)...)
			require.NoError(t, err)

			fields := strings.Fields(out)
			require.Len(t, fields, 3)
			assert.Equal(t, path, fields[0])
			assert.Equal(t, tt.want, fields[1])
			assert.InDelta(t, tt.threshold, conf.GetSettings().Detector.Threshold, 0)
		})
	}
}

func TestEvaluateCommandFlags(t *testing.T) {
	modelDir := t.TempDir()

	_, err := execute(t, "evaluate", "--model_dir", modelDir, "--num_classes", "12", "--restore_file", "last")
	require.Error(t, err, "model dir has no params.json")

	settings := conf.GetSettings()
	assert.Equal(t, modelDir, settings.Evaluate.ModelDir)
	assert.Equal(t, 12, settings.Evaluate.NumClasses)
	assert.Equal(t, "last", settings.Evaluate.RestoreFile)
	assert.Equal(t, conf.DefaultDataDir, settings.Evaluate.DataDir)
}

func TestSpecCommandRequiresInput(t *testing.T) {
	_, err := execute(t, "spec")
	require.Error(t, err)
}
