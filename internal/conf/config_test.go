package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests in this file share the global viper instance and must not run in parallel.

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	resetViper(t)

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	settings, err := Load(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written")

	assert.Equal(t, DefaultSampleRate, settings.Spec.SampleRate)
	assert.InDelta(t, DefaultSeconds, settings.Spec.Seconds, 0)
	assert.InDelta(t, DefaultOverlap, settings.Spec.Overlap, 0)
	assert.InDelta(t, DefaultMinLen, settings.Spec.MinLen, 0)
	assert.Equal(t, DefaultNMels, settings.Spec.NMels)
	assert.InDelta(t, DefaultThreshold, settings.Detector.Threshold, 0)
	assert.Equal(t, DefaultDataDir, settings.Evaluate.DataDir)
	assert.Equal(t, DefaultModelDir, settings.Evaluate.ModelDir)
	assert.Equal(t, DefaultNumClasses, settings.Evaluate.NumClasses)
	assert.Equal(t, DefaultRestoreFile, settings.Evaluate.RestoreFile)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.Same(t, settings, GetSettings())
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	resetViper(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
spec:
  seconds: 5
  overlap: 1
  imagescale: db
detector:
  threshold: 12
evaluate:
  numclasses: 10
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("BIRDNET_SPEC_EVALUATE_RESTOREFILE", "last")

	settings, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, settings.Spec.Seconds, 0)
	assert.InDelta(t, 1.0, settings.Spec.Overlap, 0)
	assert.Equal(t, "db", settings.Spec.ImageScale)
	assert.InDelta(t, 12.0, settings.Detector.Threshold, 0)
	assert.Equal(t, 10, settings.Evaluate.NumClasses)
	assert.Equal(t, "last", settings.Evaluate.RestoreFile)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultHopLength, settings.Spec.HopLength)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	resetViper(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("spec:\n  overlap: 4\n  power: 3\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0], "overlap")
	assert.Contains(t, ve.Errors[0], "power must be 1 or 2")
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	resetViper(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	settings, err := Load(path)
	require.NoError(t, err)

	settings.Spec.Workers = 3
	settings.Output.SQLite.Enabled = true
	require.NoError(t, SaveYAMLConfig(path, settings))

	viper.Reset()
	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Spec.Workers)
	assert.True(t, reloaded.Output.SQLite.Enabled)
}
