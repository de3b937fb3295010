package model

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-spec/internal/errors"
)

func TestArchitectureFromID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   int
		want Architecture
		name string
	}{
		{1, DenseNetBase, "DenseNetBase"},
		{2, SqueezeNetBase, "SqueezeNetBase"},
		{3, InceptionBase, "InceptionBase"},
		{4, InceptionResnetBase, "InceptionResnetBase"},
		{5, ResNet14, "ResNet14"},
		{6, DenseBR, "DenseBR"},
		{7, ResBR, "ResBR"},
		{8, DenseNetBLSTM, "DenseNetBLSTM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ArchitectureFromID(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.String())
		})
	}
}

func TestArchitectureFromIDUnknown(t *testing.T) {
	t.Parallel()

	for _, id := range []int{0, 9, -1} {
		_, err := ArchitectureFromID(id)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	}
	assert.Equal(t, "Architecture(42)", Architecture(42).String())
}

func TestFillInput(t *testing.T) {
	t.Parallel()

	tensor := make([]float32, 4)
	require.NoError(t, fillInput(tensor, []float32{1, 2, 3, 4}))
	assert.Equal(t, []float32{1, 2, 3, 4}, tensor)

	rgb := make([]float32, 6)
	require.NoError(t, fillInput(rgb, []float32{0.5, 1}))
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 1, 1, 1}, rgb)

	err := fillInput(make([]float32, 5), []float32{1, 2})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	require.Error(t, fillInput(make([]float32, 3), nil))
}

func TestDetermineThreadCount(t *testing.T) {
	t.Parallel()

	cpus := runtime.NumCPU()
	assert.Equal(t, 1, determineThreadCount(1))
	assert.Equal(t, cpus, determineThreadCount(cpus+10))
	auto := determineThreadCount(0)
	assert.GreaterOrEqual(t, auto, 1)
	assert.LessOrEqual(t, auto, cpus)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "best.tflite"), DenseNetBase, 10, 1)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelLoad))

	garbage := filepath.Join(dir, "garbage.tflite")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a flatbuffer"), 0o644))
	_, err = Load(garbage, DenseNetBase, 10, 1)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelInit))
}
