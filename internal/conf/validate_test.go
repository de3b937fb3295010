package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Spec: SpecSettings{
			SampleRate: DefaultSampleRate,
			Seconds:    DefaultSeconds,
			Overlap:    DefaultOverlap,
			MinLen:     DefaultMinLen,
			NFFT:       DefaultNFFT,
			HopLength:  DefaultHopLength,
			NMels:      DefaultNMels,
			Power:      DefaultPower,
			ImageScale: "linear",
		},
		Detector: DetectorSettings{Threshold: DefaultThreshold},
		Evaluate: EvaluateSettings{
			NumClasses:  DefaultNumClasses,
			RestoreFile: DefaultRestoreFile,
			Layout:      "auto",
		},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"zero seconds", func(s *Settings) { s.Spec.Seconds = 0 }, "chunk seconds"},
		{"overlap equals seconds", func(s *Settings) { s.Spec.Overlap = s.Spec.Seconds }, "overlap"},
		{"negative minlen", func(s *Settings) { s.Spec.MinLen = -1 }, "minimum chunk length"},
		{"fmax above nyquist", func(s *Settings) { s.Spec.FMax = 30000 }, "Nyquist"},
		{"fmin above fmax", func(s *Settings) { s.Spec.FMin, s.Spec.FMax = 8000, 4000 }, "fmin"},
		{"bad scale", func(s *Settings) { s.Spec.ImageScale = "log" }, "image scale"},
		{"negative threshold", func(s *Settings) { s.Detector.Threshold = -1 }, "detector threshold"},
		{"zero classes", func(s *Settings) { s.Evaluate.NumClasses = 0 }, "num_classes"},
		{"bad layout", func(s *Settings) { s.Evaluate.Layout = "flat" }, "layout"},
		{"two databases", func(s *Settings) {
			s.Output.SQLite = SQLiteSettings{Enabled: true, Path: "x.db"}
			s.Output.MySQL = MySQLSettings{Enabled: true, Host: "h", Database: "d"}
		}, "cannot both be enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestModelPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "experiments/base_model/best.tflite", ModelPath("experiments/base_model", "best"))
}
