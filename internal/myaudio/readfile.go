package myaudio

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tphakala/birdnet-spec/internal/errors"
	"github.com/tphakala/birdnet-spec/internal/logger"
)

// AnalysisSampleRate is the rate every signal is converted to before analysis
const AnalysisSampleRate = 44100

// AudioInfo describes an audio file without decoding its samples
type AudioInfo struct {
	SampleRate   int
	TotalSamples int // samples per channel
	NumChannels  int
	BitDepth     int
}

// Signal is a mono float32 signal in [-1, 1] with its sample rate
type Signal struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the signal length in seconds
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// SupportedExtensions lists the file extensions ReadAudioFile can decode
var SupportedExtensions = []string{".wav", ".flac"}

// IsSupported reports whether path has a decodable audio extension
func IsSupported(path string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(path)))
}

// GetAudioInfo returns basic information about the audio file
func GetAudioInfo(path string) (AudioInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return AudioInfo{}, fileError(err, path, "open-audio-file")
	}
	defer file.Close()

	var info AudioInfo
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		info, err = readWAVInfo(file)
	case ".flac":
		info, err = readFLACInfo(file)
	default:
		return AudioInfo{}, unsupportedFormat(path)
	}
	if err != nil {
		return AudioInfo{}, audioError(err, path, "read-audio-info")
	}
	return info, nil
}

// ReadAudioFile decodes path into a mono signal at its native sample rate.
// Multi-channel audio is down-mixed by averaging the channels.
func ReadAudioFile(path string) (Signal, error) {
	file, err := os.Open(path)
	if err != nil {
		return Signal{}, fileError(err, path, "open-audio-file")
	}
	defer file.Close()

	var sig Signal
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		sig, err = readWAV(file)
	case ".flac":
		sig, err = readFLAC(file)
	default:
		return Signal{}, unsupportedFormat(path)
	}
	if err != nil {
		return Signal{}, audioError(err, path, "decode-audio")
	}

	GetLogger().Debug("decoded audio file",
		logger.String("path", path),
		logger.Int("sample_rate", sig.SampleRate),
		logger.Int("samples", len(sig.Samples)))

	return sig, nil
}

// LoadForAnalysis reads path and resamples it to AnalysisSampleRate when needed.
func LoadForAnalysis(path string) (Signal, error) {
	return LoadAtRate(path, AnalysisSampleRate)
}

// LoadAtRate reads path and resamples it to rate when the native rate differs.
func LoadAtRate(path string, rate int) (Signal, error) {
	sig, err := ReadAudioFile(path)
	if err != nil {
		return Signal{}, err
	}
	if sig.SampleRate == rate {
		return sig, nil
	}

	resampled, err := ResampleAudio(sig.Samples, sig.SampleRate, rate)
	if err != nil {
		return Signal{}, audioError(fmt.Errorf("error resampling audio: %w", err), path, "resample-audio")
	}
	GetLogger().Debug("resampled audio",
		logger.String("path", path),
		logger.Int("from_rate", sig.SampleRate),
		logger.Int("to_rate", rate))
	return Signal{Samples: resampled, SampleRate: rate}, nil
}

// getAudioDivisor returns the divisor that scales integer PCM to [-1, 1]
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 8:
		return 128.0, nil
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, errors.Newf("unsupported audio bit depth: %d", bitDepth).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Build()
	}
}

func unsupportedFormat(path string) error {
	return errors.Newf("unsupported audio format: %q", filepath.Ext(path)).
		Component("myaudio").
		Category(errors.CategoryValidation).
		FileContext(path).
		Build()
}

func fileError(err error, path, operation string) error {
	return errors.New(err).
		Component("myaudio").
		Category(errors.CategoryFileIO).
		FileContext(path).
		Context("operation", operation).
		Build()
}

func audioError(err error, path, operation string) error {
	return errors.New(err).
		Component("myaudio").
		Category(errors.CategoryAudio).
		FileContext(path).
		Context("operation", operation).
		Build()
}
