package myaudio

import (
	"math"
	"os"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// writeTestWAV writes interleaved PCM data as a WAV file.
func writeTestWAV(t *testing.T, path string, sampleRate, bitDepth, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

// sineInts returns n 16-bit samples of a sine at freq Hz.
func sineInts(n, sampleRate int, freq, amplitude float64) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(math.Round(amplitude * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))))
	}
	return out
}
