package myaudio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavBufferFrames is the number of frames decoded per PCMBuffer call
const wavBufferFrames = 65536

func readWAVInfo(file *os.File) (AudioInfo, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		return AudioInfo{}, errors.New("invalid WAV file format")
	}
	if err := validateWAVFormat(decoder); err != nil {
		return AudioInfo{}, err
	}

	if err := decoder.FwdToPCM(); err != nil {
		return AudioInfo{}, fmt.Errorf("locating PCM chunk: %w", err)
	}
	bytesPerFrame := int(decoder.BitDepth/8) * int(decoder.NumChans)
	totalSamples := int(decoder.PCMLen()) / bytesPerFrame

	return AudioInfo{
		SampleRate:   int(decoder.SampleRate),
		TotalSamples: totalSamples,
		NumChannels:  int(decoder.NumChans),
		BitDepth:     int(decoder.BitDepth),
	}, nil
}

func validateWAVFormat(decoder *wav.Decoder) error {
	switch decoder.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth: %d", decoder.BitDepth)
	}
	if decoder.NumChans < 1 {
		return fmt.Errorf("unsupported number of channels: %d", decoder.NumChans)
	}
	if decoder.SampleRate == 0 {
		return errors.New("invalid sample rate: 0")
	}
	return nil
}

func readWAV(file *os.File) (Signal, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return Signal{}, errors.New("input is not a valid WAV audio file")
	}
	if err := validateWAVFormat(decoder); err != nil {
		return Signal{}, err
	}

	divisor, err := getAudioDivisor(int(decoder.BitDepth))
	if err != nil {
		return Signal{}, err
	}
	channels := int(decoder.NumChans)

	buf := &audio.IntBuffer{
		Data:   make([]int, wavBufferFrames*channels),
		Format: &audio.Format{SampleRate: int(decoder.SampleRate), NumChannels: channels},
	}

	var samples []float32
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return Signal{}, err
		}
		if n == 0 {
			break
		}
		samples = appendDownmixed(samples, buf.Data[:n], channels, divisor, decoder.BitDepth == 8)
	}

	return Signal{Samples: samples, SampleRate: int(decoder.SampleRate)}, nil
}

// appendDownmixed converts interleaved PCM to float32 and averages the channels.
// 8-bit WAV data is unsigned and centred on 128.
func appendDownmixed(dst []float32, data []int, channels int, divisor float32, unsigned8 bool) []float32 {
	for i := 0; i+channels <= len(data); i += channels {
		var sum float32
		for c := range channels {
			v := data[i+c]
			if unsigned8 {
				v -= 128
			}
			sum += float32(v) / divisor
		}
		dst = append(dst, sum/float32(channels))
	}
	return dst
}
