package myaudio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tphakala/flac"
)

func readFLACInfo(file *os.File) (AudioInfo, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return AudioInfo{}, err
	}

	return AudioInfo{
		SampleRate:   decoder.SampleRate,
		TotalSamples: int(decoder.TotalSamples),
		NumChannels:  decoder.NChannels,
		BitDepth:     decoder.BitsPerSample,
	}, nil
}

func readFLAC(file *os.File) (Signal, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return Signal{}, err
	}
	if decoder.NChannels < 1 || decoder.SampleRate <= 0 {
		return Signal{}, fmt.Errorf("invalid FLAC stream: %d channels at %d Hz", decoder.NChannels, decoder.SampleRate)
	}

	divisor, err := getAudioDivisor(decoder.BitsPerSample)
	if err != nil {
		return Signal{}, err
	}
	bytesPerSample := decoder.BitsPerSample / 8
	frameSize := bytesPerSample * decoder.NChannels

	samples := make([]float32, 0, max(0, int(decoder.TotalSamples)))
	for {
		frame, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Signal{}, err
		}

		for i := 0; i+frameSize <= len(frame); i += frameSize {
			var sum float32
			for c := range decoder.NChannels {
				sum += float32(decodeFLACSample(frame[i+c*bytesPerSample:], decoder.BitsPerSample)) / divisor
			}
			samples = append(samples, sum/float32(decoder.NChannels))
		}
	}

	return Signal{Samples: samples, SampleRate: decoder.SampleRate}, nil
}

// decodeFLACSample reads one little-endian signed sample.
func decodeFLACSample(b []byte, bitsPerSample int) int32 {
	switch bitsPerSample {
	case 8:
		return int32(int8(b[0]))
	case 16:
		return int32(int16(binary.LittleEndian.Uint16(b)))
	case 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		// sign-extend from 24 bits
		return (v << 8) >> 8
	default:
		return int32(binary.LittleEndian.Uint32(b))
	}
}
