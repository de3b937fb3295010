// Package myaudio decodes WAV and FLAC recordings into mono float32 signals,
// resamples them and splits them into overlapping analysis chunks.
package myaudio
