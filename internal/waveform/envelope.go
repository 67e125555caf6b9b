// Package waveform turns audio into a fixed-resolution amplitude envelope
// and lays it out as bars for drawing and click-to-seek.
package waveform

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultSamples is the number of bars in an envelope
	DefaultSamples = 200
	// DefaultFallback is the flat level shown when analysis fails
	DefaultFallback = 0.1
)

// Envelope reduces pcm to n mean rectified amplitudes normalised to [0, 1].
// Samples beyond the last full block are ignored. With fewer samples than
// bars each sample is its own block and the remaining bars are zero. Silence
// yields all zeros.
func Envelope(pcm []float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	if len(pcm) == 0 {
		return out
	}

	blockSize := len(pcm) / n
	if blockSize == 0 {
		blockSize = 1
	}
	for i := 0; i < n; i++ {
		start := i * blockSize
		if start+blockSize > len(pcm) {
			break
		}
		sum := 0.0
		for _, v := range pcm[start : start+blockSize] {
			sum += math.Abs(v)
		}
		out[i] = sum / float64(blockSize)
	}

	peak := floats.Max(out)
	if peak == 0 || math.IsNaN(peak) {
		return make([]float64, n)
	}
	floats.Scale(1/peak, out)
	return out
}

// Flat returns n bars all at value
func Flat(n int, value float64) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}
