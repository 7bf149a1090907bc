// Package dsp provides digital signal processing utilities and algorithms.
package dsp

import "math"

// Common audio constants used by the mixer and its processors.
const (
	// Gain/Level constants
	MinDB     = -200.0 // Minimum dB value (effectively silence)
	UnityGain = 1.0    // Unity gain (0 dB)

	// Frequency ranges
	MinFrequency = 20.0    // 20 Hz
	MaxFrequency = 20000.0 // 20 kHz, full-band lowpass cutoff

	// Butterworth response
	DefaultQ = 0.707

	// Channel counts
	Mono   = 1
	Stereo = 2

	// Common sample rates
	SampleRate44k1 = 44100.0
	SampleRate48k  = 48000.0

	// Buffer sizes
	MinBufferSize     = 32
	DefaultBufferSize = 512
	MaxBufferSize     = 8192

	// Ramp times (seconds) used to avoid zipper noise and clicks
	FastRamp   = 0.005
	MediumRamp = 0.020
	SlowRamp   = 0.050

	// Small values for comparisons
	Epsilon = 1e-6
)

// Clamp limits v to [lo, hi]. NaN is mapped to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// LinearToDB converts a linear amplitude to decibels. Returns MinDB for values <= 0.
func LinearToDB(linear float64) float64 {
	if linear <= 0 {
		return MinDB
	}
	return 20.0 * math.Log10(linear)
}

// DBToLinear converts decibels to a linear amplitude. Values <= MinDB return 0.
func DBToLinear(db float64) float64 {
	if db <= MinDB {
		return 0
	}
	return math.Pow(10.0, db/20.0)
}

// Nyquist returns the highest usable filter frequency for a sample rate.
func Nyquist(sampleRate float64) float64 {
	return sampleRate * 0.45
}
