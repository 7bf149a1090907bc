// Package filter provides the lowpass filtering used for occlusion and air absorption.
package filter

import (
	"math"

	"github.com/justyntemme/spatial3d/pkg/dsp"
)

// Biquad implements a second-order IIR lowpass (Direct Form I) with
// pre-allocated per-channel state.
type Biquad struct {
	// Coefficients, normalized so a0 == 1
	b0, b1, b2 float32
	a1, a2     float32

	// State variables (per-channel)
	x1, x2 []float32
	y1, y2 []float32

	sampleRate float64
	cutoff     float64
	q          float64
}

// NewBiquad creates a lowpass filter for the given number of channels, initially
// open at the top of the audible band.
func NewBiquad(channels int, sampleRate float64) *Biquad {
	b := &Biquad{
		x1:         make([]float32, channels),
		x2:         make([]float32, channels),
		y1:         make([]float32, channels),
		y2:         make([]float32, channels),
		sampleRate: sampleRate,
		q:          dsp.DefaultQ,
	}
	b.SetLowpass(dsp.MaxFrequency)
	return b
}

// Reset clears the filter state
func (b *Biquad) Reset() {
	for i := range b.x1 {
		b.x1[i] = 0
		b.x2[i] = 0
		b.y1[i] = 0
		b.y2[i] = 0
	}
}

// Cutoff returns the cutoff frequency the coefficients were designed for.
// It may be lower than requested when the request exceeded the usable band.
func (b *Biquad) Cutoff() float64 {
	return b.cutoff
}

// SetLowpass designs the coefficients for a lowpass at frequency Hz.
// The frequency is limited to [MinFrequency, 0.45*sampleRate]. Calling it with
// the current cutoff is a no-op, so it is cheap to call once per block.
func (b *Biquad) SetLowpass(frequency float64) {
	frequency = dsp.Clamp(frequency, dsp.MinFrequency, dsp.Nyquist(b.sampleRate))
	if frequency == b.cutoff {
		return
	}
	b.cutoff = frequency

	omega := 2.0 * math.Pi * frequency / b.sampleRate
	sinOmega := math.Sin(omega)
	cosOmega := math.Cos(omega)
	alpha := sinOmega / (2.0 * b.q)

	a0 := 1.0 + alpha
	b.b0 = float32((1.0 - cosOmega) / 2.0 / a0)
	b.b1 = float32((1.0 - cosOmega) / a0)
	b.b2 = b.b0
	b.a1 = float32(-2.0 * cosOmega / a0)
	b.a2 = float32((1.0 - alpha) / a0)
}

// Process applies the filter to a buffer (single channel) - no allocations
func (b *Biquad) Process(buffer []float32, channel int) {
	x1 := b.x1[channel]
	x2 := b.x2[channel]
	y1 := b.y1[channel]
	y2 := b.y2[channel]

	for i, x0 := range buffer {
		y0 := b.b0*x0 + b.b1*x1 + b.b2*x2 - b.a1*y1 - b.a2*y2

		x2 = x1
		x1 = x0
		y2 = y1
		y1 = y0

		buffer[i] = y0
	}

	b.x1[channel] = x1
	b.x2[channel] = x2
	b.y1[channel] = y1
	b.y2[channel] = y2
}
