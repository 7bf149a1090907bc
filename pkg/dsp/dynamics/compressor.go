// Package dynamics provides the bus compressor used by the master chain.
package dynamics

import (
	"math"

	"github.com/justyntemme/spatial3d/pkg/dsp"
)

// Settings are the static compressor controls.
type Settings struct {
	ThresholdDB float64 // level where compression starts
	KneeDB      float64 // width of the soft knee (0 for hard knee)
	Ratio       float64 // e.g. 4.0 for 4:1
	Attack      float64 // seconds
	Release     float64 // seconds
	MakeupDB    float64
}

// MasteringSettings are the fixed defaults used on the master bus.
func MasteringSettings() Settings {
	return Settings{
		ThresholdDB: -24.0,
		KneeDB:      30.0,
		Ratio:       12.0,
		Attack:      0.003,
		Release:     0.250,
	}
}

// Compressor implements a stereo-linked feed-forward compressor with a
// peak envelope follower.
type Compressor struct {
	sampleRate float64
	settings   Settings

	attackCoef  float64
	releaseCoef float64

	envelope          float64
	lastGainReduction float64 // For metering
}

// NewCompressor creates a compressor running at sampleRate with the given settings.
func NewCompressor(sampleRate float64, s Settings) *Compressor {
	c := &Compressor{sampleRate: sampleRate}
	c.Configure(s)
	return c
}

// Configure replaces the compressor settings, normalising out-of-range values.
func (c *Compressor) Configure(s Settings) {
	s.Ratio = math.Max(1.0, s.Ratio)
	s.KneeDB = math.Max(0.0, s.KneeDB)
	s.Attack = math.Max(0.0001, s.Attack)
	s.Release = math.Max(0.001, s.Release)
	c.settings = s

	c.attackCoef = 1.0 - math.Exp(-1.0/(s.Attack*c.sampleRate))
	c.releaseCoef = 1.0 - math.Exp(-1.0/(s.Release*c.sampleRate))
}

// Settings returns the active settings.
func (c *Compressor) Settings() Settings {
	return c.settings
}

// GainReduction returns the current gain reduction in dB (for metering)
func (c *Compressor) GainReduction() float64 {
	return c.lastGainReduction
}

// ComputeGainReduction returns the static gain reduction in dB for an input level.
func (c *Compressor) ComputeGainReduction(inputDB float64) float64 {
	s := c.settings
	over := inputDB - s.ThresholdDB
	slope := 1.0 - 1.0/s.Ratio

	if s.KneeDB > 0 && math.Abs(over) <= s.KneeDB/2 {
		x := over + s.KneeDB/2
		return slope * x * x / (2 * s.KneeDB)
	}
	if over <= 0 {
		return 0
	}
	return slope * over
}

// ProcessStereo compresses left and right in place with a shared gain.
func (c *Compressor) ProcessStereo(left, right []float32) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	makeup := c.settings.MakeupDB

	for i := 0; i < n; i++ {
		level := math.Max(math.Abs(float64(left[i])), math.Abs(float64(right[i])))
		if level > c.envelope {
			c.envelope += (level - c.envelope) * c.attackCoef
		} else {
			c.envelope += (level - c.envelope) * c.releaseCoef
		}

		inputDB := dsp.LinearToDB(c.envelope)
		gr := c.ComputeGainReduction(inputDB)
		c.lastGainReduction = gr

		gain := float32(dsp.DBToLinear(makeup - gr))
		left[i] *= gain
		right[i] *= gain
	}
}

// Reset resets the compressor state
func (c *Compressor) Reset() {
	c.envelope = 0
	c.lastGainReduction = 0
}
