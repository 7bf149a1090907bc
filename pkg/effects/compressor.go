package effects

import (
	"math"
	"sync/atomic"

	"github.com/justyntemme/spatial3d/pkg/dsp/dynamics"
)

// MasteringCompressor wraps the bus compressor with the fixed mastering settings.
type MasteringCompressor struct {
	base
	comp     *dynamics.Compressor
	settings dynamics.Settings
	grBits   atomic.Uint64
}

// NewMasteringCompressor creates the default compressor.
func NewMasteringCompressor() *MasteringCompressor {
	return &MasteringCompressor{
		base:     base{name: "compressor/default"},
		settings: dynamics.MasteringSettings(),
	}
}

// Initialize builds the compressor for the engine sample rate.
func (c *MasteringCompressor) Initialize(setup Setup) error {
	if err := c.base.Initialize(setup); err != nil {
		return err
	}
	c.comp = dynamics.NewCompressor(setup.SampleRate, c.settings)
	return nil
}

// Settings returns the compressor controls.
func (c *MasteringCompressor) Settings() dynamics.Settings {
	return c.settings
}

// ProcessStereo compresses the master bus in place.
func (c *MasteringCompressor) ProcessStereo(left, right []float32) {
	if c.comp == nil {
		return
	}
	c.comp.ProcessStereo(left, right)
	c.grBits.Store(math.Float64bits(c.comp.GainReduction()))
}

// GainReduction returns the last block's gain reduction in dB.
func (c *MasteringCompressor) GainReduction() float64 {
	return math.Float64frombits(c.grBits.Load())
}

// Dispose drops the compressor state.
func (c *MasteringCompressor) Dispose() {
	c.base.Dispose()
	c.comp = nil
}
