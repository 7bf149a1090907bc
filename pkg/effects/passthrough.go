package effects

import (
	"math"

	"github.com/justyntemme/spatial3d/pkg/scene"
)

// centerGain is the constant-power gain of a centred source.
var centerGain = math.Sqrt2 / 2

// base implements the Module lifecycle for modules without resources.
type base struct {
	name        string
	initialized bool
}

func (b *base) Name() string { return b.name }

func (b *base) Initialize(setup Setup) error {
	if err := setup.validate(); err != nil {
		return err
	}
	b.initialized = true
	return nil
}

func (b *base) Update() {}

func (b *base) Dispose() { b.initialized = false }

// PassthroughSpatializer centres every source and applies distance gain only.
type PassthroughSpatializer struct{ base }

// NewPassthroughSpatializer creates a centring spatializer.
func NewPassthroughSpatializer() *PassthroughSpatializer {
	return &PassthroughSpatializer{base{name: "hrtf/passthrough"}}
}

// Place returns a centred placement scaled by the distance model.
func (p *PassthroughSpatializer) Place(e Emitter, l scene.Listener, dp scene.DistanceParams, env scene.Environment) Placement {
	g := dp.Gain(e.Position.Distance(l.Position))
	return Placement{
		LeftGain:     g * centerGain,
		RightGain:    g * centerGain,
		Rate:         1,
		DistanceGain: g,
	}
}

// PassthroughOccluder never reports occlusion.
type PassthroughOccluder struct{ base }

// NewPassthroughOccluder creates an occluder that always returns 0.
func NewPassthroughOccluder() *PassthroughOccluder {
	return &PassthroughOccluder{base{name: "occlusion/passthrough"}}
}

// CalculateOcclusion always returns 0.
func (p *PassthroughOccluder) CalculateOcclusion(source, listener scene.Vec3) float64 { return 0 }

// UpdateEnvironment is a no-op.
func (p *PassthroughOccluder) UpdateEnvironment(env scene.Environment) {}

// PassthroughReverb returns silence.
type PassthroughReverb struct{ base }

// NewPassthroughReverb creates a reverb with a silent return.
func NewPassthroughReverb() *PassthroughReverb {
	return &PassthroughReverb{base{name: "reverb/passthrough"}}
}

// Process clears the return buffers.
func (p *PassthroughReverb) Process(inL, inR, outL, outR []float32) {
	clear(outL)
	clear(outR)
}

// UpdateEnvironment is a no-op.
func (p *PassthroughReverb) UpdateEnvironment(env scene.Environment) {}

// PassthroughCompressor leaves the master bus untouched.
type PassthroughCompressor struct{ base }

// NewPassthroughCompressor creates a no-op compressor.
func NewPassthroughCompressor() *PassthroughCompressor {
	return &PassthroughCompressor{base{name: "compressor/passthrough"}}
}

// ProcessStereo is a no-op.
func (p *PassthroughCompressor) ProcessStereo(left, right []float32) {}

// GainReduction is always 0 dB.
func (p *PassthroughCompressor) GainReduction() float64 { return 0 }
