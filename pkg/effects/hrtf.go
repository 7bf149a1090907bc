package effects

import (
	"math"

	"github.com/justyntemme/spatial3d/pkg/dsp/pan"
	"github.com/justyntemme/spatial3d/pkg/scene"
)

const (
	// shadowDepth is how much level the far ear loses at full lateralization.
	shadowDepth = 0.35
	// Doppler factors are limited so extreme velocities cannot alias.
	minDopplerRate = 0.5
	maxDopplerRate = 2.0
	// maxSpeedFraction caps radial speeds relative to the speed of sound.
	maxSpeedFraction = 0.5
)

// HRTF is a parametric binaural spatializer: inter-aural time difference from
// a spherical head model, inter-aural level difference from constant-power
// panning plus head shadow, and Doppler shift from radial velocities.
type HRTF struct {
	base
	sampleRate float64
	headRadius float64
}

// NewHRTF creates the default spatializer.
func NewHRTF() *HRTF {
	return &HRTF{
		base:       base{name: "hrtf/default"},
		headRadius: pan.HeadRadius,
	}
}

// Initialize records the sample rate used to express delays in samples.
func (h *HRTF) Initialize(setup Setup) error {
	if err := h.base.Initialize(setup); err != nil {
		return err
	}
	h.sampleRate = setup.SampleRate
	return nil
}

// Place computes the binaural placement of e for listener l.
func (h *HRTF) Place(e Emitter, l scene.Listener, dp scene.DistanceParams, env scene.Environment) Placement {
	rel := e.Position.Sub(l.Position)
	d := rel.Length()

	p := Placement{Rate: 1, DistanceGain: dp.Gain(d)}
	if d < 1e-9 {
		p.LeftGain = p.DistanceGain * centerGain
		p.RightGain = p.DistanceGain * centerGain
		return p
	}

	azimuth, lateral := direction(rel, l)

	left, right := pan.MonoToStereo(lateral, pan.ConstantPower)
	shadowL, shadowR := pan.HeadShadow(lateral, shadowDepth)
	p.LeftGain = left * shadowL * p.DistanceGain
	p.RightGain = right * shadowR * p.DistanceGain

	c := env.SpeedOfSound()
	itd := pan.InterauralDelay(azimuth, h.headRadius, c) * h.sampleRate
	if itd > 0 {
		p.LeftDelay = itd
	} else {
		p.RightDelay = -itd
	}

	p.Rate = dopplerRate(rel.Scale(1/d), e.Velocity, l.Velocity, c)
	return p
}

// PanPlacement is the plain equal-power placement used when no binaural
// spatializer is available: distance gain and left/right balance only.
func PanPlacement(e Emitter, l scene.Listener, dp scene.DistanceParams) Placement {
	rel := e.Position.Sub(l.Position)
	d := rel.Length()
	p := Placement{Rate: 1, DistanceGain: dp.Gain(d)}

	lateral := 0.0
	if d >= 1e-9 {
		_, lateral = direction(rel, l)
	}
	left, right := pan.MonoToStereo(lateral, pan.ConstantPower)
	p.LeftGain = left * p.DistanceGain
	p.RightGain = right * p.DistanceGain
	return p
}

// direction returns the azimuth (radians, positive right, 0 ahead) and the
// lateral component in [-1,1] of rel in the listener's frame.
func direction(rel scene.Vec3, l scene.Listener) (azimuth, lateral float64) {
	right := l.Right()
	forward := l.Forward()

	x := rel.Dot(right)
	z := rel.Dot(forward)
	azimuth = math.Atan2(x, z)
	lateral = x / rel.Length()
	return azimuth, lateral
}

// dopplerRate returns f'/f for a source and listener moving along unit,
// the direction from listener to source.
func dopplerRate(unit, sourceVel, listenerVel scene.Vec3, c float64) float64 {
	limit := c * maxSpeedFraction
	vs := clampSpeed(sourceVel.Dot(unit), limit)   // away from listener
	vl := clampSpeed(listenerVel.Dot(unit), limit) // towards source

	rate := (c + vl) / (c + vs)
	return math.Max(minDopplerRate, math.Min(maxDopplerRate, rate))
}

func clampSpeed(v, limit float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-limit, math.Min(limit, v))
}
