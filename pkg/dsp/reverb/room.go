package reverb

import (
	"math"

	"github.com/justyntemme/spatial3d/pkg/dsp"
)

// Tuning constants (Freeverb, scaled for 44.1kHz)
const (
	numCombs     = 8
	numAllpasses = 4
	inputGain    = 0.015
	scaleDamping = 0.4
	stereoSpread = 23

	// Delay lines stretch from minStretch (size 0) to maxStretch (size 1).
	minStretch = 0.6
	maxStretch = 1.4

	// Decay times outside this range are clamped, in seconds.
	minRT60 = 0.05
	maxRT60 = 30.0
)

// Comb filter tuning values (in samples at 44.1kHz)
var combTuning = [numCombs]int{
	1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617,
}

// Allpass filter tuning values (in samples at 44.1kHz)
var allpassTuning = [numAllpasses]int{
	556, 441, 341, 225,
}

// Room is a stereo Schroeder/Moorer reverb whose decay follows a target RT60
// and whose delay spread follows the room size. It produces only the wet
// signal; the dry path never passes through it.
type Room struct {
	sampleRate float64
	scale      float64

	combL    [numCombs]*CombFilter
	combR    [numCombs]*CombFilter
	allpassL [numAllpasses]*AllPassFilter
	allpassR [numAllpasses]*AllPassFilter

	size    float64
	rt60    float64
	damping float64
	wet     float32
	width   float64

	wet1, wet2 float32
}

// NewRoom creates a room reverb for the given sample rate.
func NewRoom(sampleRate float64) *Room {
	r := &Room{
		sampleRate: sampleRate,
		scale:      sampleRate / dsp.SampleRate44k1,
		size:       0.5,
		rt60:       2.0,
		damping:    0.5,
		wet:        1.0,
		width:      1.0,
	}

	for i := 0; i < numCombs; i++ {
		r.combL[i] = NewCombFilter(int(float64(combTuning[i])*r.scale*maxStretch) + 1)
		r.combR[i] = NewCombFilter(int(float64(combTuning[i]+stereoSpread)*r.scale*maxStretch) + 1)
	}
	for i := 0; i < numAllpasses; i++ {
		r.allpassL[i] = NewAllPassFilter(int(float64(allpassTuning[i]) * r.scale))
		r.allpassR[i] = NewAllPassFilter(int(float64(allpassTuning[i]+stereoSpread) * r.scale))
	}

	r.update()
	return r
}

// SetRoom sets size (0-1), decay time RT60 (seconds) and high frequency damping (0-1).
// NaN values fall back to the lower bound of their range.
func (r *Room) SetRoom(size, rt60, damping float64) {
	r.size = dsp.Clamp01(size)
	r.rt60 = dsp.Clamp(rt60, minRT60, maxRT60)
	r.damping = dsp.Clamp01(damping)
	r.update()
}

// SetWetLevel sets the output level (0-1)
func (r *Room) SetWetLevel(level float64) {
	r.wet = float32(dsp.Clamp01(level))
	r.update()
}

// SetWidth sets the stereo width (0-1)
func (r *Room) SetWidth(width float64) {
	r.width = dsp.Clamp01(width)
	r.update()
}

// Size returns the room size in [0,1].
func (r *Room) Size() float64 { return r.size }

// RT60 returns the target decay time in seconds.
func (r *Room) RT60() float64 { return r.rt60 }

// Damping returns the damping amount in [0,1].
func (r *Room) Damping() float64 { return r.damping }

// CombFeedback returns the feedback of left comb i, for inspection.
func (r *Room) CombFeedback(i int) float64 {
	return float64(r.combL[i].feedback)
}

// update recalculates internal values after parameter changes
func (r *Room) update() {
	r.wet1 = r.wet * float32(r.width/2.0+0.5)
	r.wet2 = r.wet * float32((1.0-r.width)/2.0)

	stretch := minStretch + (maxStretch-minStretch)*r.size
	damp := r.damping * scaleDamping

	for i := 0; i < numCombs; i++ {
		r.tuneComb(r.combL[i], combTuning[i], stretch, damp)
		r.tuneComb(r.combR[i], combTuning[i]+stereoSpread, stretch, damp)
	}
}

// tuneComb sets the delay and derives the feedback giving -60 dB after rt60:
// g = 10^(-3 * delay / (rt60 * fs)).
func (r *Room) tuneComb(c *CombFilter, tuning int, stretch, damp float64) {
	c.SetDelay(int(float64(tuning) * r.scale * stretch))
	delaySeconds := float64(c.Delay()) / r.sampleRate
	c.SetFeedback(math.Pow(10, -3*delaySeconds/r.rt60))
	c.SetDamping(damp)
}

// Process renders the wet signal of inL/inR into outL/outR. Output slices are
// overwritten, not accumulated.
func (r *Room) Process(inL, inR, outL, outR []float32) {
	n := len(inL)
	if len(inR) < n {
		n = len(inR)
	}
	if len(outL) < n {
		n = len(outL)
	}
	if len(outR) < n {
		n = len(outR)
	}

	for s := 0; s < n; s++ {
		input := (inL[s] + inR[s]) * inputGain

		var accL, accR float32
		for i := 0; i < numCombs; i++ {
			accL += r.combL[i].Process(input)
			accR += r.combR[i].Process(input)
		}
		for i := 0; i < numAllpasses; i++ {
			accL = r.allpassL[i].Process(accL)
			accR = r.allpassR[i].Process(accR)
		}

		outL[s] = accL*r.wet1 + accR*r.wet2
		outR[s] = accR*r.wet1 + accL*r.wet2
	}
}

// Reset clears all internal state
func (r *Room) Reset() {
	for i := 0; i < numCombs; i++ {
		r.combL[i].Reset()
		r.combR[i].Reset()
	}
	for i := 0; i < numAllpasses; i++ {
		r.allpassL[i].Reset()
		r.allpassR[i].Reset()
	}
}
