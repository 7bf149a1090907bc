package spatial

import (
	"math"
	"sync/atomic"

	"github.com/justyntemme/spatial3d/pkg/dsp"
	"github.com/justyntemme/spatial3d/pkg/dsp/delay"
	"github.com/justyntemme/spatial3d/pkg/dsp/filter"
	"github.com/justyntemme/spatial3d/pkg/framework/param"
)

// maxInterauralDelay bounds the per-ear delay line, in seconds.
const maxInterauralDelay = 0.0015

// renderClock counts frames rendered by the audio device. It is the time
// base for start and stop scheduling.
type renderClock struct {
	frames atomic.Int64
	rate   float64
}

func newRenderClock(sampleRate float64) *renderClock {
	return &renderClock{rate: sampleRate}
}

// now returns the render time in seconds.
func (c *renderClock) now() float64 {
	return float64(c.frames.Load()) / c.rate
}

// frameAfter returns the frame index seconds after the current render time.
func (c *renderClock) frameAfter(seconds float64) int64 {
	return c.frames.Load() + int64(math.Round(seconds*c.rate))
}

// advance is called by the renderer after each block.
func (c *renderClock) advance(n int) {
	c.frames.Add(int64(n))
}

// voice is the render-thread half of a source: playhead, ramps, filter
// state and the inter-aural delay line.
type voice struct {
	playhead float64
	done     bool
	primed   bool
	release  int64 // frames faded out before a scheduled stop

	gain       *param.Smoother
	cutoff     *param.Smoother
	left       *param.Smoother
	right      *param.Smoother
	leftDelay  *param.Smoother
	rightDelay *param.Smoother
	send       *param.Smoother

	filter *filter.Biquad
	itd    *delay.Line
}

func newVoice(sampleRate float64) voice {
	return voice{
		release:    int64(dsp.FastRamp * sampleRate),
		gain:       param.NewTimedSmoother(param.LinearSmoothing, sampleRate, dsp.FastRamp),
		cutoff:     param.NewTimedSmoother(param.LogarithmicSmoothing, sampleRate, dsp.MediumRamp),
		left:       param.NewTimedSmoother(param.LinearSmoothing, sampleRate, dsp.MediumRamp),
		right:      param.NewTimedSmoother(param.LinearSmoothing, sampleRate, dsp.MediumRamp),
		leftDelay:  param.NewTimedSmoother(param.LinearSmoothing, sampleRate, dsp.MediumRamp),
		rightDelay: param.NewTimedSmoother(param.LinearSmoothing, sampleRate, dsp.MediumRamp),
		send:       param.NewTimedSmoother(param.LinearSmoothing, sampleRate, dsp.MediumRamp),
		filter:     filter.NewBiquad(dsp.Mono, sampleRate),
		itd:        delay.New(maxInterauralDelay, sampleRate),
	}
}

// follow points every ramp at the source's published targets. The first
// block jumps straight to them.
func (v *voice) follow(s *Source) {
	targets := [...]struct {
		sm *param.Smoother
		to float64
	}{
		{v.gain, s.volume.Load()},
		{v.cutoff, s.cutoff.Load()},
		{v.left, s.leftGain.Load()},
		{v.right, s.rightGain.Load()},
		{v.leftDelay, s.leftDelay.Load()},
		{v.rightDelay, s.rightDelay.Load()},
		{v.send, s.send.Load()},
	}
	for _, t := range targets {
		if v.primed {
			t.sm.SetTarget(t.to)
		} else {
			t.sm.Reset(t.to)
		}
	}
	if !v.primed {
		v.filter.SetLowpass(s.cutoff.Load())
		v.primed = true
	}
}
