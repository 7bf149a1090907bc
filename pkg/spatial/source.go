package spatial

import (
	"math"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/justyntemme/spatial3d/pkg/assets"
	"github.com/justyntemme/spatial3d/pkg/effects"
	"github.com/justyntemme/spatial3d/pkg/framework/param"
	"github.com/justyntemme/spatial3d/pkg/scene"
)

// occlusionDepth is the fraction of the cutoff removed at full occlusion.
const occlusionDepth = 0.9

// SourceID identifies a source for its whole life.
type SourceID uuid.UUID

func (id SourceID) String() string { return uuid.UUID(id).String() }

func newSourceID() SourceID { return SourceID(uuid.New()) }

// SourceState is a copy of a source's observable state.
type SourceState struct {
	ID              SourceID
	Position        scene.Vec3
	Velocity        scene.Vec3
	Orientation     scene.Vec3
	Volume          float64
	OcclusionAmount float64
	ReverbAmount    float64
	Cutoff          float64
	Distance        float64
	Playing         bool
	Finished        bool
	Loop            bool
	StartTime       float64
	Placement       effects.Placement
}

// Source is one playing sound: a buffer and its own chain of
// gain, lowpass, ear placement and reverb send.
//
// Spatial state and bookkeeping are owned by the update thread; callers
// serialize access through the engine. Values read by the renderer are
// published through atomics.
type Source struct {
	id     SourceID
	seq    uint64
	buffer *assets.Buffer
	clock  *renderClock
	loop   bool

	maxCutoff float64
	rateRatio float64

	position    scene.Vec3
	velocity    scene.Vec3
	orientation scene.Vec3
	distance    float64
	airCutoff   float64
	placement   effects.Placement

	playing   bool
	started   bool
	startTime float64
	stopTime  float64

	volume    param.Value
	occlusion param.Value
	reverb    param.Value

	cutoff     param.Value
	leftGain   param.Value
	rightGain  param.Value
	leftDelay  param.Value
	rightDelay param.Value
	rate       param.Value
	send       param.Value

	startFrame atomic.Int64
	stopFrame  atomic.Int64
	ended      atomic.Bool
	disposed   atomic.Bool

	voice voice
}

func newSource(seq uint64, buf *assets.Buffer, clock *renderClock, maxCutoff float64, settings sourceSettings) *Source {
	s := &Source{
		id:          newSourceID(),
		seq:         seq,
		buffer:      buf,
		clock:       clock,
		loop:        settings.loop,
		maxCutoff:   maxCutoff,
		rateRatio:   float64(buf.SampleRate()) / clock.rate,
		velocity:    settings.velocity,
		orientation: settings.orientation,
		airCutoff:   maxCutoff,
		placement:   effects.Placement{LeftGain: centerGain, RightGain: centerGain, Rate: 1, DistanceGain: 1},
	}
	s.startFrame.Store(-1)
	s.stopFrame.Store(math.MaxInt64)

	s.SetVolume(settings.volume)
	s.SetReverbAmount(settings.reverb)
	s.SetOcclusionAmount(settings.occlusion)
	s.publishPlacement()

	s.voice = newVoice(clock.rate)
	return s
}

// centerGain is the equal-power gain of a centred source.
const centerGain = math.Sqrt2 / 2

// ID returns the source identifier.
func (s *Source) ID() SourceID { return s.id }

// Buffer returns the sample buffer being played.
func (s *Source) Buffer() *assets.Buffer { return s.buffer }

// Position returns the world position.
func (s *Source) Position() scene.Vec3 { return s.position }

// SetPosition moves the source. The chain follows on the next tick.
func (s *Source) SetPosition(p scene.Vec3) { s.position = p }

// SetVelocity sets the velocity used for Doppler.
func (s *Source) SetVelocity(v scene.Vec3) { s.velocity = v }

// SetOrientation sets the facing direction.
func (s *Source) SetOrientation(o scene.Vec3) { s.orientation = o }

// SetVolume clamps v to [0,1] and returns the applied value.
func (s *Source) SetVolume(v float64) float64 {
	return s.volume.Clamped(v, 0, 1)
}

// Volume returns the current volume.
func (s *Source) Volume() float64 { return s.volume.Load() }

// SetOcclusionAmount clamps a to [0,1], updates the lowpass cutoff and
// returns the applied value.
func (s *Source) SetOcclusionAmount(a float64) float64 {
	applied := s.occlusion.Clamped(a, 0, 1)
	s.publishCutoff()
	return applied
}

// OcclusionAmount returns the current occlusion.
func (s *Source) OcclusionAmount() float64 { return s.occlusion.Load() }

// SetReverbAmount clamps v to [0,1] and returns the applied value.
func (s *Source) SetReverbAmount(v float64) float64 {
	applied := s.reverb.Clamped(v, 0, 1)
	s.send.Store(applied * s.placement.DistanceGain)
	return applied
}

// ReverbAmount returns the current reverb send amount.
func (s *Source) ReverbAmount() float64 { return s.reverb.Load() }

// OcclusionCutoff returns the cutoff implied by occlusion alone:
// maxCutoff at 0, falling linearly to a tenth of it at 1.
func (s *Source) OcclusionCutoff() float64 {
	return s.maxCutoff * (1 - s.occlusion.Load()*occlusionDepth)
}

// ApplyAirAbsorption sets the distance cutoff maxCutoff*exp(-distance*k).
func (s *Source) ApplyAirAbsorption(distance, k float64) {
	if distance < 0 || math.IsNaN(distance) {
		distance = 0
	}
	if k < 0 || math.IsNaN(k) {
		k = 0
	}
	s.airCutoff = s.maxCutoff * math.Exp(-distance*k)
	s.publishCutoff()
}

// Cutoff returns the effective lowpass cutoff, the lower of the occlusion
// and air absorption cutoffs.
func (s *Source) Cutoff() float64 { return s.cutoff.Load() }

func (s *Source) publishCutoff() {
	s.cutoff.Store(math.Min(s.OcclusionCutoff(), s.airCutoff))
}

func (s *Source) publishPlacement() {
	p := s.placement
	s.leftGain.Store(p.LeftGain)
	s.rightGain.Store(p.RightGain)
	s.leftDelay.Store(p.LeftDelay)
	s.rightDelay.Store(p.RightDelay)
	s.rate.Store(p.Rate)
	s.send.Store(s.reverb.Load() * p.DistanceGain)
}

// Distance returns the listener distance computed on the last tick.
func (s *Source) Distance() float64 { return s.distance }

// Start schedules playback when seconds after the current render time.
// A source plays once; starting it again is a no-op.
func (s *Source) Start(when float64) {
	if s.started || s.disposed.Load() {
		return
	}
	if when < 0 || math.IsNaN(when) {
		when = 0
	}
	s.started = true
	s.playing = true
	s.startTime = s.clock.now() + when
	s.startFrame.Store(s.clock.frameAfter(when))
}

// Stop schedules silence when seconds after the current render time.
// The source stops counting as playing immediately.
func (s *Source) Stop(when float64) {
	if !s.playing {
		return
	}
	if when < 0 || math.IsNaN(when) {
		when = 0
	}
	s.playing = false
	s.stopTime = s.clock.now() + when
	s.stopFrame.Store(s.clock.frameAfter(when))
}

// IsPlaying reports whether the source is started and not stopped.
func (s *Source) IsPlaying() bool { return s.playing }

// StartTime returns the render time playback was scheduled for, in seconds.
// It is zero until Start.
func (s *Source) StartTime() float64 { return s.startTime }

// IsFinished reports whether a started source has stopped, either at the
// end of its buffer or at its scheduled stop time.
func (s *Source) IsFinished() bool {
	return s.started && !s.playing && s.clock.now() >= s.stopTime
}

// pollEnded moves a source whose renderer ran off the end of the buffer to
// the stopped state.
func (s *Source) pollEnded() {
	if s.playing && s.ended.Load() {
		s.playing = false
		s.stopTime = s.clock.now()
	}
}

// update recomputes distance, occlusion, cutoff and ear placement for the
// listener and environment.
func (s *Source) update(l scene.Listener, env scene.Environment, fx *moduleSet) error {
	if !s.position.IsFinite() || !s.velocity.IsFinite() {
		return errNonFinitePosition
	}

	s.distance = s.position.Distance(l.Position)
	if fx.occluder != nil {
		s.SetOcclusionAmount(fx.occluder.CalculateOcclusion(s.position, l.Position))
	}
	s.ApplyAirAbsorption(s.distance, env.AbsorptionCoefficient())

	em := effects.Emitter{Position: s.position, Velocity: s.velocity, Orientation: s.orientation}
	var p effects.Placement
	if fx.spatializer != nil {
		p = fx.spatializer.Place(em, l, fx.distance, env)
	} else {
		p = effects.PanPlacement(em, l, fx.distance)
	}
	if !finitePlacement(p) {
		return errNonFinitePlacement
	}

	s.placement = p
	s.publishPlacement()
	return nil
}

func finitePlacement(p effects.Placement) bool {
	for _, v := range [...]float64{p.LeftGain, p.RightGain, p.LeftDelay, p.RightDelay, p.Rate, p.DistanceGain} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// dispose stops the source and detaches it from the renderer.
func (s *Source) dispose() {
	s.playing = false
	s.disposed.Store(true)
}

// State returns a copy of the observable state.
func (s *Source) State() SourceState {
	return SourceState{
		ID:              s.id,
		Position:        s.position,
		Velocity:        s.velocity,
		Orientation:     s.orientation,
		Volume:          s.Volume(),
		OcclusionAmount: s.OcclusionAmount(),
		ReverbAmount:    s.ReverbAmount(),
		Cutoff:          s.Cutoff(),
		Distance:        s.distance,
		Playing:         s.playing,
		Finished:        s.IsFinished(),
		Loop:            s.loop,
		StartTime:       s.startTime,
		Placement:       s.placement,
	}
}

// render mixes one block into the dry and send buses. Render thread only.
func (s *Source) render(frame0 int64, outL, outR, sendL, sendR, scratch []float32) {
	if s.disposed.Load() || s.ended.Load() {
		return
	}
	n := len(outL)
	start := s.startFrame.Load()
	if start < 0 || start >= frame0+int64(n) {
		return
	}

	v := &s.voice
	v.follow(s)

	stop := s.stopFrame.Load()
	step := s.rate.Load() * s.rateRatio
	frames := float64(s.buffer.Frames())

	mono := scratch[:n]
	for i := range mono {
		f := frame0 + int64(i)
		g := v.gain.Next()
		if v.done || f < start {
			mono[i] = 0
			continue
		}
		if f >= stop {
			v.done = true
			mono[i] = 0
			continue
		}

		x := s.sampleAt(v.playhead) * float32(g)
		if rem := stop - f; rem < v.release {
			x *= float32(rem) / float32(v.release)
		}
		mono[i] = x
		v.playhead += step
		if v.playhead >= frames {
			if s.loop {
				v.playhead = math.Mod(v.playhead, frames)
			} else {
				v.done = true
			}
		}
	}

	v.filter.SetLowpass(v.cutoff.Advance(n))
	v.filter.Process(mono, 0)

	for i, x := range mono {
		v.itd.Push(x)
		outL[i] += v.itd.Tap(v.leftDelay.Next()) * float32(v.left.Next())
		outR[i] += v.itd.Tap(v.rightDelay.Next()) * float32(v.right.Next())
		w := x * float32(v.send.Next())
		sendL[i] += w
		sendR[i] += w
	}

	if v.done {
		s.ended.Store(true)
	}
}

// sampleAt reads the mono buffer at a fractional frame position.
func (s *Source) sampleAt(pos float64) float32 {
	frames := s.buffer.Frames()
	i := int(pos)
	if i >= frames {
		return 0
	}
	frac := float32(pos - float64(i))
	a := s.buffer.Mono(i)

	j := i + 1
	if j >= frames {
		if !s.loop {
			return a * (1 - frac)
		}
		j = 0
	}
	b := s.buffer.Mono(j)
	return a + (b-a)*frac
}
