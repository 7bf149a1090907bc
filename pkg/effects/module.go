// Package effects defines the pluggable processing modules the engine lends
// to its sources: spatializer (HRTF), occlusion estimator, reverb and master
// compressor. Each role has a pass-through implementation for tests and a
// production implementation selectable by name through a Registry.
package effects

import (
	"errors"

	"github.com/justyntemme/spatial3d/pkg/scene"
	"github.com/pion/logging"
)

// Kind identifies a module role.
type Kind string

const (
	KindHRTF       Kind = "hrtf"
	KindOcclusion  Kind = "occlusion"
	KindReverb     Kind = "reverb"
	KindCompressor Kind = "compressor"
)

// Implementation names registered by DefaultRegistry.
const (
	ImplDefault     = "default"
	ImplPassthrough = "passthrough"
)

var (
	// ErrUnknownModule is returned when no factory is registered under a name.
	ErrUnknownModule = errors.New("effects: unknown module")
	// ErrWrongKind is returned when a factory produces a module of another role.
	ErrWrongKind = errors.New("effects: module does not implement requested kind")
	// ErrInvalidSetup is returned by Initialize for unusable engine parameters.
	ErrInvalidSetup = errors.New("effects: invalid setup")
)

// Setup carries the engine parameters a module needs at initialization.
type Setup struct {
	SampleRate float64
	BlockSize  int
	Logger     logging.LeveledLogger
	// Geometry is consulted by occluders; nil means open space.
	Geometry Geometry
}

func (s Setup) validate() error {
	if s.SampleRate <= 0 || s.BlockSize <= 0 {
		return ErrInvalidSetup
	}
	return nil
}

// Module is the lifecycle every effect processor shares.
// Initialize may fail; the engine then runs without that feature.
type Module interface {
	Name() string
	Initialize(setup Setup) error
	// Update performs per-tick maintenance on the update thread.
	Update()
	Dispose()
}

// Emitter is the spatial state of a source as seen by a spatializer.
type Emitter struct {
	Position    scene.Vec3
	Velocity    scene.Vec3
	Orientation scene.Vec3
}

// Placement is the per-ear rendering of an emitter.
type Placement struct {
	LeftGain  float64
	RightGain float64
	// LeftDelay and RightDelay are inter-aural delays in samples.
	LeftDelay  float64
	RightDelay float64
	// Rate is the Doppler playback-rate factor (1 = unchanged).
	Rate float64
	// DistanceGain is the distance attenuation folded into the ear gains.
	DistanceGain float64
}

// Spatializer converts a source position relative to the listener into a Placement.
type Spatializer interface {
	Module
	Place(e Emitter, l scene.Listener, dp scene.DistanceParams, env scene.Environment) Placement
}

// Occluder estimates how much geometry blocks the direct path.
type Occluder interface {
	Module
	// CalculateOcclusion returns an amount in [0,1].
	CalculateOcclusion(source, listener scene.Vec3) float64
	UpdateEnvironment(env scene.Environment)
}

// Reverb is the shared send/return processor. Process runs on the render
// thread: inL/inR is the send bus, outL/outR receive the wet return.
type Reverb interface {
	Module
	Process(inL, inR, outL, outR []float32)
	UpdateEnvironment(env scene.Environment)
}

// Compressor is the master bus dynamics stage. ProcessStereo runs in place on
// the render thread; GainReduction may be read from any goroutine.
type Compressor interface {
	Module
	ProcessStereo(left, right []float32)
	GainReduction() float64
}
