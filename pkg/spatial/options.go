package spatial

import (
	"time"

	"github.com/justyntemme/spatial3d/pkg/assets"
	"github.com/justyntemme/spatial3d/pkg/backend"
	"github.com/justyntemme/spatial3d/pkg/effects"
	"github.com/justyntemme/spatial3d/pkg/scene"
	"github.com/pion/logging"
)

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger sets the factory that creates the engine's scoped loggers.
func WithLogger(factory logging.LoggerFactory) Option {
	return func(e *Engine) { e.loggers = factory }
}

// WithDeviceOpener replaces the default audio device.
func WithDeviceOpener(open backend.Opener) Option {
	return func(e *Engine) { e.openDevice = open }
}

// WithRegistry selects the effect module registry.
func WithRegistry(r *effects.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithResolver sets the asset resolver used by PlayAsset.
func WithResolver(r assets.Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithGeometry sets the obstacles the occluder ray-casts against.
func WithGeometry(g effects.Geometry) Option {
	return func(e *Engine) { e.geometry = g }
}

// WithClock sets the wall clock used to time ticks and render blocks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// SourceOption configures a source at creation.
type SourceOption func(*sourceSettings)

type sourceSettings struct {
	volume      float64
	reverb      float64
	occlusion   float64
	velocity    scene.Vec3
	orientation scene.Vec3
	when        float64
	loop        bool
}

func defaultSourceSettings() sourceSettings {
	return sourceSettings{volume: 1}
}

// WithVolume sets the initial volume, clamped to [0,1].
func WithVolume(v float64) SourceOption {
	return func(s *sourceSettings) { s.volume = v }
}

// WithReverbAmount sets the initial reverb send, clamped to [0,1].
func WithReverbAmount(v float64) SourceOption {
	return func(s *sourceSettings) { s.reverb = v }
}

// WithOcclusionAmount sets the initial occlusion, clamped to [0,1].
// The occluder overwrites it on the next tick when occlusion is enabled.
func WithOcclusionAmount(v float64) SourceOption {
	return func(s *sourceSettings) { s.occlusion = v }
}

// WithVelocity sets the initial velocity.
func WithVelocity(v scene.Vec3) SourceOption {
	return func(s *sourceSettings) { s.velocity = v }
}

// WithOrientation sets the initial facing direction.
func WithOrientation(v scene.Vec3) SourceOption {
	return func(s *sourceSettings) { s.orientation = v }
}

// WithStartDelay schedules playback the given number of seconds after the
// current render time. Only used by PlayAudio and PlayAsset.
func WithStartDelay(seconds float64) SourceOption {
	return func(s *sourceSettings) { s.when = seconds }
}

// WithLoop makes the source repeat its buffer until stopped.
func WithLoop() SourceOption {
	return func(s *sourceSettings) { s.loop = true }
}
