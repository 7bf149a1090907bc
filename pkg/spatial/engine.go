// Package spatial is a real-time 3D audio mixer. An Engine owns a bounded
// pool of sources, each rendered through its own gain, lowpass and
// binaural placement stages into a shared reverb send and a master bus.
//
// Two threads touch an engine: the update thread (the internal scheduler
// or explicit Tick calls, plus every API call) recomputes spatial
// parameters, and the render thread (the audio device) mixes audio from
// values the update thread publishes atomically.
package spatial

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/justyntemme/spatial3d/pkg/assets"
	"github.com/justyntemme/spatial3d/pkg/backend"
	"github.com/justyntemme/spatial3d/pkg/dsp"
	"github.com/justyntemme/spatial3d/pkg/dsp/analysis"
	"github.com/justyntemme/spatial3d/pkg/effects"
	"github.com/justyntemme/spatial3d/pkg/framework/debug"
	"github.com/justyntemme/spatial3d/pkg/scene"
	"github.com/pion/logging"
)

type engineState int

const (
	stateNew engineState = iota
	stateRunning
	stateDisposed
)

var _ backend.Renderer = (*Engine)(nil)

// Engine is the spatial audio mixer. Create it with New, start it with
// Initialize and release it with Dispose. All methods are safe for
// concurrent use.
type Engine struct {
	loggers    logging.LoggerFactory
	log        logging.LeveledLogger
	openDevice backend.Opener
	registry   *effects.Registry
	resolver   assets.Resolver
	geometry   effects.Geometry
	now        func() time.Time

	mu        sync.Mutex
	state     engineState
	cfg       Config
	degraded  []*FeatureError
	listener  scene.Listener
	env       scene.Environment
	device    backend.Device
	pool      *Pool
	clock     *renderClock
	master    *MasterChain
	monitor   *PerformanceMonitor
	scheduler *UpdateScheduler

	spatializer effects.Spatializer
	occluder    effects.Occluder
	reverb      effects.Reverb
	compressor  effects.Compressor

	renderMu sync.Mutex
	live     atomic.Bool
	bus      renderBus
}

// renderBus holds the render thread's scratch buffers.
type renderBus struct {
	block   int
	sendL   []float32
	sendR   []float32
	retL    []float32
	retR    []float32
	scratch []float32
}

func newRenderBus(block int) renderBus {
	return renderBus{
		block:   block,
		sendL:   make([]float32, block),
		sendR:   make([]float32, block),
		retL:    make([]float32, block),
		retR:    make([]float32, block),
		scratch: make([]float32, block),
	}
}

// New creates an uninitialized engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		openDevice: backend.OpenDefault,
		registry:   effects.DefaultRegistry(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.loggers == nil {
		e.loggers = debug.NewFactory(os.Stderr, logging.LogLevelInfo)
	}
	e.log = e.loggers.NewLogger("engine")
	return e
}

func (e *Engine) stateErr() error {
	switch e.state {
	case stateNew:
		return ErrNotInitialized
	case stateDisposed:
		return ErrDisposed
	}
	return nil
}

// Initialize opens the audio device, builds the enabled effect modules and
// starts the update scheduler. A module that fails to initialize is
// disabled and recorded in DegradedFeatures; Initialize still succeeds.
// Without an audio device it returns ErrUnsupported and the engine stays
// uninitialized.
func (e *Engine) Initialize(cfg Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateRunning:
		return ErrAlreadyInitialized
	case stateDisposed:
		return ErrDisposed
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	dev, err := e.openDevice(cfg.SampleRate, cfg.BlockSize)
	if err != nil {
		e.log.Errorf("audio device unavailable: %v", err)
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if sr := dev.SampleRate(); sr > 0 && sr != cfg.SampleRate {
		e.log.Infof("device runs at %d Hz, requested %d Hz", sr, cfg.SampleRate)
		cfg.SampleRate = sr
		if err := cfg.Validate(); err != nil {
			dev.Close()
			return err
		}
	}
	sampleRate := float64(cfg.SampleRate)

	e.degraded = nil
	e.spatializer, e.occluder, e.reverb, e.compressor = nil, nil, nil, nil
	e.loadModules(&cfg, effects.Setup{
		SampleRate: sampleRate,
		BlockSize:  cfg.BlockSize,
		Geometry:   e.geometry,
	})

	e.cfg = cfg
	e.listener = scene.DefaultListener()
	e.env = scene.DefaultEnvironment()
	e.forwardEnvironment()

	e.clock = newRenderClock(sampleRate)
	e.master = newMasterChain(sampleRate, e.compressor, cfg.AnalysisSize)
	e.monitor = newPerformanceMonitor(cfg.UpdateInterval, blockBudget(cfg))
	e.pool = newPool(cfg.MaxAudioSources, e.clock, cfg.MaxCutoff, e.loggers.NewLogger("pool"))
	e.pool.fx = moduleSet{
		spatializer: e.spatializer,
		occluder:    e.occluder,
		distance:    cfg.DistanceParams(),
	}
	e.bus = newRenderBus(cfg.BlockSize)
	e.device = dev

	e.live.Store(true)
	if err := dev.Start(e); err != nil {
		e.live.Store(false)
		e.disposeModules()
		dev.Close()
		e.log.Errorf("audio device failed to start: %v", err)
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	e.state = stateRunning
	if !cfg.ManualUpdates {
		e.scheduler = newUpdateScheduler(cfg.UpdateInterval, e.scheduledTick, e.loggers.NewLogger("scheduler"))
		e.scheduler.Start()
	}

	f := cfg.Features()
	e.log.Infof("initialized: %d Hz, block %d, max sources %d, hrtf=%t reverb=%t compression=%t occlusion=%t",
		cfg.SampleRate, cfg.BlockSize, cfg.MaxAudioSources, f.HRTF, f.Reverb, f.Compression, f.Occlusion)
	return nil
}

func blockBudget(cfg Config) time.Duration {
	return time.Duration(float64(cfg.BlockSize) / float64(cfg.SampleRate) * float64(time.Second))
}

// loadModules creates each enabled module. Failures clear the feature flag.
func (e *Engine) loadModules(cfg *Config, setup effects.Setup) {
	if cfg.EnableHRTF {
		m, err := loadModule(e, FeatureHRTF, e.registry.NewSpatializer, cfg.HRTFImpl, setup)
		if err != nil {
			e.degrade(&cfg.EnableHRTF, FeatureHRTF, err)
		} else {
			e.spatializer = m
		}
	}
	if cfg.EnableOcclusion {
		m, err := loadModule(e, FeatureOcclusion, e.registry.NewOccluder, cfg.OcclusionImpl, setup)
		if err != nil {
			e.degrade(&cfg.EnableOcclusion, FeatureOcclusion, err)
		} else {
			e.occluder = m
		}
	}
	if cfg.EnableReverb {
		m, err := loadModule(e, FeatureReverb, e.registry.NewReverb, cfg.ReverbImpl, setup)
		if err != nil {
			e.degrade(&cfg.EnableReverb, FeatureReverb, err)
		} else {
			e.reverb = m
		}
	}
	if cfg.EnableCompression {
		m, err := loadModule(e, FeatureCompression, e.registry.NewCompressor, cfg.CompressorImpl, setup)
		if err != nil {
			e.degrade(&cfg.EnableCompression, FeatureCompression, err)
		} else {
			e.compressor = m
		}
	}
}

func loadModule[T effects.Module](e *Engine, feature string, create func(string) (T, error), impl string, setup effects.Setup) (mod T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			mod, err = zero, panicError(feature+" initialize", r)
		}
	}()

	m, err := create(impl)
	if err != nil {
		return mod, err
	}
	setup.Logger = e.loggers.NewLogger(feature)
	if err := m.Initialize(setup); err != nil {
		return mod, err
	}
	e.log.Debugf("%s module %s ready", feature, m.Name())
	return m, nil
}

func (e *Engine) degrade(flag *bool, feature string, err error) {
	*flag = false
	fe := &FeatureError{Feature: feature, Err: err}
	e.degraded = append(e.degraded, fe)
	e.log.Warnf("%v; continuing without it", fe)
}

func (e *Engine) modules() []effects.Module {
	var mods []effects.Module
	if e.spatializer != nil {
		mods = append(mods, e.spatializer)
	}
	if e.occluder != nil {
		mods = append(mods, e.occluder)
	}
	if e.reverb != nil {
		mods = append(mods, e.reverb)
	}
	if e.compressor != nil {
		mods = append(mods, e.compressor)
	}
	return mods
}

func (e *Engine) disposeModules() {
	for _, m := range e.modules() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Warnf("dispose %s: %v", m.Name(), panicError("dispose", r))
				}
			}()
			m.Dispose()
		}()
	}
}

func (e *Engine) forwardEnvironment() {
	if e.reverb != nil {
		e.reverb.UpdateEnvironment(e.env)
	}
	if e.occluder != nil {
		e.occluder.UpdateEnvironment(e.env)
	}
}

// Config returns the effective configuration. Features that failed to
// initialize read as disabled.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// DegradedFeatures returns the modules that failed during Initialize.
func (e *Engine) DegradedFeatures() []*FeatureError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*FeatureError(nil), e.degraded...)
}

// Initialized reports whether the engine is running.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateRunning
}

// CurrentTime returns the render time in seconds; start and stop delays
// are relative to it.
func (e *Engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clock == nil {
		return 0
	}
	return e.clock.now()
}

// CreateAudioSource adds a stopped source for buf. When the pool is full
// the oldest source is evicted first.
func (e *Engine) CreateAudioSource(buf *assets.Buffer, opts ...SourceOption) (SourceHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, _, err := e.createLocked(buf, opts)
	if err != nil {
		return SourceHandle{}, err
	}
	return SourceHandle{id: s.id, e: e}, nil
}

func (e *Engine) createLocked(buf *assets.Buffer, opts []SourceOption) (*Source, sourceSettings, error) {
	settings := defaultSourceSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if err := e.stateErr(); err != nil {
		return nil, settings, err
	}
	s, err := e.pool.create(buf, settings)
	return s, settings, err
}

// PlayAudio creates a source at position, places it for the current
// listener and starts it.
func (e *Engine) PlayAudio(buf *assets.Buffer, position scene.Vec3, opts ...SourceOption) (SourceHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, settings, err := e.createLocked(buf, opts)
	if err != nil {
		return SourceHandle{}, err
	}
	s.SetPosition(position)
	if err := e.pool.updateSource(s, e.listener, e.env); err != nil {
		e.log.Warnf("source %s: initial placement: %v", s.id, err)
	}
	s.Start(settings.when)
	return SourceHandle{id: s.id, e: e}, nil
}

// PlayAsset resolves key through the configured resolver and plays it.
func (e *Engine) PlayAsset(ctx context.Context, key string, position scene.Vec3, opts ...SourceOption) (SourceHandle, error) {
	if e.resolver == nil {
		return SourceHandle{}, ErrNoResolver
	}
	e.mu.Lock()
	err := e.stateErr()
	e.mu.Unlock()
	if err != nil {
		return SourceHandle{}, err
	}

	buf, err := e.resolver.Resolve(ctx, key)
	if err != nil {
		return SourceHandle{}, err
	}
	return e.PlayAudio(buf, position, opts...)
}

// UpdateListener moves and turns the listener. Sources follow on the next tick.
func (e *Engine) UpdateListener(position scene.Vec3, orientation scene.Orientation, velocity scene.Vec3) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.stateErr(); err != nil {
		return err
	}
	e.listener = scene.Listener{Position: position, Orientation: orientation, Velocity: velocity}
	return nil
}

// Listener returns the current listener.
func (e *Engine) Listener() scene.Listener {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listener
}

// UpdateEnvironment merges u into the environment and forwards the result
// to the reverb and occluder. An update that would leave the environment
// invalid is rejected and nothing changes.
func (e *Engine) UpdateEnvironment(u scene.EnvironmentUpdate) (scene.Environment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.stateErr(); err != nil {
		return e.env, err
	}

	merged := e.env.Merge(u)
	if err := merged.Validate(); err != nil {
		return e.env, fmt.Errorf("spatial: environment: %w", err)
	}
	e.env = merged
	e.forwardEnvironment()
	return merged, nil
}

// Environment returns the current environment.
func (e *Engine) Environment() scene.Environment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.env
}

// SetMasterVolume clamps v to [0,1], ramps the master gain to it and
// returns the applied value.
func (e *Engine) SetMasterVolume(v float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.stateErr(); err != nil {
		return 0, err
	}
	return e.master.SetVolume(v), nil
}

// MasterVolume returns the target master volume.
func (e *Engine) MasterVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.master == nil {
		return 0
	}
	return e.master.Volume()
}

// AnalysisData returns the output spectrum and waveform. ok is false when
// the engine is not running or the tap is disabled.
func (e *Engine) AnalysisData() (analysis.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateRunning {
		return analysis.Snapshot{}, false
	}
	return e.master.AnalysisData()
}

// PerformanceMetrics returns the latest load estimates.
func (e *Engine) PerformanceMetrics() PerformanceMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.monitor == nil {
		return PerformanceMetrics{}
	}
	return e.monitor.Metrics()
}

// EngineStats is an aggregate view for diagnostics.
type EngineStats struct {
	Initialized   bool
	ActiveSources int
	PlayingCount  int
	MaxSources    int
	Features      Features
	Degraded      []string
	Listener      scene.Listener
	Environment   scene.Environment
	MasterVolume  float64
	GainReduction float64
	CurrentTime   float64
	Performance   PerformanceMetrics
}

// Statistics returns an aggregate snapshot of the engine.
func (e *Engine) Statistics() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := EngineStats{
		Initialized: e.state == stateRunning,
		MaxSources:  e.cfg.MaxAudioSources,
		Features:    e.cfg.Features(),
		Listener:    e.listener,
		Environment: e.env,
	}
	for _, fe := range e.degraded {
		st.Degraded = append(st.Degraded, fe.Feature)
	}
	if e.pool == nil {
		return st
	}
	st.ActiveSources = e.pool.Len()
	for _, s := range e.pool.ordered {
		if s.IsPlaying() {
			st.PlayingCount++
		}
	}
	st.MasterVolume = e.master.Volume()
	st.GainReduction = e.master.GainReduction()
	st.CurrentTime = e.clock.now()
	st.Performance = e.monitor.Metrics()
	return st
}

// Tick runs one update pass: every source is re-placed against the
// listener, finished sources are removed and the metrics are refreshed.
// With ManualUpdates this is the only way sources are updated.
func (e *Engine) Tick() (TickResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.stateErr(); err != nil {
		return TickResult{}, err
	}
	return e.tickLocked(), nil
}

func (e *Engine) scheduledTick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateRunning {
		return
	}
	e.tickLocked()
}

func (e *Engine) tickLocked() TickResult {
	start := e.now()

	res := e.pool.Tick(e.listener, e.env)
	for _, m := range e.modules() {
		e.updateModule(m)
	}
	if n := len(res.Removed); n > 0 {
		e.log.Tracef("removed %d finished sources", n)
	}

	elapsed := e.now().Sub(start)
	e.monitor.update(e.pool.Len(), e.cfg.Features(), e.device.Latency()+e.cfg.UpdateInterval, elapsed)
	return res
}

func (e *Engine) updateModule(m effects.Module) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warnf("%s update: %v", m.Name(), panicError("update", r))
		}
	}()
	m.Update()
}

// Render mixes one buffer of output. The audio device calls it on the
// render thread; it never blocks on the update thread.
func (e *Engine) Render(left, right []float32) {
	e.renderMu.Lock()
	defer e.renderMu.Unlock()

	n := min(len(left), len(right))
	left, right = left[:n], right[:n]
	clear(left)
	clear(right)
	if !e.live.Load() {
		return
	}

	// rendered counts frames the clock has already advanced over. After a
	// panic the clock still covers the whole buffer so scheduled starts and
	// stops stay aligned with device time.
	rendered := 0
	defer func() {
		if r := recover(); r != nil {
			clear(left)
			clear(right)
			e.clock.advance(n - rendered)
			e.log.Errorf("render: %v", panicError("render", r))
		}
	}()

	for off := 0; off < n; off += e.bus.block {
		end := min(off+e.bus.block, n)
		start := e.now()
		replaced := e.renderBlock(left[off:end], right[off:end])
		rendered = end
		e.monitor.recordRender(e.now().Sub(start), replaced)
	}
}

func (e *Engine) renderBlock(left, right []float32) int {
	n := len(left)
	b := &e.bus
	sendL, sendR := b.sendL[:n], b.sendR[:n]
	clear(sendL)
	clear(sendR)

	frame0 := e.clock.frames.Load()
	for _, s := range e.pool.renderList() {
		s.render(frame0, left, right, sendL, sendR, b.scratch)
	}

	if e.reverb != nil {
		retL, retR := b.retL[:n], b.retR[:n]
		e.reverb.Process(sendL, sendR, retL, retR)
		dsp.Add(left, retL)
		dsp.Add(right, retR)
	}

	replaced := debug.Sanitize(left) + debug.Sanitize(right)
	e.master.process(left, right)
	e.clock.advance(n)
	return replaced
}

// Dispose stops output, releases every source and module, then stops the
// scheduler. The engine cannot be initialized again.
func (e *Engine) Dispose() error {
	e.mu.Lock()
	if e.state != stateRunning {
		e.state = stateDisposed
		e.mu.Unlock()
		return nil
	}
	e.state = stateDisposed

	e.renderMu.Lock()
	e.live.Store(false)
	e.renderMu.Unlock()

	err := e.device.Close()
	e.pool.disposeAll()
	e.disposeModules()
	sched := e.scheduler
	e.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
	e.log.Info("disposed")
	return err
}
