package spatial

import (
	"context"
	"errors"
	"io"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justyntemme/spatial3d/pkg/assets"
	"github.com/justyntemme/spatial3d/pkg/backend"
	"github.com/justyntemme/spatial3d/pkg/effects"
	"github.com/justyntemme/spatial3d/pkg/framework/debug"
	"github.com/justyntemme/spatial3d/pkg/scene"
	"github.com/pion/logging"
)

func quietLogger() Option {
	return WithLogger(debug.NewFactory(io.Discard, logging.LogLevelDisabled))
}

func manualConfig() Config {
	cfg := DefaultConfig()
	cfg.ManualUpdates = true
	cfg.SampleRate = testRate
	cfg.BlockSize = 256
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, opts ...Option) (*Engine, *backend.Offline) {
	t.Helper()
	dev := backend.NewOffline(testRate, 256)
	opts = append([]Option{quietLogger(), WithDeviceOpener(dev.Opener())}, opts...)
	e := New(opts...)
	if err := e.Initialize(cfg); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { e.Dispose() })
	return e, dev
}

// failingReverb refuses to initialize.
type failingReverb struct {
	*effects.PassthroughReverb
}

func (failingReverb) Initialize(effects.Setup) error {
	return errors.New("no impulse response")
}

// panickingHRTF panics during initialization.
type panickingHRTF struct {
	*effects.PassthroughSpatializer
}

func (panickingHRTF) Initialize(effects.Setup) error {
	panic("bad table")
}

// explodingReverb panics on its first block.
type explodingReverb struct {
	*effects.PassthroughReverb
	calls atomic.Int32
}

func (r *explodingReverb) Process(inL, inR, outL, outR []float32) {
	if r.calls.Add(1) == 1 {
		panic("reverb blew up")
	}
	r.PassthroughReverb.Process(inL, inR, outL, outR)
}

func TestInitializeUnsupported(t *testing.T) {
	e := New(quietLogger(), WithDeviceOpener(backend.Unavailable))

	err := e.Initialize(manualConfig())
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Expected ErrUnsupported, got %v", err)
	}
	if e.Initialized() {
		t.Error("Engine should stay uninitialized")
	}
	if _, err := e.CreateAudioSource(toneBuffer(t, 64, 440)); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestInitializeTwice(t *testing.T) {
	e, _ := newTestEngine(t, manualConfig())
	if err := e.Initialize(manualConfig()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("Expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestInitializeRejectsBadConfig(t *testing.T) {
	e := New(quietLogger(), WithDeviceOpener(backend.NewOffline(testRate, 256).Opener()))
	cfg := manualConfig()
	cfg.MaxAudioSources = 0
	if err := e.Initialize(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestDegradedInit(t *testing.T) {
	reg := effects.DefaultRegistry()
	reg.Register(effects.KindReverb, "broken", func() effects.Module {
		return failingReverb{effects.NewPassthroughReverb()}
	})
	reg.Register(effects.KindHRTF, "panicky", func() effects.Module {
		return panickingHRTF{effects.NewPassthroughSpatializer()}
	})

	cfg := manualConfig()
	cfg.ReverbImpl = "broken"
	cfg.HRTFImpl = "panicky"
	e, dev := newTestEngine(t, cfg, WithRegistry(reg))

	got := e.Config()
	if got.EnableReverb || got.EnableHRTF {
		t.Error("Failed features should be disabled")
	}
	if !got.EnableCompression || !got.EnableOcclusion {
		t.Error("Healthy features should stay enabled")
	}

	degraded := e.DegradedFeatures()
	if len(degraded) != 2 {
		t.Fatalf("Expected 2 degraded features, got %v", degraded)
	}
	names := map[string]bool{}
	for _, fe := range degraded {
		names[fe.Feature] = true
	}
	if !names[FeatureReverb] || !names[FeatureHRTF] {
		t.Errorf("Expected reverb and hrtf degraded, got %v", names)
	}

	// The engine still plays with the equal-power fallback
	if _, err := e.PlayAudio(toneBuffer(t, 4800, 440), scene.Vec3{X: 2}); err != nil {
		t.Fatalf("PlayAudio failed: %v", err)
	}
	l, r, _ := dev.Pull(1024)
	if energy(r) <= energy(l) {
		t.Error("Expected the right channel louder for a source on the right")
	}
}

func TestUnknownModuleDegrades(t *testing.T) {
	cfg := manualConfig()
	cfg.CompressorImpl = "does-not-exist"
	e, _ := newTestEngine(t, cfg)

	if e.Config().EnableCompression {
		t.Error("Unknown compressor should disable compression")
	}
	degraded := e.DegradedFeatures()
	if len(degraded) != 1 || !errors.Is(degraded[0], effects.ErrUnknownModule) {
		t.Errorf("Expected ErrUnknownModule, got %v", degraded)
	}
}

func TestCreateAudioSourceRejectsEmptyBuffer(t *testing.T) {
	e, _ := newTestEngine(t, manualConfig())

	if _, err := e.CreateAudioSource(nil); !errors.Is(err, ErrInvalidBuffer) {
		t.Errorf("Expected ErrInvalidBuffer, got %v", err)
	}
	if n := e.Statistics().ActiveSources; n != 0 {
		t.Errorf("Expected no sources, got %d", n)
	}
}

func TestEngineEviction(t *testing.T) {
	cfg := manualConfig()
	cfg.MaxAudioSources = 2
	e, _ := newTestEngine(t, cfg)
	buf := toneBuffer(t, 4800, 440)

	a, _ := e.PlayAudio(buf, scene.Vec3{})
	b, _ := e.PlayAudio(buf, scene.Vec3{})
	c, _ := e.PlayAudio(buf, scene.Vec3{})

	if _, err := a.State(); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("Expected A evicted, got %v", err)
	}
	for _, h := range []SourceHandle{b, c} {
		if _, err := h.State(); err != nil {
			t.Errorf("Expected source active, got %v", err)
		}
	}
	if n := e.Statistics().ActiveSources; n != 2 {
		t.Errorf("Expected 2 active sources, got %d", n)
	}
}

func TestEngineDistanceAndPlacement(t *testing.T) {
	e, _ := newTestEngine(t, manualConfig())

	h, err := e.PlayAudio(toneBuffer(t, 4800, 440), scene.Vec3{X: 3, Y: 4})
	if err != nil {
		t.Fatalf("PlayAudio failed: %v", err)
	}
	if _, err := e.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	st, _ := h.State()
	if st.Distance != 5 {
		t.Errorf("Expected distance 5, got %f", st.Distance)
	}
	if st.Placement.DistanceGain != 0.2 {
		t.Errorf("Expected distance gain 0.2, got %f", st.Placement.DistanceGain)
	}
	if st.Placement.RightGain <= st.Placement.LeftGain {
		t.Error("Source on the right should favour the right ear")
	}
	if st.Placement.LeftDelay <= 0 {
		t.Error("Far ear should be delayed")
	}

	// Listener walks to the source's other side
	e.UpdateListener(scene.Vec3{X: 6}, scene.DefaultOrientation(), scene.Vec3{})
	e.Tick()
	st, _ = h.State()
	if st.Placement.LeftGain <= st.Placement.RightGain {
		t.Error("After moving the listener the source should favour the left ear")
	}
}

func TestEngineHandleClamping(t *testing.T) {
	e, _ := newTestEngine(t, manualConfig())
	h, _ := e.CreateAudioSource(toneBuffer(t, 64, 440))

	if v, _ := h.SetVolume(-0.5); v != 0 {
		t.Errorf("Expected 0, got %f", v)
	}
	if v, _ := h.SetVolume(1.5); v != 1 {
		t.Errorf("Expected 1, got %f", v)
	}
	if a, _ := h.SetOcclusionAmount(1); a != 1 {
		t.Errorf("Expected 1, got %f", a)
	}
	st, _ := h.State()
	if st.Cutoff > 0.1*e.Config().MaxCutoff+1e-9 {
		t.Errorf("Expected full occlusion cutoff, got %f", st.Cutoff)
	}
}

func TestMasterVolumeClampAndRamp(t *testing.T) {
	cfg := manualConfig()
	cfg.EnableCompression = false
	cfg.EnableReverb = false
	e, dev := newTestEngine(t, cfg)

	if v, _ := e.SetMasterVolume(2.0); v != 1.0 {
		t.Errorf("Expected applied volume 1.0, got %f", v)
	}
	if v, _ := e.SetMasterVolume(-1); v != 0 {
		t.Errorf("Expected applied volume 0, got %f", v)
	}

	e.PlayAudio(toneBuffer(t, 48000, 440), scene.Vec3{Z: -1}, WithLoop())
	l, _, _ := dev.Pull(4096)
	if energy(l[:64]) == 0 {
		t.Error("Master gain should ramp down, not jump")
	}
	if tail := energy(l[2048:]); tail != 0 {
		t.Errorf("Expected silence once the ramp completes, got %g", tail)
	}
}

func TestEnvironmentMerge(t *testing.T) {
	e, _ := newTestEngine(t, manualConfig())
	before := e.Environment()

	large := scene.RoomLarge
	merged, err := e.UpdateEnvironment(scene.EnvironmentUpdate{RoomSize: &large})
	if err != nil {
		t.Fatalf("UpdateEnvironment failed: %v", err)
	}

	want := before
	want.RoomSize = scene.RoomLarge
	if merged != want || e.Environment() != want {
		t.Errorf("Expected only room size changed, got %+v", merged)
	}

	bad := 2.0
	if _, err := e.UpdateEnvironment(scene.EnvironmentUpdate{Dampening: &bad}); err == nil {
		t.Error("Expected invalid dampening rejected")
	}
	if e.Environment() != want {
		t.Error("Rejected update should not change the environment")
	}
}

func TestEnvironmentRejectsNonFinite(t *testing.T) {
	e, dev := newTestEngine(t, manualConfig())
	before := e.Environment()

	nan, inf := math.NaN(), math.Inf(1)
	tests := []struct {
		name   string
		update scene.EnvironmentUpdate
	}{
		{"reverb time", scene.EnvironmentUpdate{ReverbTime: &nan}},
		{"temperature", scene.EnvironmentUpdate{Temperature: &nan}},
		{"dampening", scene.EnvironmentUpdate{Dampening: &nan}},
		{"air absorption", scene.EnvironmentUpdate{AirAbsorption: &inf}},
		{"humidity", scene.EnvironmentUpdate{Humidity: &nan}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.UpdateEnvironment(tt.update); err == nil {
				t.Error("Expected a non-finite value rejected")
			}
			if e.Environment() != before {
				t.Errorf("Rejected update changed the environment to %+v", e.Environment())
			}
		})
	}

	// The engine keeps rendering and updating sources normally
	e.PlayAudio(toneBuffer(t, 4800, 440), scene.Vec3{X: 2}, WithReverbAmount(1))
	res, err := e.Tick()
	if err != nil || res.Updated != 1 || len(res.Errors) != 0 {
		t.Fatalf("Expected a clean tick, got %+v %v", res, err)
	}
	l, r, _ := dev.Pull(2048)
	if energy(l)+energy(r) == 0 {
		t.Error("Expected audible output")
	}
	if m := e.PerformanceMetrics(); m.NonFinite != 0 {
		t.Errorf("Expected no non-finite samples, got %d", m.NonFinite)
	}
}

func TestScheduledStopWaitsForRenderClock(t *testing.T) {
	e, dev := newTestEngine(t, manualConfig())

	h, _ := e.PlayAudio(toneBuffer(t, testRate, 440), scene.Vec3{Z: -1})
	if err := h.Stop(0.05); err != nil { // 2400 frames
		t.Fatalf("Stop failed: %v", err)
	}
	if st, _ := h.State(); st.Playing {
		t.Error("Stop should clear Playing immediately")
	}

	if res, _ := e.Tick(); len(res.Removed) != 0 {
		t.Errorf("Source removed before its stop time: %v", res.Removed)
	}
	dev.Pull(1024)
	if res, _ := e.Tick(); len(res.Removed) != 0 {
		t.Errorf("Source removed before the clock passed its stop time: %v", res.Removed)
	}

	l, _, _ := dev.Pull(2048)
	if energy(l[:2400-1024-240]) == 0 {
		t.Error("Expected audio until the stop time")
	}
	if tail := energy(l[2400-1024+16:]); tail > 1e-6 {
		t.Errorf("Expected silence after the stop time, got %g", tail)
	}

	res, _ := e.Tick()
	if len(res.Removed) != 1 || res.Removed[0] != h.ID() {
		t.Errorf("Expected the stopped source removed, got %v", res.Removed)
	}
	if _, err := h.State(); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("Expected ErrSourceNotFound, got %v", err)
	}
}

func TestRenderPanicKeepsClock(t *testing.T) {
	reg := effects.DefaultRegistry()
	reg.Register(effects.KindReverb, "exploding", func() effects.Module {
		return &explodingReverb{PassthroughReverb: effects.NewPassthroughReverb()}
	})
	cfg := manualConfig()
	cfg.ReverbImpl = "exploding"
	e, dev := newTestEngine(t, cfg, WithRegistry(reg))

	e.PlayAudio(toneBuffer(t, 4800, 440), scene.Vec3{Z: -1}, WithStartDelay(0.01)) // frame 480
	l, _, _ := dev.Pull(1024)

	if e.CurrentTime() != 1024.0/testRate {
		t.Errorf("Expected the clock to cover the failed block, got %f", e.CurrentTime())
	}
	if energy(l[:256]) != 0 {
		t.Error("Expected the failed block silenced")
	}
	if energy(l[256:480]) != 0 {
		t.Error("Expected silence before the scheduled start")
	}
	if energy(l[490:736]) == 0 {
		t.Error("Expected the source to start on time after the failed block")
	}
}

func TestEngineEvictionOrder(t *testing.T) {
	cfg := manualConfig()
	cfg.MaxAudioSources = 4
	e, dev := newTestEngine(t, cfg)
	buf := toneBuffer(t, testRate, 440)

	idleOld, _ := e.CreateAudioSource(buf)
	dev.Pull(4800)
	early, _ := e.PlayAudio(buf, scene.Vec3{Z: -1})
	idleNew, _ := e.CreateAudioSource(buf)
	late, _ := e.PlayAudio(buf, scene.Vec3{Z: -1}, WithStartDelay(0.5))

	// Unstarted sources go first, oldest first, then the earliest start
	for _, victim := range []struct {
		name string
		h    SourceHandle
	}{
		{"older unstarted", idleOld},
		{"newer unstarted", idleNew},
		{"earliest start", early},
	} {
		if _, err := e.PlayAudio(buf, scene.Vec3{Z: -1}); err != nil {
			t.Fatalf("PlayAudio failed: %v", err)
		}
		if _, err := victim.h.State(); !errors.Is(err, ErrSourceNotFound) {
			t.Errorf("Expected the %s source evicted, got %v", victim.name, err)
		}
	}
	if _, err := late.State(); err != nil {
		t.Errorf("Expected the latest scheduled source kept, got %v", err)
	}
	if n := e.Statistics().ActiveSources; n != 4 {
		t.Errorf("Expected a full pool of 4, got %d", n)
	}
}

func TestFinishedSourceRemovedOnTick(t *testing.T) {
	e, dev := newTestEngine(t, manualConfig())

	h, _ := e.PlayAudio(toneBuffer(t, 100, 440), scene.Vec3{Z: -1})
	if _, err := e.Tick(); err != nil {
		t.Fatal(err)
	}
	if st, err := h.State(); err != nil || !st.Playing {
		t.Fatalf("Expected the source playing before render, got %+v %v", st, err)
	}

	dev.Pull(512)
	res, _ := e.Tick()
	if len(res.Removed) != 1 {
		t.Errorf("Expected the finished source removed, got %v", res.Removed)
	}
	if _, err := h.State(); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("Expected ErrSourceNotFound, got %v", err)
	}

	stopped, _ := e.PlayAudio(toneBuffer(t, 4800, 440), scene.Vec3{Z: -1})
	stopped.Stop(0)
	e.Tick()
	if _, err := stopped.State(); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("Expected the stopped source removed, got %v", err)
	}
}

func TestPlayAsset(t *testing.T) {
	buf := toneBuffer(t, 4800, 440)
	resolver := assets.ResolverFunc(func(ctx context.Context, key string) (*assets.Buffer, error) {
		if key == "hit.wav" {
			return buf, nil
		}
		return nil, &assets.UnavailableError{Key: key, Err: errors.New("missing")}
	})

	e, _ := newTestEngine(t, manualConfig(), WithResolver(resolver))
	ctx := context.Background()

	h, err := e.PlayAsset(ctx, "hit.wav", scene.Vec3{X: 1}, WithVolume(0.5))
	if err != nil {
		t.Fatalf("PlayAsset failed: %v", err)
	}
	if st, _ := h.State(); !st.Playing || st.Volume != 0.5 {
		t.Errorf("Unexpected state %+v", st)
	}

	if _, err := e.PlayAsset(ctx, "nope.wav", scene.Vec3{}); !errors.Is(err, assets.ErrBufferUnavailable) {
		t.Errorf("Expected ErrBufferUnavailable, got %v", err)
	}

	plain, _ := newTestEngine(t, manualConfig())
	if _, err := plain.PlayAsset(ctx, "hit.wav", scene.Vec3{}); !errors.Is(err, ErrNoResolver) {
		t.Errorf("Expected ErrNoResolver, got %v", err)
	}
}

func TestRenderMixesReverbAndAnalysis(t *testing.T) {
	e, dev := newTestEngine(t, manualConfig())

	e.PlayAudio(toneBuffer(t, 2400, 1000), scene.Vec3{Z: -2}, WithReverbAmount(1))
	dev.Pull(4800)

	// Reverb tail continues after the dry signal ends
	l, r, _ := dev.Pull(2048)
	if energy(l)+energy(r) == 0 {
		t.Error("Expected a reverb tail after the source ended")
	}

	snap, ok := e.AnalysisData()
	if !ok {
		t.Fatal("Expected analysis data")
	}
	if len(snap.TimeDomain) != 2048 || len(snap.Frequency) != 1024 {
		t.Errorf("Unexpected snapshot sizes %d/%d", len(snap.TimeDomain), len(snap.Frequency))
	}

	if e.CurrentTime() != float64(4800+2048)/testRate {
		t.Errorf("Unexpected render time %f", e.CurrentTime())
	}
}

func TestAnalysisDisabled(t *testing.T) {
	cfg := manualConfig()
	cfg.AnalysisSize = 0
	e, _ := newTestEngine(t, cfg)
	if _, ok := e.AnalysisData(); ok {
		t.Error("Expected no analysis data without a tap")
	}
}

func TestPerformanceMetrics(t *testing.T) {
	var ticks atomic.Int64
	clock := func() time.Time {
		// Each reading is 40ms after the previous one
		return time.Unix(0, ticks.Add(1)*int64(40*time.Millisecond))
	}

	e, _ := newTestEngine(t, manualConfig(), WithClock(clock))
	buf := toneBuffer(t, 4800, 440)
	e.PlayAudio(buf, scene.Vec3{X: 1})
	e.PlayAudio(buf, scene.Vec3{X: -1})
	e.Tick()

	m := e.PerformanceMetrics()
	if m.ActiveSources != 2 {
		t.Errorf("Expected 2 active sources, got %d", m.ActiveSources)
	}
	if m.CPUUsage != estimateCPU(2, DefaultConfig().Features()) {
		t.Errorf("Unexpected CPU estimate %f", m.CPUUsage)
	}
	if m.MemoryUsage != 2*bytesPerSource {
		t.Errorf("Unexpected memory estimate %d", m.MemoryUsage)
	}
	if m.TickDuration != 40*time.Millisecond {
		t.Errorf("Expected a 40ms tick, got %v", m.TickDuration)
	}
	if m.Dropouts != 1 {
		t.Errorf("Expected the slow tick counted as a dropout, got %d", m.Dropouts)
	}
	want := 256*time.Second/testRate + 16*time.Millisecond
	if m.Latency != want {
		t.Errorf("Expected latency %v, got %v", want, m.Latency)
	}
}

func TestDispose(t *testing.T) {
	e, dev := newTestEngine(t, manualConfig())
	h, _ := e.PlayAudio(toneBuffer(t, 4800, 440), scene.Vec3{})

	if err := e.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if err := e.Dispose(); err != nil {
		t.Errorf("Second Dispose should be a no-op, got %v", err)
	}

	if _, err := h.State(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed from handle, got %v", err)
	}
	if _, err := e.Tick(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed from Tick, got %v", err)
	}
	if err := e.Initialize(manualConfig()); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed from Initialize, got %v", err)
	}
	if _, _, err := dev.Pull(64); !errors.Is(err, backend.ErrClosed) {
		t.Errorf("Expected the device closed, got %v", err)
	}
}

func TestRenderWithoutEngine(t *testing.T) {
	e := New(quietLogger())
	l, r := []float32{1, 1}, []float32{1, 1}
	e.Render(l, r)
	if l[0] != 0 || r[1] != 0 {
		t.Error("An idle engine should render silence")
	}
}

func TestSchedulerDrivesUpdates(t *testing.T) {
	cfg := manualConfig()
	cfg.ManualUpdates = false
	cfg.UpdateInterval = 2 * time.Millisecond
	e, dev := newTestEngine(t, cfg)

	e.PlayAudio(toneBuffer(t, 100, 440), scene.Vec3{Z: -1})
	dev.Pull(512)

	deadline := time.Now().Add(2 * time.Second)
	for e.Statistics().ActiveSources != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Scheduler never removed the finished source")
		}
		time.Sleep(time.Millisecond)
	}
}

func BenchmarkEngineRender(b *testing.B) {
	dev := backend.NewOffline(testRate, 256)
	e := New(quietLogger(), WithDeviceOpener(dev.Opener()))
	if err := e.Initialize(manualConfig()); err != nil {
		b.Fatalf("Initialize failed: %v", err)
	}
	defer e.Dispose()

	buf := toneBuffer(b, testRate, 440)
	for i := 0; i < 16; i++ {
		if _, err := e.PlayAudio(buf, scene.Vec3{X: float64(i - 8), Z: -3}, WithLoop()); err != nil {
			b.Fatalf("PlayAudio failed: %v", err)
		}
	}
	e.Tick()

	left := make([]float32, 256)
	right := make([]float32, 256)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Render(left, right)
	}
}
