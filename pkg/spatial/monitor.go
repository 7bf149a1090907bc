package spatial

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/justyntemme/spatial3d/pkg/framework/debug"
)

// CPU cost model, in percent per active source. Binaural rendering is the
// most expensive stage, then ray-cast occlusion, then the reverb send.
const (
	cpuPerSource    = 0.5
	cpuHRTF         = 1.5
	cpuOcclusion    = 0.75
	cpuReverb       = 0.25
	cpuCompressor   = 2.0
	cpuCeiling      = 100.0
	bytesPerSource  = 64 << 10
	profileTick     = "tick"
	profileRender   = "render"
	profilerSamples = 256
)

// PerformanceMetrics is a snapshot of engine load.
type PerformanceMetrics struct {
	ActiveSources int
	// CPUUsage is a model estimate in percent, capped at 100.
	CPUUsage float64
	// MemoryUsage estimates bytes held by the source chains.
	MemoryUsage int64
	// Latency is the output latency plus one update interval.
	Latency time.Duration
	// Dropouts counts ticks and render blocks that overran their budget.
	Dropouts     uint64
	TickDuration time.Duration
	// NonFinite counts output samples replaced because they were NaN or Inf.
	NonFinite uint64
}

// PerformanceMonitor derives load estimates once per tick and times the
// tick and render paths.
type PerformanceMonitor struct {
	profiler  *debug.Profiler
	nonFinite atomic.Uint64

	mu      sync.Mutex
	metrics PerformanceMetrics
}

func newPerformanceMonitor(interval, blockBudget time.Duration) *PerformanceMonitor {
	p := debug.NewProfiler(profilerSamples)
	p.SetBudget(profileTick, interval)
	p.SetBudget(profileRender, blockBudget)
	return &PerformanceMonitor{profiler: p}
}

// estimateCPU applies the per-source cost model.
func estimateCPU(active int, f Features) float64 {
	per := cpuPerSource
	if f.HRTF {
		per += cpuHRTF
	}
	if f.Occlusion {
		per += cpuOcclusion
	}
	if f.Reverb {
		per += cpuReverb
	}
	cpu := float64(active) * per
	if f.Compression {
		cpu += cpuCompressor
	}
	if cpu > cpuCeiling {
		cpu = cpuCeiling
	}
	return cpu
}

// update refreshes the estimates after a tick.
func (m *PerformanceMonitor) update(active int, f Features, latency, tick time.Duration) {
	m.profiler.Record(profileTick, tick)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.ActiveSources = active
	m.metrics.CPUUsage = estimateCPU(active, f)
	m.metrics.MemoryUsage = int64(active) * bytesPerSource
	m.metrics.Latency = latency
	m.metrics.TickDuration = tick
}

// recordRender times one render call. Safe on the render thread.
func (m *PerformanceMonitor) recordRender(elapsed time.Duration, replaced int) {
	m.profiler.Record(profileRender, elapsed)
	if replaced > 0 {
		m.nonFinite.Add(uint64(replaced))
	}
}

// Metrics returns the latest snapshot.
func (m *PerformanceMonitor) Metrics() PerformanceMetrics {
	m.mu.Lock()
	out := m.metrics
	m.mu.Unlock()

	out.Dropouts = m.profiler.Overruns()
	out.NonFinite = m.nonFinite.Load()
	return out
}

// Report returns the profiler's timing table.
func (m *PerformanceMonitor) Report() string {
	return m.profiler.Report()
}
