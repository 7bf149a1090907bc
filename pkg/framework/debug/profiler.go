package debug

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Profiler records timing statistics for named sections against an optional
// time budget. A section that takes longer than its budget counts as an overrun.
type Profiler struct {
	mu           sync.RWMutex
	measurements map[string]*Measurement
	budgets      map[string]time.Duration
	enabled      atomic.Bool
	maxSamples   int
	now          func() time.Time
}

// Measurement holds timing statistics for a profiled section.
type Measurement struct {
	Name     string
	Count    uint64
	Total    time.Duration
	Min      time.Duration
	Max      time.Duration
	Last     time.Duration
	Overruns uint64

	samples     []time.Duration
	sampleIndex int
}

// NewProfiler creates a new profiler keeping the last maxSamples timings per section.
func NewProfiler(maxSamples int) *Profiler {
	if maxSamples < 1 {
		maxSamples = 1
	}
	p := &Profiler{
		measurements: make(map[string]*Measurement),
		budgets:      make(map[string]time.Duration),
		maxSamples:   maxSamples,
		now:          time.Now,
	}
	p.enabled.Store(true)
	return p
}

// SetEnabled enables or disables profiling.
func (p *Profiler) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// SetBudget sets the time allowed for a section. Zero removes the budget.
func (p *Profiler) SetBudget(name string, budget time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if budget <= 0 {
		delete(p.budgets, name)
		return
	}
	p.budgets[name] = budget
}

// Start begins timing a named section. Call the returned func to stop.
func (p *Profiler) Start(name string) func() {
	if !p.enabled.Load() {
		return func() {}
	}

	start := p.now()
	return func() {
		p.Record(name, p.now().Sub(start))
	}
}

// Record stores a timing measurement and reports whether it overran its budget.
func (p *Profiler) Record(name string, elapsed time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, exists := p.measurements[name]
	if !exists {
		m = &Measurement{
			Name:    name,
			Min:     elapsed,
			Max:     elapsed,
			samples: make([]time.Duration, 0, p.maxSamples),
		}
		p.measurements[name] = m
	}

	m.Count++
	m.Total += elapsed
	m.Last = elapsed
	if elapsed < m.Min {
		m.Min = elapsed
	}
	if elapsed > m.Max {
		m.Max = elapsed
	}

	if len(m.samples) < p.maxSamples {
		m.samples = append(m.samples, elapsed)
	} else {
		m.samples[m.sampleIndex] = elapsed
	}
	m.sampleIndex = (m.sampleIndex + 1) % p.maxSamples

	overrun := false
	if budget, ok := p.budgets[name]; ok && elapsed > budget {
		m.Overruns++
		overrun = true
	}
	return overrun
}

// Measurement returns a copy of the statistics for a named section.
func (p *Profiler) Measurement(name string) (Measurement, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, exists := p.measurements[name]
	if !exists {
		return Measurement{}, false
	}
	c := *m
	c.samples = append([]time.Duration(nil), m.samples...)
	return c, true
}

// Overruns returns the total number of budget overruns across all sections.
func (p *Profiler) Overruns() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var total uint64
	for _, m := range p.measurements {
		total += m.Overruns
	}
	return total
}

// Reset clears all measurements. Budgets are kept.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.measurements = make(map[string]*Measurement)
}

// Report generates a performance report sorted by section name.
func (p *Profiler) Report() string {
	p.mu.RLock()
	names := make([]string, 0, len(p.measurements))
	for name := range p.measurements {
		names = append(names, name)
	}
	p.mu.RUnlock()

	if len(names) == 0 {
		return "No measurements recorded"
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Performance Report:\n")
	sb.WriteString("==================\n\n")
	for _, name := range names {
		m, _ := p.Measurement(name)
		fmt.Fprintf(&sb, "%s:\n", name)
		fmt.Fprintf(&sb, "  Count:    %d\n", m.Count)
		fmt.Fprintf(&sb, "  Average:  %v\n", m.Average())
		fmt.Fprintf(&sb, "  P95:      %v\n", m.Percentile(95))
		fmt.Fprintf(&sb, "  Min:      %v\n", m.Min)
		fmt.Fprintf(&sb, "  Max:      %v\n", m.Max)
		fmt.Fprintf(&sb, "  Overruns: %d\n\n", m.Overruns)
	}
	return sb.String()
}

// Average returns the average time for this measurement.
func (m Measurement) Average() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.Total / time.Duration(m.Count)
}

// Percentile returns the p-th percentile (0-100) of the retained samples.
func (m Measurement) Percentile(p float64) time.Duration {
	if len(m.samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), m.samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * p / 100.0)
	return sorted[index]
}
