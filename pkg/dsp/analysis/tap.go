package analysis

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Snapshot is a point-in-time view of the analysed signal.
type Snapshot struct {
	// TimeDomain holds the most recent mono-summed samples, oldest first.
	TimeDomain []float32
	// Frequency holds magnitudes in dB for bins 0..size/2-1.
	Frequency []float64
	// BinWidth is the frequency spacing of Frequency in Hz.
	BinWidth float64
	Peak     float64
	// PeakHold is the highest recent peak, held for 1.5 s before it falls
	// back to Peak.
	PeakHold float64
	PeakDB   float64
	RMS      float64
	RMSDB    float64
}

// PeakFrequency returns the centre frequency of the loudest bin, skipping DC.
func (s Snapshot) PeakFrequency() float64 {
	best := 1
	if len(s.Frequency) < 2 {
		return 0
	}
	for i := 2; i < len(s.Frequency); i++ {
		if s.Frequency[i] > s.Frequency[best] {
			best = i
		}
	}
	return float64(best) * s.BinWidth
}

// Tap collects the last size samples of a stereo stream.
type Tap struct {
	size       int
	sampleRate float64
	ring       []float32
	pos        int
	filled     int
	window     []float64
	windowSum  float64
	peak       *PeakMeter
	rms        *RMSMeter
	mu         sync.Mutex
}

// NewTap creates an analysis tap holding size samples.
func NewTap(size int, sampleRate float64) *Tap {
	if size < 2 {
		size = 2
	}
	w := window.Hann(size)
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return &Tap{
		size:       size,
		sampleRate: sampleRate,
		ring:       make([]float32, size),
		window:     w,
		windowSum:  sum,
		peak:       NewPeakMeter(sampleRate),
		rms:        NewRMSMeter(size),
	}
}

// Size returns the analysis window length.
func (t *Tap) Size() int { return t.size }

// Write feeds a block of output into the tap. Called from the render thread.
func (t *Tap) Write(left, right []float32) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}

	t.mu.Lock()
	for i := 0; i < n; i++ {
		t.ring[t.pos] = 0.5 * (left[i] + right[i])
		t.pos = (t.pos + 1) % t.size
	}
	if t.filled < t.size {
		t.filled += n
		if t.filled > t.size {
			t.filled = t.size
		}
	}
	t.mu.Unlock()

	t.peak.Process(left[:n], right[:n])
	t.rms.Process(left[:n], right[:n])
}

// Snapshot copies the ring buffer and computes its windowed spectrum.
func (t *Tap) Snapshot() Snapshot {
	timeDomain := make([]float32, t.size)

	t.mu.Lock()
	copy(timeDomain, t.ring[t.pos:])
	copy(timeDomain[t.size-t.pos:], t.ring[:t.pos])
	t.mu.Unlock()

	windowed := make([]float64, t.size)
	for i, s := range timeDomain {
		windowed[i] = float64(s) * t.window[i]
	}
	spectrum := fft.FFTReal(windowed)

	bins := t.size / 2
	freq := make([]float64, bins)
	norm := 2.0 / t.windowSum
	for k := 0; k < bins; k++ {
		freq[k] = toDB(cmplx.Abs(spectrum[k]) * norm)
		if math.IsInf(freq[k], -1) {
			freq[k] = -200
		}
	}

	return Snapshot{
		TimeDomain: timeDomain,
		Frequency:  freq,
		BinWidth:   t.sampleRate / float64(t.size),
		Peak:       t.peak.Peak(),
		PeakHold:   t.peak.Hold(),
		PeakDB:     t.peak.PeakDB(),
		RMS:        t.rms.RMS(),
		RMSDB:      t.rms.RMSDB(),
	}
}

// Reset clears all collected samples and meter state.
func (t *Tap) Reset() {
	t.mu.Lock()
	for i := range t.ring {
		t.ring[i] = 0
	}
	t.pos = 0
	t.filled = 0
	t.mu.Unlock()

	t.peak.Reset()
	t.rms.Reset()
}
