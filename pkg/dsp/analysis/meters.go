package analysis

import (
	"math"
	"sync"
)

// PeakMeter measures peak signal levels
type PeakMeter struct {
	peak       float64
	hold       float64
	holdTime   float64
	decayRate  float64
	sampleRate float64
	holdCount  int
	mu         sync.Mutex
}

// NewPeakMeter creates a new peak meter
func NewPeakMeter(sampleRate float64) *PeakMeter {
	return &PeakMeter{
		sampleRate: sampleRate,
		holdTime:   1.5,  // seconds
		decayRate:  20.0, // dB/second
	}
}

// Process updates the peak meter with a block of stereo samples
func (pm *PeakMeter) Process(left, right []float32) {
	blockPeak := 0.0
	for _, s := range left {
		if a := math.Abs(float64(s)); a > blockPeak {
			blockPeak = a
		}
	}
	for _, s := range right {
		if a := math.Abs(float64(s)); a > blockPeak {
			blockPeak = a
		}
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	n := len(left)
	decayPerSample := pm.decayRate / pm.sampleRate / 20.0 * math.Ln10
	pm.peak *= math.Exp(-decayPerSample * float64(n))

	if blockPeak > pm.peak {
		pm.peak = blockPeak
	}

	if blockPeak > pm.hold {
		pm.hold = blockPeak
		pm.holdCount = int(pm.holdTime * pm.sampleRate)
	} else {
		pm.holdCount -= n
		if pm.holdCount <= 0 {
			pm.hold = pm.peak
			pm.holdCount = 0
		}
	}
}

// Peak returns the current peak level (linear)
func (pm *PeakMeter) Peak() float64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.peak
}

// PeakDB returns the current peak level in decibels
func (pm *PeakMeter) PeakDB() float64 {
	return toDB(pm.Peak())
}

// Hold returns the held peak level (linear)
func (pm *PeakMeter) Hold() float64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.hold
}

// Reset clears the peak and hold values
func (pm *PeakMeter) Reset() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.peak = 0
	pm.hold = 0
	pm.holdCount = 0
}

// RMSMeter measures RMS (Root Mean Square) levels of a mono-summed signal
type RMSMeter struct {
	windowSize int
	buffer     []float64
	writePos   int
	sum        float64
	count      int
	mu         sync.Mutex
}

// NewRMSMeter creates a new RMS meter with specified window size
func NewRMSMeter(windowSizeSamples int) *RMSMeter {
	if windowSizeSamples < 1 {
		windowSizeSamples = 1
	}
	return &RMSMeter{
		windowSize: windowSizeSamples,
		buffer:     make([]float64, windowSizeSamples),
	}
}

// Process updates the RMS meter with new stereo samples
func (rm *RMSMeter) Process(left, right []float32) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	for i := 0; i < n; i++ {
		sample := 0.5 * float64(left[i]+right[i])

		old := rm.buffer[rm.writePos]
		rm.sum -= old * old

		rm.buffer[rm.writePos] = sample
		rm.sum += sample * sample

		rm.writePos = (rm.writePos + 1) % rm.windowSize
		if rm.count < rm.windowSize {
			rm.count++
		}
	}
	// Running sums drift below zero on silence after long runs
	if rm.sum < 0 {
		rm.sum = 0
	}
}

// RMS returns the current RMS level (linear)
func (rm *RMSMeter) RMS() float64 {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.count == 0 {
		return 0
	}
	return math.Sqrt(rm.sum / float64(rm.count))
}

// RMSDB returns the current RMS level in decibels
func (rm *RMSMeter) RMSDB() float64 {
	return toDB(rm.RMS())
}

// Reset clears the RMS buffer
func (rm *RMSMeter) Reset() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for i := range rm.buffer {
		rm.buffer[i] = 0
	}
	rm.sum = 0
	rm.count = 0
	rm.writePos = 0
}

func toDB(linear float64) float64 {
	if linear > 0 {
		return 20.0 * math.Log10(linear)
	}
	return math.Inf(-1)
}
