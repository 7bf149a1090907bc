// Package param provides race-tolerant parameters shared between the update
// and render threads, and smoothers that ramp them without zipper noise.
package param

import (
	"math"
)

// SmoothingType defines different parameter smoothing algorithms.
type SmoothingType int

const (
	// LinearSmoothing uses linear interpolation (gains)
	LinearSmoothing SmoothingType = iota
	// LogarithmicSmoothing interpolates in log space (frequencies)
	LogarithmicSmoothing
)

const minLogValue = 0.001

// Smoother ramps a value to its target over a fixed number of samples.
// A Smoother belongs to the render thread; feed it targets read from a Value.
type Smoother struct {
	smoothingType SmoothingType
	current       float64
	target        float64
	length        float64
	threshold     float64
	isSmoothing   bool
	remaining     float64

	step    float64
	logCur  float64
	logStep float64
}

// NewSmoother creates a smoother that reaches each new target after length samples.
func NewSmoother(smoothingType SmoothingType, length float64) *Smoother {
	return &Smoother{
		smoothingType: smoothingType,
		length:        length,
		threshold:     0.0001,
	}
}

// NewTimedSmoother creates a smoother whose ramp lasts seconds at sampleRate.
func NewTimedSmoother(smoothingType SmoothingType, sampleRate, seconds float64) *Smoother {
	return NewSmoother(smoothingType, sampleRate*seconds)
}

// SetTarget sets the target value for smoothing.
func (s *Smoother) SetTarget(target float64) {
	if math.Abs(target-s.target) < s.threshold {
		return
	}

	s.target = target
	if s.length < 1 {
		s.finish()
		return
	}
	s.isSmoothing = true
	s.remaining = s.length

	switch s.smoothingType {
	case LogarithmicSmoothing:
		s.logCur = math.Log(math.Max(s.current, minLogValue))
		s.logStep = (math.Log(math.Max(target, minLogValue)) - s.logCur) / s.length
	default:
		s.step = (target - s.current) / s.length
	}
}

// Next returns the next smoothed value.
func (s *Smoother) Next() float64 {
	if !s.isSmoothing {
		return s.current
	}

	return s.Advance(1)
}

// Advance moves the ramp forward by n samples and returns the new value.
// Used for parameters that are only applied once per block.
func (s *Smoother) Advance(n int) float64 {
	if !s.isSmoothing || n <= 0 {
		return s.current
	}

	s.remaining -= float64(n)
	if s.remaining < 0.5 {
		s.finish()
		return s.current
	}

	switch s.smoothingType {
	case LogarithmicSmoothing:
		s.logCur += s.logStep * float64(n)
		s.current = math.Exp(s.logCur)
	default:
		s.current += s.step * float64(n)
	}

	return s.current
}

func (s *Smoother) finish() {
	s.current = s.target
	s.isSmoothing = false
}

// Current returns the last value produced without advancing.
func (s *Smoother) Current() float64 {
	return s.current
}

// Target returns the value being ramped to.
func (s *Smoother) Target() float64 {
	return s.target
}

// IsSmoothing returns true if the smoother is currently smoothing.
func (s *Smoother) IsSmoothing() bool {
	return s.isSmoothing
}

// Reset jumps to a specific value.
func (s *Smoother) Reset(value float64) {
	s.current = value
	s.target = value
	s.isSmoothing = false
	s.remaining = 0
}

// SetThreshold sets the smallest target change that starts a new ramp.
func (s *Smoother) SetThreshold(threshold float64) {
	s.threshold = threshold
}
