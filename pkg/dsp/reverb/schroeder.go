// Package reverb provides the room reverb used on the engine's reverb bus.
package reverb

// CombFilter implements a lowpass-feedback comb filter. The delay line is
// allocated at its maximum length so the active length can change without
// allocating on the audio thread.
type CombFilter struct {
	buffer      []float32
	length      int
	index       int
	feedback    float32
	filterstore float32
	damp1       float32
	damp2       float32
}

// NewCombFilter creates a comb filter able to delay up to maxDelay samples.
func NewCombFilter(maxDelay int) *CombFilter {
	if maxDelay < 1 {
		maxDelay = 1
	}
	return &CombFilter{
		buffer:   make([]float32, maxDelay),
		length:   maxDelay,
		feedback: 0.5,
		damp1:    0.5,
		damp2:    0.5,
	}
}

// SetDelay sets the active delay length in samples, limited to the allocated size.
func (c *CombFilter) SetDelay(samples int) {
	if samples < 1 {
		samples = 1
	}
	if samples > len(c.buffer) {
		samples = len(c.buffer)
	}
	c.length = samples
	if c.index >= c.length {
		c.index = 0
	}
}

// Delay returns the active delay length in samples.
func (c *CombFilter) Delay() int {
	return c.length
}

// SetFeedback sets the feedback amount, limited to [0, 0.98] for stability.
func (c *CombFilter) SetFeedback(feedback float64) {
	if !(feedback >= 0) {
		feedback = 0
	}
	if feedback > 0.98 {
		feedback = 0.98
	}
	c.feedback = float32(feedback)
}

// SetDamping sets the damping amount (0-1)
func (c *CombFilter) SetDamping(damping float64) {
	c.damp1 = float32(damping)
	c.damp2 = float32(1.0 - damping)
}

// Process processes a single sample through the comb filter
func (c *CombFilter) Process(input float32) float32 {
	output := c.buffer[c.index]
	c.filterstore = output*c.damp2 + c.filterstore*c.damp1
	c.buffer[c.index] = input + c.feedback*c.filterstore

	c.index++
	if c.index >= c.length {
		c.index = 0
	}
	return output
}

// Reset clears the comb filter state
func (c *CombFilter) Reset() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
	c.index = 0
	c.filterstore = 0
}

// AllPassFilter implements a Schroeder all-pass diffuser.
type AllPassFilter struct {
	buffer   []float32
	index    int
	feedback float32
}

// NewAllPassFilter creates an all-pass filter with the given delay in samples
func NewAllPassFilter(delay int) *AllPassFilter {
	if delay < 1 {
		delay = 1
	}
	return &AllPassFilter{
		buffer:   make([]float32, delay),
		feedback: 0.5,
	}
}

// Process processes a single sample through the all-pass filter
func (a *AllPassFilter) Process(input float32) float32 {
	buffered := a.buffer[a.index]
	output := buffered - input
	a.buffer[a.index] = input + buffered*a.feedback

	a.index++
	if a.index >= len(a.buffer) {
		a.index = 0
	}
	return output
}

// Reset clears the all-pass filter state
func (a *AllPassFilter) Reset() {
	for i := range a.buffer {
		a.buffer[i] = 0
	}
	a.index = 0
}
