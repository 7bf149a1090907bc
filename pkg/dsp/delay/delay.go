// Package delay provides a short fractional delay line.
package delay

import "math"

// Line is a circular delay line with a power-of-two length. Reads between
// samples are linearly interpolated.
type Line struct {
	buf   []float32
	mask  int
	write int
}

// New creates a line that can delay by at least maxDelaySeconds.
func New(maxDelaySeconds, sampleRate float64) *Line {
	size := 1
	for size < int(math.Ceil(maxDelaySeconds*sampleRate))+4 {
		size <<= 1
	}
	return &Line{buf: make([]float32, size), mask: size - 1}
}

// MaxDelay returns the longest delay Tap can read, in samples.
func (d *Line) MaxDelay() float64 {
	return float64(len(d.buf) - 2)
}

// Push appends the newest sample.
func (d *Line) Push(x float32) {
	d.buf[d.write] = x
	d.write = (d.write + 1) & d.mask
}

// Tap reads the line delay samples behind the newest pushed sample.
// The delay is clamped to [0, MaxDelay].
func (d *Line) Tap(delay float64) float32 {
	delay = max(0, min(delay, d.MaxDelay()))
	pos := float64(d.write-1) - delay
	i := int(math.Floor(pos))
	frac := float32(pos - float64(i))
	a := d.buf[i&d.mask]
	b := d.buf[(i+1)&d.mask]
	return a + (b-a)*frac
}

// Reset clears the line.
func (d *Line) Reset() {
	clear(d.buf)
	d.write = 0
}
