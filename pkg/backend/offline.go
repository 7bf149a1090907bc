package backend

import (
	"sync"
	"time"
)

// Offline is a device that renders only when pulled. Used for tests and for
// bouncing a scene to a file.
type Offline struct {
	sampleRate int
	blockSize  int

	mu       sync.Mutex
	renderer Renderer
	closed   bool
	left     []float32
	right    []float32
	frames   int64
}

// NewOffline creates an offline device.
func NewOffline(sampleRate, blockSize int) *Offline {
	if blockSize < 1 {
		blockSize = 1
	}
	return &Offline{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		left:       make([]float32, blockSize),
		right:      make([]float32, blockSize),
	}
}

// Opener returns an Opener that hands out this device.
func (o *Offline) Opener() Opener {
	return func(sampleRate, blockSize int) (Device, error) {
		return o, nil
	}
}

// Start attaches the renderer.
func (o *Offline) Start(r Renderer) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	if o.renderer != nil {
		return ErrAlreadyStarted
	}
	o.renderer = r
	return nil
}

// Pull renders frames in block-sized chunks and returns the captured output.
func (o *Offline) Pull(frames int) (left, right []float32, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, nil, ErrClosed
	}

	left = make([]float32, frames)
	right = make([]float32, frames)
	if o.renderer == nil {
		return left, right, nil
	}

	for pos := 0; pos < frames; pos += o.blockSize {
		n := min(o.blockSize, frames-pos)
		l, r := o.left[:n], o.right[:n]
		clear(l)
		clear(r)
		o.renderer.Render(l, r)
		copy(left[pos:], l)
		copy(right[pos:], r)
	}
	o.frames += int64(frames)
	return left, right, nil
}

// Frames returns how many frames have been pulled.
func (o *Offline) Frames() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frames
}

// Close detaches the renderer. Further pulls fail.
func (o *Offline) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.renderer = nil
	return nil
}

// SampleRate returns the device sample rate.
func (o *Offline) SampleRate() int { return o.sampleRate }

// Latency is one block.
func (o *Offline) Latency() time.Duration { return blockDuration(o.sampleRate, o.blockSize) }
