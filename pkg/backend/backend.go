// Package backend connects the engine's render callback to an output device.
package backend

import (
	"errors"
	"time"
)

var (
	// ErrNoDevice means no audio output is available on this system or build.
	ErrNoDevice = errors.New("backend: no audio device available")
	// ErrClosed is returned when using a device after Close.
	ErrClosed = errors.New("backend: device closed")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("backend: device already started")
)

// Renderer produces the next block of stereo output. len(left) == len(right).
// It is called from the device's realtime goroutine.
type Renderer interface {
	Render(left, right []float32)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(left, right []float32)

// Render calls f.
func (f RendererFunc) Render(left, right []float32) { f(left, right) }

// Device is a stereo output that pulls audio from a Renderer.
type Device interface {
	Start(r Renderer) error
	Close() error
	SampleRate() int
	// Latency is the output buffering between Render and the speaker.
	Latency() time.Duration
}

// Opener opens a device for the requested format.
type Opener func(sampleRate, blockSize int) (Device, error)

// Unavailable is an Opener for environments without audio output.
func Unavailable(sampleRate, blockSize int) (Device, error) {
	return nil, ErrNoDevice
}

func blockDuration(sampleRate, blockSize int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(blockSize) / float64(sampleRate) * float64(time.Second))
}
