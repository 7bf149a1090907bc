//go:build !headless

package backend

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoMu         sync.Mutex
	otoCtx        *oto.Context
	otoSampleRate int
)

func sharedContext(sampleRate int, bufferSize time.Duration) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoSampleRate != sampleRate {
			return nil, fmt.Errorf("%w: context already open at %d Hz", ErrNoDevice, otoSampleRate)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	<-ready

	otoCtx = ctx
	otoSampleRate = sampleRate
	return ctx, nil
}

// OtoDevice plays the render output through the system mixer via oto.
type OtoDevice struct {
	ctx        *oto.Context
	player     *oto.Player
	sampleRate int
	blockSize  int
	bufferSize time.Duration

	renderer atomic.Pointer[Renderer]
	left     []float32
	right    []float32

	mu     sync.Mutex
	closed bool
}

// OpenDefault opens the system output as stereo float32.
func OpenDefault(sampleRate, blockSize int) (Device, error) {
	bufferSize := 2 * blockDuration(sampleRate, blockSize)
	ctx, err := sharedContext(sampleRate, bufferSize)
	if err != nil {
		return nil, err
	}
	return &OtoDevice{
		ctx:        ctx,
		sampleRate: sampleRate,
		blockSize:  blockSize,
		bufferSize: bufferSize,
	}, nil
}

// Start begins pulling audio from r.
func (d *OtoDevice) Start(r Renderer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.player != nil {
		return ErrAlreadyStarted
	}

	d.renderer.Store(&r)
	d.player = d.ctx.NewPlayer(d)
	d.player.Play()
	return nil
}

// Read implements io.Reader for the oto player: interleaved float32 LE frames.
func (d *OtoDevice) Read(p []byte) (int, error) {
	frames := len(p) / 8
	rp := d.renderer.Load()
	if rp == nil || frames == 0 {
		clear(p)
		return len(p), nil
	}

	if cap(d.left) < frames {
		d.left = make([]float32, frames)
		d.right = make([]float32, frames)
	}
	left, right := d.left[:frames], d.right[:frames]
	clear(left)
	clear(right)
	(*rp).Render(left, right)

	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(left[i]))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(right[i]))
	}
	// Partial frame bytes
	clear(p[frames*8:])
	return len(p), nil
}

// Close stops playback. The shared oto context stays open for reuse.
func (d *OtoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.renderer.Store(nil)
	if d.player != nil {
		err := d.player.Close()
		d.player = nil
		return err
	}
	return nil
}

// SampleRate returns the device sample rate.
func (d *OtoDevice) SampleRate() int { return d.sampleRate }

// Latency returns the configured output buffering.
func (d *OtoDevice) Latency() time.Duration { return d.bufferSize }
