// Package assets resolves asset keys into decoded, in-memory audio buffers.
package assets

import (
	"fmt"
	"time"

	"github.com/go-audio/audio"
)

// Buffer is decoded PCM ready for playback. It is immutable once built and
// may be shared by any number of sources.
type Buffer struct {
	key    string
	pcm    *audio.Float32Buffer
	frames int
}

// NewBuffer wraps interleaved float32 samples in [-1,1].
func NewBuffer(key string, sampleRate, channels int, interleaved []float32) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidPCM, sampleRate)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidPCM, channels)
	}
	if len(interleaved)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples do not divide into %d channels", ErrInvalidPCM, len(interleaved), channels)
	}

	return &Buffer{
		key: key,
		pcm: &audio.Float32Buffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			Data:           interleaved,
			SourceBitDepth: 32,
		},
		frames: len(interleaved) / channels,
	}, nil
}

// FromFloat32Buffer wraps an existing go-audio buffer.
func FromFloat32Buffer(key string, buf *audio.Float32Buffer) (*Buffer, error) {
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidPCM)
	}
	b, err := NewBuffer(key, buf.Format.SampleRate, buf.Format.NumChannels, buf.Data)
	if err != nil {
		return nil, err
	}
	if buf.SourceBitDepth > 0 {
		b.pcm.SourceBitDepth = buf.SourceBitDepth
	}
	return b, nil
}

// Key returns the asset key the buffer was resolved from.
func (b *Buffer) Key() string { return b.key }

// SampleRate returns the sample rate in Hz.
func (b *Buffer) SampleRate() int { return b.pcm.Format.SampleRate }

// Channels returns the number of interleaved channels.
func (b *Buffer) Channels() int { return b.pcm.Format.NumChannels }

// Frames returns the length in sample frames.
func (b *Buffer) Frames() int { return b.frames }

// Duration returns the playback length at the native sample rate.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(float64(b.frames) / float64(b.SampleRate()) * float64(time.Second))
}

// Empty reports whether the buffer has no audio.
func (b *Buffer) Empty() bool { return b == nil || b.frames == 0 }

// Sample returns channel ch of frame i. Channels past the last repeat the
// last one, so mono buffers feed both ears.
func (b *Buffer) Sample(i, ch int) float32 {
	n := b.pcm.Format.NumChannels
	if ch >= n {
		ch = n - 1
	}
	return b.pcm.Data[i*n+ch]
}

// Mono returns the channel average of frame i.
func (b *Buffer) Mono(i int) float32 {
	n := b.pcm.Format.NumChannels
	if n == 1 {
		return b.pcm.Data[i]
	}
	var sum float32
	for ch := 0; ch < n; ch++ {
		sum += b.pcm.Data[i*n+ch]
	}
	return sum / float32(n)
}
