package assets

import (
	"encoding/binary"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// Decoder turns an encoded stream into float32 PCM.
type Decoder interface {
	Decode(r io.ReadSeeker) (*audio.Float32Buffer, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(r io.ReadSeeker) (*audio.Float32Buffer, error)

// Decode calls f.
func (f DecoderFunc) Decode(r io.ReadSeeker) (*audio.Float32Buffer, error) { return f(r) }

// Registry of decoders by file extension (lower case, no dot).
type Registry struct {
	codecs map[string]Decoder
	mtx    *sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		mtx:    &sync.RWMutex{},
	}
}

// DefaultRegistry knows WAV, MP3 and Ogg Vorbis.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("wav", WAVDecoder{})
	r.Register("wave", WAVDecoder{})
	r.Register("mp3", MP3Decoder{})
	r.Register("ogg", VorbisDecoder{})
	r.Register("oga", VorbisDecoder{})
	return r
}

// Register adds or replaces the decoder for ext.
func (r *Registry) Register(ext string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.codecs[normalizeExt(ext)] = d
}

// Get returns the decoder for ext.
func (r *Registry) Get(ext string) (Decoder, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	d, ok := r.codecs[normalizeExt(ext)]
	return d, ok
}

// ForKey returns the decoder for the extension of an asset key.
func (r *Registry) ForKey(key string) (Decoder, error) {
	ext := path.Ext(key)
	if d, ok := r.Get(ext); ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: extension %q", ErrUnknownFormat, ext)
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// WAVDecoder decodes RIFF/WAVE PCM of 8 to 32 bits via go-audio/wav.
type WAVDecoder struct{}

// Decode reads the whole file and normalizes samples to [-1,1].
func (WAVDecoder) Decode(r io.ReadSeeker) (*audio.Float32Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid wav file", ErrUnknownFormat)
	}

	ib, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	if ib.Format == nil {
		ib.Format = d.Format()
	}

	bitDepth := int(d.BitDepth)
	var scale float32
	offset := 0
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned
		scale, offset = 128.0, 128
	case 16:
		scale = 32768.0
	case 24:
		scale = 8388608.0
	case 32:
		scale = 2147483648.0
	default:
		return nil, fmt.Errorf("%w: %d-bit wav", ErrUnknownFormat, bitDepth)
	}

	data := make([]float32, len(ib.Data))
	for i, v := range ib.Data {
		data[i] = float32(v-offset) / scale
	}

	return &audio.Float32Buffer{
		Format:         ib.Format,
		Data:           data,
		SourceBitDepth: bitDepth,
	}, nil
}

// MP3Decoder decodes MPEG-1/2 layer III via go-mp3, which always yields
// 16-bit little-endian stereo.
type MP3Decoder struct{}

// Decode reads the whole stream.
func (MP3Decoder) Decode(r io.ReadSeeker) (*audio.Float32Buffer, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %v", ErrUnknownFormat, err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}

	samples := len(raw) / 2
	samples -= samples % 2
	data := make([]float32, samples)
	for i := range data {
		data[i] = float32(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768.0
	}

	return &audio.Float32Buffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: dec.SampleRate()},
		Data:           data,
		SourceBitDepth: 16,
	}, nil
}

// VorbisDecoder decodes Ogg Vorbis via oggvorbis.
type VorbisDecoder struct{}

// Decode reads the whole stream.
func (VorbisDecoder) Decode(r io.ReadSeeker) (*audio.Float32Buffer, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: ogg: %v", ErrUnknownFormat, err)
	}

	return &audio.Float32Buffer{
		Format:         &audio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		Data:           data,
		SourceBitDepth: 32,
	}, nil
}
