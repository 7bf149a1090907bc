package spatial

import (
	"fmt"
	"math"
	"time"

	"github.com/justyntemme/spatial3d/pkg/dsp"
	"github.com/justyntemme/spatial3d/pkg/scene"
)

// Config controls engine features and limits.
type Config struct {
	EnableHRTF        bool
	EnableReverb      bool
	EnableCompression bool
	EnableOcclusion   bool

	MaxAudioSources int
	UpdateInterval  time.Duration

	DistanceModel scene.DistanceModel
	RolloffFactor float64
	RefDistance   float64
	MaxDistance   float64

	SampleRate int
	BlockSize  int
	// MaxCutoff is the lowpass cutoff of an unoccluded source at zero distance.
	MaxCutoff float64
	// AnalysisSize is the analysis tap length in samples; 0 disables the tap.
	AnalysisSize int
	// ManualUpdates disables the internal scheduler; call Engine.Tick instead.
	ManualUpdates bool

	// Module implementation names from the effects registry ("" = default).
	HRTFImpl       string
	OcclusionImpl  string
	ReverbImpl     string
	CompressorImpl string
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		EnableHRTF:        true,
		EnableReverb:      true,
		EnableCompression: true,
		EnableOcclusion:   true,
		MaxAudioSources:   32,
		UpdateInterval:    16 * time.Millisecond,
		DistanceModel:     scene.DistanceInverse,
		RolloffFactor:     1,
		RefDistance:       1,
		MaxDistance:       10000,
		SampleRate:        dsp.SampleRate48k,
		BlockSize:         dsp.DefaultBufferSize,
		MaxCutoff:         dsp.MaxFrequency,
		AnalysisSize:      2048,
	}
}

// Validate normalizes out-of-range values in place and rejects values that
// have no sensible substitute.
func (c *Config) Validate() error {
	if c.MaxAudioSources < 1 {
		return fmt.Errorf("%w: maxAudioSources must be at least 1, got %d", ErrInvalidConfig, c.MaxAudioSources)
	}
	switch c.DistanceModel {
	case scene.DistanceInverse, scene.DistanceLinear, scene.DistanceExponential:
	default:
		return fmt.Errorf("%w: unknown distance model %d", ErrInvalidConfig, int(c.DistanceModel))
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"refDistance", c.RefDistance},
		{"maxDistance", c.MaxDistance},
		{"rolloffFactor", c.RolloffFactor},
		{"maxCutoff", c.MaxCutoff},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %f", ErrInvalidConfig, f.name, f.v)
		}
	}

	if c.UpdateInterval <= 0 {
		c.UpdateInterval = 16 * time.Millisecond
	}
	if c.SampleRate <= 0 {
		c.SampleRate = dsp.SampleRate48k
	}
	if c.BlockSize <= 0 {
		c.BlockSize = dsp.DefaultBufferSize
	}
	if c.RefDistance <= 0 {
		c.RefDistance = 1
	}
	if c.MaxDistance <= c.RefDistance {
		c.MaxDistance = c.RefDistance * 10000
	}
	if c.RolloffFactor < 0 {
		c.RolloffFactor = 0
	}
	if c.MaxCutoff <= 0 {
		c.MaxCutoff = dsp.MaxFrequency
	}
	c.MaxCutoff = dsp.Clamp(c.MaxCutoff, dsp.MinFrequency, dsp.Nyquist(float64(c.SampleRate)))
	if c.AnalysisSize < 0 {
		c.AnalysisSize = 0
	}
	return nil
}

// DistanceParams returns the distance model parameters for spatializers.
func (c Config) DistanceParams() scene.DistanceParams {
	return scene.DistanceParams{
		Model:       c.DistanceModel,
		RefDistance: c.RefDistance,
		MaxDistance: c.MaxDistance,
		Rolloff:     c.RolloffFactor,
	}
}

// Features lists which effect features are active.
type Features struct {
	HRTF        bool
	Reverb      bool
	Compression bool
	Occlusion   bool
}

// Features returns the feature flags of the config.
func (c Config) Features() Features {
	return Features{
		HRTF:        c.EnableHRTF,
		Reverb:      c.EnableReverb,
		Compression: c.EnableCompression,
		Occlusion:   c.EnableOcclusion,
	}
}
