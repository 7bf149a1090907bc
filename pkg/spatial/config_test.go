package spatial

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/justyntemme/spatial3d/pkg/scene"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.EnableHRTF || !cfg.EnableReverb || !cfg.EnableCompression || !cfg.EnableOcclusion {
		t.Error("All features should default to enabled")
	}
	if cfg.MaxAudioSources != 32 {
		t.Errorf("Expected 32 sources, got %d", cfg.MaxAudioSources)
	}
	if cfg.UpdateInterval != 16*time.Millisecond {
		t.Errorf("Expected 16ms interval, got %v", cfg.UpdateInterval)
	}
	if cfg.DistanceModel != scene.DistanceInverse || cfg.RolloffFactor != 1 || cfg.RefDistance != 1 || cfg.MaxDistance != 10000 {
		t.Errorf("Unexpected distance defaults %+v", cfg.DistanceParams())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate, got %v", err)
	}
}

func TestConfigValidateNormalizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UpdateInterval = -1
	cfg.SampleRate = 0
	cfg.BlockSize = -4
	cfg.RefDistance = 0
	cfg.MaxDistance = 0
	cfg.RolloffFactor = -2
	cfg.MaxCutoff = 1e9
	cfg.AnalysisSize = -1

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.UpdateInterval != 16*time.Millisecond {
		t.Errorf("Expected interval reset, got %v", cfg.UpdateInterval)
	}
	if cfg.SampleRate != 48000 || cfg.BlockSize != 512 {
		t.Errorf("Expected 48000/512, got %d/%d", cfg.SampleRate, cfg.BlockSize)
	}
	if cfg.RefDistance != 1 || cfg.MaxDistance <= cfg.RefDistance || cfg.RolloffFactor != 0 {
		t.Errorf("Unexpected distance params %+v", cfg.DistanceParams())
	}
	if cfg.MaxCutoff != 48000*0.45 {
		t.Errorf("Expected cutoff limited below Nyquist, got %f", cfg.MaxCutoff)
	}
	if cfg.AnalysisSize != 0 {
		t.Errorf("Expected analysis disabled, got %d", cfg.AnalysisSize)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no sources", func(c *Config) { c.MaxAudioSources = 0 }},
		{"unknown model", func(c *Config) { c.DistanceModel = scene.DistanceModel(42) }},
		{"NaN ref distance", func(c *Config) { c.RefDistance = math.NaN() }},
		{"infinite max distance", func(c *Config) { c.MaxDistance = math.Inf(1) }},
		{"NaN rolloff", func(c *Config) { c.RolloffFactor = math.NaN() }},
		{"NaN cutoff", func(c *Config) { c.MaxCutoff = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestEstimateCPU(t *testing.T) {
	all := Features{HRTF: true, Reverb: true, Compression: true, Occlusion: true}

	if got := estimateCPU(0, Features{}); got != 0 {
		t.Errorf("Expected no load when idle, got %f", got)
	}
	if estimateCPU(4, all) <= estimateCPU(2, all) {
		t.Error("Load should grow with sources")
	}

	hrtf := estimateCPU(10, Features{HRTF: true})
	occl := estimateCPU(10, Features{Occlusion: true})
	rev := estimateCPU(10, Features{Reverb: true})
	if !(hrtf > occl && occl > rev) {
		t.Errorf("Expected hrtf > occlusion > reverb, got %f %f %f", hrtf, occl, rev)
	}

	if got := estimateCPU(1000, all); got != 100 {
		t.Errorf("Expected load capped at 100, got %f", got)
	}
}
