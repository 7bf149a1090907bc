package dsp

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0.25, 0.25},
		{1.5, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}

	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%f): got %f, want %f", tt.in, got, tt.want)
		}
	}
}

func TestDBConversion(t *testing.T) {
	if db := LinearToDB(1.0); db != 0 {
		t.Errorf("Unity gain should be 0 dB, got %f", db)
	}
	if db := LinearToDB(0); db != MinDB {
		t.Errorf("Silence should map to MinDB, got %f", db)
	}
	if lin := DBToLinear(-6.0206); math.Abs(lin-0.5) > 1e-4 {
		t.Errorf("Expected -6 dB to be ~0.5, got %f", lin)
	}
	if lin := DBToLinear(MinDB); lin != 0 {
		t.Errorf("MinDB should map to 0, got %f", lin)
	}
}

func TestNyquist(t *testing.T) {
	if n := Nyquist(48000); n != 21600 {
		t.Errorf("Expected 21600 Hz usable bandwidth, got %f", n)
	}
}
