package debug

import (
	"math"
	"testing"
)

func TestInspect(t *testing.T) {
	left := []float32{0.5, -1.0, 0.25}
	right := []float32{float32(math.NaN()), float32(math.Inf(1)), 0}

	r := Inspect(left, right)

	if r.Peak != 1.0 {
		t.Errorf("Expected peak 1.0, got %f", r.Peak)
	}
	if r.ClippedSamples != 1 {
		t.Errorf("Expected 1 clipped sample, got %d", r.ClippedSamples)
	}
	if r.NaNCount != 1 || r.InfCount != 1 {
		t.Errorf("Expected 1 NaN and 1 Inf, got %d and %d", r.NaNCount, r.InfCount)
	}
	if r.Healthy() {
		t.Error("Block with NaN should not be healthy")
	}

	// RMS over the four finite samples
	want := math.Sqrt((0.25 + 1 + 0.0625 + 0) / 4)
	if math.Abs(float64(r.RMS)-want) > 1e-6 {
		t.Errorf("Expected RMS %f, got %f", want, r.RMS)
	}
}

func TestInspectSilence(t *testing.T) {
	r := Inspect(make([]float32, 8))
	if r.Peak != 0 || r.RMS != 0 || !r.Healthy() {
		t.Errorf("Expected healthy silence, got %s", r)
	}
	if r := Inspect(); r.RMS != 0 {
		t.Errorf("Expected zero RMS for no buffers, got %f", r.RMS)
	}
}

func TestSanitize(t *testing.T) {
	buffer := []float32{0.1, float32(math.NaN()), float32(math.Inf(-1)), -0.2}

	if n := Sanitize(buffer); n != 2 {
		t.Errorf("Expected 2 replaced samples, got %d", n)
	}
	if buffer[1] != 0 || buffer[2] != 0 {
		t.Errorf("Non-finite samples should be zeroed, got %v", buffer)
	}
	if buffer[0] != 0.1 || buffer[3] != -0.2 {
		t.Errorf("Finite samples must be untouched, got %v", buffer)
	}
}
