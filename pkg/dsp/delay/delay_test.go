package delay

import "testing"

func TestLineTap(t *testing.T) {
	d := New(0.0015, 48000)
	for i := 1; i <= 8; i++ {
		d.Push(float32(i))
	}

	tests := []struct {
		delay float64
		want  float32
	}{
		{0, 8},
		{3, 5},
		{1.5, 6.5},
		{-2, 8},
	}
	for _, tt := range tests {
		if got := d.Tap(tt.delay); got != tt.want {
			t.Errorf("Tap(%v): expected %f, got %f", tt.delay, tt.want, got)
		}
	}
}

func TestLineCapacity(t *testing.T) {
	d := New(0.0015, 48000)
	if d.MaxDelay() < 72 {
		t.Errorf("Expected room for 72 samples, got %f", d.MaxDelay())
	}

	d.Push(1)
	if got := d.Tap(1e6); got != 0 {
		t.Errorf("Expected clamped read of silence, got %f", got)
	}

	d.Reset()
	if got := d.Tap(0); got != 0 {
		t.Errorf("Expected silence after Reset, got %f", got)
	}
}
