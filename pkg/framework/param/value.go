package param

import (
	"math"
	"sync/atomic"
)

// Value is a float64 that can be written by one goroutine and read by
// another without locks. Last write wins.
type Value struct {
	bits atomic.Uint64
}

// NewValue creates a Value holding v.
func NewValue(v float64) *Value {
	p := &Value{}
	p.Store(v)
	return p
}

// Load returns the current value.
func (p *Value) Load() float64 {
	return math.Float64frombits(p.bits.Load())
}

// Store replaces the current value.
func (p *Value) Store(v float64) {
	p.bits.Store(math.Float64bits(v))
}

// Clamped stores v limited to [lo, hi] and returns the stored value.
// NaN stores lo.
func (p *Value) Clamped(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v) || v < lo:
		v = lo
	case v > hi:
		v = hi
	}
	p.Store(v)
	return v
}
