package dsp

import "math"

// Add mixes src into dst over their common length.
func Add(dst, src []float32) {
	n := min(len(dst), len(src))
	for i := range dst[:n] {
		dst[i] += src[i]
	}
}

// Peak returns the largest absolute sample.
func Peak(buf []float32) float32 {
	var peak float32
	for _, x := range buf {
		peak = max(peak, float32(math.Abs(float64(x))))
	}
	return peak
}

// Energy returns the sum of squared samples.
func Energy(buf []float32) float64 {
	var sum float64
	for _, x := range buf {
		sum += float64(x) * float64(x)
	}
	return sum
}
