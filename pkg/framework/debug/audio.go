package debug

import (
	"fmt"
	"math"
)

// BufferReport summarises the health of a block of output samples.
type BufferReport struct {
	Peak           float32
	RMS            float32
	ClippedSamples int
	NaNCount       int
	InfCount       int
}

// Healthy reports whether the block contains only finite samples.
func (r BufferReport) Healthy() bool {
	return r.NaNCount == 0 && r.InfCount == 0
}

// String formats the report for log lines.
func (r BufferReport) String() string {
	return fmt.Sprintf("peak=%.3f rms=%.3f clipped=%d nan=%d inf=%d",
		r.Peak, r.RMS, r.ClippedSamples, r.NaNCount, r.InfCount)
}

// ClipThreshold is the magnitude at which a sample counts as clipped.
const ClipThreshold = 0.999

// Inspect scans buffers and reports peak, RMS, clipping and non-finite samples.
// Non-finite samples are excluded from peak and RMS.
func Inspect(buffers ...[]float32) BufferReport {
	var r BufferReport
	var sumSquares float64
	finite := 0

	for _, buffer := range buffers {
		for _, sample := range buffer {
			f := float64(sample)
			if math.IsNaN(f) {
				r.NaNCount++
				continue
			}
			if math.IsInf(f, 0) {
				r.InfCount++
				continue
			}

			abs := sample
			if abs < 0 {
				abs = -abs
			}
			if abs > r.Peak {
				r.Peak = abs
			}
			if abs >= ClipThreshold {
				r.ClippedSamples++
			}
			sumSquares += f * f
			finite++
		}
	}

	if finite > 0 {
		r.RMS = float32(math.Sqrt(sumSquares / float64(finite)))
	}
	return r
}

// Sanitize replaces non-finite samples with silence and returns how many it replaced.
func Sanitize(buffer []float32) int {
	replaced := 0
	for i, sample := range buffer {
		f := float64(sample)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			buffer[i] = 0
			replaced++
		}
	}
	return replaced
}
