// Package analysis provides metering and spectrum snapshots of the master
// output.
//
// Level Metering:
//   - Peak meter with hold and decay
//   - RMS (Root Mean Square) meter over a sliding window
//
// Spectral Analysis:
//   - Tap: a ring buffer fed by the render thread that produces time-domain
//     and Hann-windowed FFT snapshots on request
//
// The render thread only ever writes into the tap; snapshots are taken by
// callers on other goroutines.
//
// Example usage:
//
//	tap := analysis.NewTap(2048, 48000)
//	tap.Write(left, right)
//
//	snap := tap.Snapshot()
//	peakHz := snap.PeakFrequency()
package analysis
