// Package pan provides stereo panning laws and simple head-model helpers
// for placing a mono signal between two ears.
package pan

import (
	"math"
)

// Law represents different panning laws
type Law int

const (
	// Linear uses linear panning (constant power not maintained)
	Linear Law = iota
	// ConstantPower uses sine/cosine panning (maintains constant power)
	ConstantPower
)

// Head model defaults (average adult head, sound in air at 20C)
const (
	HeadRadius   = 0.0875
	SpeedOfSound = 343.0
)

// MonoToStereo pans a mono signal to stereo.
// pan: -1.0 = hard left, 0.0 = center, 1.0 = hard right
// Returns left and right gains.
func MonoToStereo(pan float64, law Law) (left, right float64) {
	pan = clampPan(pan)
	switch law {
	case Linear:
		return (1 - pan) * 0.5, (1 + pan) * 0.5
	default:
		return constantPowerPan(pan)
	}
}

// constantPowerPan implements equal power panning using sine/cosine.
func constantPowerPan(pan float64) (left, right float64) {
	// Convert pan from [-1, 1] to [0, pi/2]
	angle := (pan + 1.0) * math.Pi / 4.0
	return math.Cos(angle), math.Sin(angle)
}

func clampPan(pan float64) float64 {
	if math.IsNaN(pan) {
		return 0
	}
	if pan < -1 {
		return -1
	}
	if pan > 1 {
		return 1
	}
	return pan
}

// InterauralDelay returns the Woodworth time difference in seconds for a
// source at the given azimuth (radians, positive to the right). The sign
// follows the azimuth: positive means the left ear hears it later.
func InterauralDelay(azimuth, headRadius, speedOfSound float64) float64 {
	if speedOfSound <= 0 {
		speedOfSound = SpeedOfSound
	}
	// Fold rear azimuths onto the front hemisphere; the path difference is symmetric.
	a := math.Asin(math.Sin(azimuth))
	return headRadius / speedOfSound * (a + math.Sin(a))
}

// HeadShadow returns per-ear level gains for a lateralization in [-1,1].
// The far ear loses up to depth (0-1) of its level.
func HeadShadow(lateral, depth float64) (left, right float64) {
	lateral = clampPan(lateral)
	if depth < 0 {
		depth = 0
	} else if depth > 1 {
		depth = 1
	}
	left, right = 1, 1
	if lateral > 0 {
		left = 1 - depth*lateral
	} else {
		right = 1 + depth*lateral
	}
	return left, right
}
