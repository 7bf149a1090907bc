package scene

import (
	"fmt"
	"math"
)

// DistanceModel selects the loudness-versus-distance curve.
type DistanceModel int

const (
	// DistanceInverse follows ref / (ref + rolloff*(d-ref)).
	DistanceInverse DistanceModel = iota
	// DistanceLinear falls linearly from ref to max distance.
	DistanceLinear
	// DistanceExponential follows (d/ref)^-rolloff.
	DistanceExponential
)

// String returns the configuration name of the model.
func (m DistanceModel) String() string {
	switch m {
	case DistanceInverse:
		return "inverse"
	case DistanceLinear:
		return "linear"
	case DistanceExponential:
		return "exponential"
	default:
		return "unknown"
	}
}

// ParseDistanceModel converts a configuration name into a DistanceModel.
func ParseDistanceModel(name string) (DistanceModel, error) {
	switch name {
	case "inverse", "":
		return DistanceInverse, nil
	case "linear":
		return DistanceLinear, nil
	case "exponential":
		return DistanceExponential, nil
	}
	return DistanceInverse, fmt.Errorf("unknown distance model %q", name)
}

// DistanceParams parameterizes the distance model used by the spatializer.
type DistanceParams struct {
	Model       DistanceModel
	RefDistance float64
	MaxDistance float64
	Rolloff     float64
}

// Gain returns the distance attenuation for a source d metres away.
func (p DistanceParams) Gain(d float64) float64 {
	ref := p.RefDistance
	if ref <= 0 {
		ref = 1
	}
	rolloff := math.Max(0, p.Rolloff)

	switch p.Model {
	case DistanceLinear:
		maxD := p.MaxDistance
		if maxD <= ref {
			return 1
		}
		d = math.Max(ref, math.Min(d, maxD))
		r := math.Min(rolloff, 1)
		return 1 - r*(d-ref)/(maxD-ref)
	case DistanceExponential:
		d = math.Max(d, ref)
		return math.Pow(d/ref, -rolloff)
	default:
		d = math.Max(d, ref)
		return ref / (ref + rolloff*(d-ref))
	}
}
