package scene

import (
	"fmt"
	"math"
)

// RoomSize is a coarse description of the space the listener is in.
type RoomSize string

const (
	RoomSmall  RoomSize = "small"
	RoomMedium RoomSize = "medium"
	RoomLarge  RoomSize = "large"
)

// Scale maps the room size onto [0,1] for reverb and occlusion tuning.
// Unknown sizes are treated as medium.
func (r RoomSize) Scale() float64 {
	switch r {
	case RoomSmall:
		return 0.3
	case RoomLarge:
		return 0.85
	default:
		return 0.6
	}
}

// Valid reports whether r is one of the known sizes.
func (r RoomSize) Valid() bool {
	switch r {
	case RoomSmall, RoomMedium, RoomLarge:
		return true
	}
	return false
}

const (
	// baseAbsorption is the air absorption constant k (per metre) at AirAbsorption 1,
	// before humidity scaling.
	baseAbsorption = 0.01
)

// Environment holds room, reverb and air parameters shared by all sources.
type Environment struct {
	RoomSize      RoomSize
	ReverbTime    float64 // RT60 in seconds
	Dampening     float64 // high frequency damping of the reverb tail, 0-1
	AirAbsorption float64 // multiplier on the air absorption constant
	Temperature   float64 // degrees Celsius
	Humidity      float64 // relative humidity, percent
}

// DefaultEnvironment returns a medium room at room temperature.
func DefaultEnvironment() Environment {
	return Environment{
		RoomSize:      RoomMedium,
		ReverbTime:    2.0,
		Dampening:     0.5,
		AirAbsorption: 1.0,
		Temperature:   20.0,
		Humidity:      50.0,
	}
}

// EnvironmentUpdate is a partial environment change. Nil fields keep their
// current value when merged.
type EnvironmentUpdate struct {
	RoomSize      *RoomSize
	ReverbTime    *float64
	Dampening     *float64
	AirAbsorption *float64
	Temperature   *float64
	Humidity      *float64
}

// Merge returns e with every non-nil field of u applied.
func (e Environment) Merge(u EnvironmentUpdate) Environment {
	if u.RoomSize != nil {
		e.RoomSize = *u.RoomSize
	}
	if u.ReverbTime != nil {
		e.ReverbTime = *u.ReverbTime
	}
	if u.Dampening != nil {
		e.Dampening = *u.Dampening
	}
	if u.AirAbsorption != nil {
		e.AirAbsorption = *u.AirAbsorption
	}
	if u.Temperature != nil {
		e.Temperature = *u.Temperature
	}
	if u.Humidity != nil {
		e.Humidity = *u.Humidity
	}
	return e
}

// Validate checks that the environment values are usable.
func (e Environment) Validate() error {
	if !e.RoomSize.Valid() {
		return fmt.Errorf("unknown room size %q", e.RoomSize)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"reverb time", e.ReverbTime},
		{"dampening", e.Dampening},
		{"air absorption", e.AirAbsorption},
		{"temperature", e.Temperature},
		{"humidity", e.Humidity},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s must be finite: %f", f.name, f.v)
		}
	}
	if e.ReverbTime < 0 {
		return fmt.Errorf("reverb time must not be negative: %f", e.ReverbTime)
	}
	if e.Dampening < 0 || e.Dampening > 1 {
		return fmt.Errorf("dampening must be within [0,1]: %f", e.Dampening)
	}
	if e.AirAbsorption < 0 {
		return fmt.Errorf("air absorption must not be negative: %f", e.AirAbsorption)
	}
	if e.Humidity < 0 || e.Humidity > 100 {
		return fmt.Errorf("humidity must be within [0,100]: %f", e.Humidity)
	}
	if e.Temperature < -273.15 {
		return fmt.Errorf("temperature below absolute zero: %f", e.Temperature)
	}
	return nil
}

// AbsorptionCoefficient returns the air absorption constant k used by
// cutoff = maxCutoff * exp(-distance * k). Drier air absorbs more.
func (e Environment) AbsorptionCoefficient() float64 {
	humidity := e.Humidity
	if humidity < 0 {
		humidity = 0
	}
	if humidity > 100 {
		humidity = 100
	}
	factor := 1.5 - 0.75*humidity/100
	return e.AirAbsorption * baseAbsorption * factor
}

// SpeedOfSound returns the speed of sound in air at the environment temperature.
func (e Environment) SpeedOfSound() float64 {
	c := 331.3 + 0.606*e.Temperature
	if c < 1 {
		return 1
	}
	return c
}
