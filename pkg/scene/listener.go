package scene

// Orientation describes where a listener is facing.
type Orientation struct {
	Forward Vec3
	Up      Vec3
}

// DefaultOrientation faces down the negative Z axis with +Y up.
func DefaultOrientation() Orientation {
	return Orientation{
		Forward: Vec3{0, 0, -1},
		Up:      Vec3{0, 1, 0},
	}
}

// Listener is the observer all sources are spatialized against.
type Listener struct {
	Position    Vec3
	Orientation Orientation
	Velocity    Vec3
}

// DefaultListener returns a listener at the origin with the default orientation.
func DefaultListener() Listener {
	return Listener{Orientation: DefaultOrientation()}
}

// Right returns the unit vector pointing out of the listener's right ear.
// A degenerate orientation falls back to +X.
func (l Listener) Right() Vec3 {
	r := l.Orientation.Forward.Cross(l.Orientation.Up).Normalize()
	if r.Length() == 0 {
		return Vec3{1, 0, 0}
	}
	return r
}

// Forward returns the normalized forward vector, falling back to -Z.
func (l Listener) Forward() Vec3 {
	f := l.Orientation.Forward.Normalize()
	if f.Length() == 0 {
		return Vec3{0, 0, -1}
	}
	return f
}
