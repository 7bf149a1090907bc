package effects

import (
	"math"
	"sync"

	"github.com/justyntemme/spatial3d/pkg/scene"
)

// Box is an axis-aligned obstacle. Opacity is the occlusion contributed by
// one crossing of the box, in [0,1].
type Box struct {
	Min     scene.Vec3
	Max     scene.Vec3
	Opacity float64
}

// Geometry supplies the obstacles an occluder raycasts against.
type Geometry interface {
	Obstacles() []Box
}

// StaticGeometry is a fixed set of boxes.
type StaticGeometry []Box

// Obstacles returns the boxes.
func (g StaticGeometry) Obstacles() []Box { return g }

// Raycast range by room size: small rooms only consider nearby geometry.
const (
	minOcclusionRange = 15.0
	maxOcclusionRange = 120.0
)

// RaycastOccluder casts a segment from the source to the listener through the
// level geometry. Crossings combine as 1 - prod(1 - opacity). Sources farther
// than the current range are not occluded.
type RaycastOccluder struct {
	base
	geometry Geometry

	mu       sync.RWMutex
	maxRange float64
}

// NewRaycastOccluder creates the default occluder.
func NewRaycastOccluder() *RaycastOccluder {
	o := &RaycastOccluder{base: base{name: "occlusion/default"}}
	o.UpdateEnvironment(scene.DefaultEnvironment())
	return o
}

// Initialize binds the geometry from setup.
func (o *RaycastOccluder) Initialize(setup Setup) error {
	if err := o.base.Initialize(setup); err != nil {
		return err
	}
	o.geometry = setup.Geometry
	return nil
}

// UpdateEnvironment recomputes the raycast range from the room size.
func (o *RaycastOccluder) UpdateEnvironment(env scene.Environment) {
	o.mu.Lock()
	o.maxRange = minOcclusionRange + (maxOcclusionRange-minOcclusionRange)*env.RoomSize.Scale()
	o.mu.Unlock()
}

// Range returns the current raycast range in metres.
func (o *RaycastOccluder) Range() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.maxRange
}

// CalculateOcclusion returns the combined opacity of the boxes crossed on
// the way from source to listener.
func (o *RaycastOccluder) CalculateOcclusion(source, listener scene.Vec3) float64 {
	if o.geometry == nil {
		return 0
	}
	if source.Distance(listener) > o.Range() {
		return 0
	}

	transmitted := 1.0
	for _, b := range o.geometry.Obstacles() {
		// Boxes enclosing an endpoint are rooms, not walls.
		if b.contains(source) || b.contains(listener) {
			continue
		}
		if segmentHitsBox(source, listener, b) {
			transmitted *= 1 - clampUnit(b.Opacity)
		}
	}
	return clampUnit(1 - transmitted)
}

func (b Box) contains(p scene.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// segmentHitsBox is the slab test for the segment a->b.
func segmentHitsBox(a, b scene.Vec3, box Box) bool {
	dir := b.Sub(a)
	tMin, tMax := 0.0, 1.0

	axes := [3][4]float64{
		{a.X, dir.X, box.Min.X, box.Max.X},
		{a.Y, dir.Y, box.Min.Y, box.Max.Y},
		{a.Z, dir.Z, box.Min.Z, box.Max.Z},
	}
	for _, ax := range axes {
		origin, d, lo, hi := ax[0], ax[1], ax[2], ax[3]
		if math.Abs(d) < 1e-12 {
			if origin < lo || origin > hi {
				return false
			}
			continue
		}
		t1 := (lo - origin) / d
		t2 := (hi - origin) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}
	return true
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
