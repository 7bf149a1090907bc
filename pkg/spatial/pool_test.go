package spatial

import (
	"errors"
	"math"
	"testing"

	"github.com/justyntemme/spatial3d/pkg/effects"
	"github.com/justyntemme/spatial3d/pkg/framework/debug"
	"github.com/justyntemme/spatial3d/pkg/scene"
)

func newTestPool(max int) (*Pool, *renderClock) {
	clock := newRenderClock(testRate)
	p := newPool(max, clock, 20000, debug.Discard())
	p.fx.distance = DefaultConfig().DistanceParams()
	return p, clock
}

// panickyOccluder blows up for sources at one position.
type panickyOccluder struct {
	*effects.PassthroughOccluder
	at scene.Vec3
}

func (o *panickyOccluder) CalculateOcclusion(source, listener scene.Vec3) float64 {
	if source == o.at {
		panic("occluder exploded")
	}
	return 0.5
}

func TestPoolCapacityInvariant(t *testing.T) {
	p, _ := newTestPool(3)
	buf := toneBuffer(t, 64, 440)

	for i := 0; i < 20; i++ {
		if _, err := p.Create(buf); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if p.Len() > p.Cap() {
			t.Fatalf("Pool holds %d sources, capacity %d", p.Len(), p.Cap())
		}
	}
	if len(p.renderList()) != p.Len() {
		t.Errorf("Render list has %d sources, pool %d", len(p.renderList()), p.Len())
	}
}

func TestPoolEvictsOldest(t *testing.T) {
	p, _ := newTestPool(2)
	buf := toneBuffer(t, 64, 440)

	a, _ := p.Create(buf)
	b, _ := p.Create(buf)
	c, _ := p.Create(buf)

	if _, ok := p.Get(a.ID()); ok {
		t.Error("Expected A to be evicted")
	}
	if !a.disposed.Load() {
		t.Error("Evicted source should be disposed")
	}
	for name, s := range map[string]*Source{"B": b, "C": c} {
		if _, ok := p.Get(s.ID()); !ok {
			t.Errorf("Expected %s to remain active", name)
		}
	}
}

func TestPoolEvictsByStartTime(t *testing.T) {
	p, clock := newTestPool(2)
	buf := toneBuffer(t, 64, 440)

	a, _ := p.Create(buf)
	a.Start(1.0)
	b, _ := p.Create(buf)
	clock.advance(testRate / 10)
	b.Start(0)

	// B started at 0.1s, A is scheduled for 1.0s
	p.Create(buf)
	if _, ok := p.Get(b.ID()); ok {
		t.Error("Expected B, the earliest start, to be evicted")
	}
	if _, ok := p.Get(a.ID()); !ok {
		t.Error("Expected A to remain")
	}

	// An unstarted source counts as the oldest
	p2, _ := newTestPool(2)
	x, _ := p2.Create(buf)
	x.Start(0.5)
	idle, _ := p2.Create(buf)
	p2.Create(buf)
	if _, ok := p2.Get(idle.ID()); ok {
		t.Error("Expected the unstarted source to be evicted first")
	}
}

func TestPoolRejectsEmptyBuffer(t *testing.T) {
	p, _ := newTestPool(2)
	p.Create(toneBuffer(t, 64, 440))

	if _, err := p.Create(nil); !errors.Is(err, ErrInvalidBuffer) {
		t.Errorf("Expected ErrInvalidBuffer, got %v", err)
	}
	if p.Len() != 1 {
		t.Errorf("Pool should be unchanged, has %d sources", p.Len())
	}
}

func TestPoolTickRemovesFinished(t *testing.T) {
	p, _ := newTestPool(4)
	buf := toneBuffer(t, 64, 440)

	stopped, _ := p.Create(buf)
	stopped.Start(0)
	stopped.Stop(0)

	scheduled, _ := p.Create(buf)
	scheduled.Start(0)
	scheduled.Stop(1)

	idle, _ := p.Create(buf)

	res := p.Tick(scene.DefaultListener(), scene.DefaultEnvironment())
	if len(res.Removed) != 1 || res.Removed[0] != stopped.ID() {
		t.Errorf("Expected only the stopped source removed, got %v", res.Removed)
	}
	if _, ok := p.Get(scheduled.ID()); !ok {
		t.Error("Source with a future stop time should stay until it passes")
	}
	if _, ok := p.Get(idle.ID()); !ok {
		t.Error("Unstarted source should not be removed")
	}
}

func TestPoolTickSkipsFailingSource(t *testing.T) {
	p, _ := newTestPool(4)
	buf := toneBuffer(t, 64, 440)

	good, _ := p.Create(buf)
	good.SetPosition(scene.Vec3{X: 3, Y: 4})
	bad, _ := p.Create(buf)
	bad.SetPosition(scene.Vec3{X: math.Inf(1)})
	boom, _ := p.Create(buf)
	boom.SetPosition(scene.Vec3{X: -7})

	p.fx.occluder = &panickyOccluder{PassthroughOccluder: effects.NewPassthroughOccluder(), at: scene.Vec3{X: -7}}

	res := p.Tick(scene.DefaultListener(), scene.DefaultEnvironment())
	if res.Updated != 1 || len(res.Errors) != 2 {
		t.Fatalf("Expected 1 update and 2 errors, got %d and %v", res.Updated, res.Errors)
	}
	if p.Len() != 3 {
		t.Errorf("Failing sources should not be removed, pool has %d", p.Len())
	}
	if good.Distance() != 5 {
		t.Errorf("Expected the healthy source updated to distance 5, got %f", good.Distance())
	}
	if good.OcclusionAmount() != 0.5 {
		t.Errorf("Expected occlusion from the occluder, got %f", good.OcclusionAmount())
	}
}

func TestPoolRemoveAndDisposeAll(t *testing.T) {
	p, _ := newTestPool(4)
	buf := toneBuffer(t, 64, 440)

	a, _ := p.Create(buf)
	b, _ := p.Create(buf)

	if !p.Remove(a.ID()) || p.Remove(a.ID()) {
		t.Error("Remove should succeed once")
	}
	if len(p.renderList()) != 1 {
		t.Errorf("Expected 1 source in the render list, got %d", len(p.renderList()))
	}

	p.disposeAll()
	if p.Len() != 0 || len(p.renderList()) != 0 {
		t.Error("disposeAll should empty the pool")
	}
	if !b.disposed.Load() {
		t.Error("disposeAll should dispose every source")
	}
}
