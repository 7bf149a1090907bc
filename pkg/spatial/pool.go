package spatial

import (
	"fmt"
	"sync/atomic"

	"github.com/justyntemme/spatial3d/pkg/assets"
	"github.com/justyntemme/spatial3d/pkg/effects"
	"github.com/justyntemme/spatial3d/pkg/scene"
	"github.com/pion/logging"
)

// moduleSet is what the engine lends to sources on each tick. Nil modules
// are disabled features.
type moduleSet struct {
	spatializer effects.Spatializer
	occluder    effects.Occluder
	distance    scene.DistanceParams
}

// TickResult summarizes one pool update.
type TickResult struct {
	Updated int
	Removed []SourceID
	// Errors holds one entry per source whose update failed. Those sources
	// keep their previous state.
	Errors []error
}

// Pool holds the live sources up to a fixed capacity. When full, creating a
// source evicts the one that started earliest.
//
// Pool is not safe for concurrent use except for the render snapshot,
// which the renderer loads without locking.
type Pool struct {
	max       int
	clock     *renderClock
	maxCutoff float64
	log       logging.LeveledLogger
	fx        moduleSet

	seq     uint64
	byID    map[SourceID]*Source
	ordered []*Source

	live atomic.Pointer[[]*Source]
}

func newPool(max int, clock *renderClock, maxCutoff float64, log logging.LeveledLogger) *Pool {
	p := &Pool{
		max:       max,
		clock:     clock,
		maxCutoff: maxCutoff,
		log:       log,
		byID:      make(map[SourceID]*Source),
	}
	p.publish()
	return p
}

// Len returns the number of live sources.
func (p *Pool) Len() int { return len(p.ordered) }

// Cap returns the capacity.
func (p *Pool) Cap() int { return p.max }

// Get returns a live source.
func (p *Pool) Get(id SourceID) (*Source, bool) {
	s, ok := p.byID[id]
	return s, ok
}

// Sources returns the live sources in creation order.
func (p *Pool) Sources() []*Source {
	return append([]*Source(nil), p.ordered...)
}

// Create adds a source for buf, evicting the oldest source when full.
func (p *Pool) Create(buf *assets.Buffer, opts ...SourceOption) (*Source, error) {
	settings := defaultSourceSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	return p.create(buf, settings)
}

func (p *Pool) create(buf *assets.Buffer, settings sourceSettings) (*Source, error) {
	if buf.Empty() {
		return nil, ErrInvalidBuffer
	}

	if len(p.ordered) >= p.max {
		p.evictOldest()
	}

	p.seq++
	s := newSource(p.seq, buf, p.clock, p.maxCutoff, settings)
	p.byID[s.id] = s
	p.ordered = append(p.ordered, s)
	p.publish()
	return s, nil
}

// evictOldest removes the source with the smallest start time. Sources
// that never started count as time zero; ties go to the earliest created.
func (p *Pool) evictOldest() {
	if len(p.ordered) == 0 {
		return
	}
	oldest := p.ordered[0]
	for _, s := range p.ordered[1:] {
		if s.startTime < oldest.startTime ||
			(s.startTime == oldest.startTime && s.seq < oldest.seq) {
			oldest = s
		}
	}
	p.log.Debugf("pool full (%d), evicting source %s started at %.3fs", p.max, oldest.id, oldest.startTime)
	p.Remove(oldest.id)
}

// Remove disposes a source. It reports whether the source was live.
func (p *Pool) Remove(id SourceID) bool {
	s, ok := p.byID[id]
	if !ok {
		return false
	}
	s.dispose()
	delete(p.byID, id)
	for i, o := range p.ordered {
		if o == s {
			p.ordered = append(p.ordered[:i], p.ordered[i+1:]...)
			break
		}
	}
	p.publish()
	return true
}

// Tick updates every source against one listener and environment, then
// removes the sources that finished.
func (p *Pool) Tick(l scene.Listener, env scene.Environment) TickResult {
	var res TickResult
	var finished []SourceID

	for _, s := range p.ordered {
		s.pollEnded()
		if err := p.updateSource(s, l, env); err != nil {
			err = fmt.Errorf("source %s: %w", s.id, err)
			p.log.Warnf("update skipped: %v", err)
			res.Errors = append(res.Errors, err)
		} else {
			res.Updated++
		}
		if s.IsFinished() {
			finished = append(finished, s.id)
		}
	}

	for _, id := range finished {
		p.Remove(id)
	}
	res.Removed = finished
	return res
}

func (p *Pool) updateSource(s *Source, l scene.Listener, env scene.Environment) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError("update", r)
		}
	}()
	return s.update(l, env, &p.fx)
}

// disposeAll stops and removes every source.
func (p *Pool) disposeAll() {
	for _, s := range p.ordered {
		s.dispose()
	}
	p.byID = make(map[SourceID]*Source)
	p.ordered = nil
	p.publish()
}

// publish hands the renderer a fresh copy of the source list.
func (p *Pool) publish() {
	snap := append([]*Source(nil), p.ordered...)
	p.live.Store(&snap)
}

// renderList returns the sources the renderer should mix.
func (p *Pool) renderList() []*Source {
	return *p.live.Load()
}
