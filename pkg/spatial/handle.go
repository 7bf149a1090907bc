package spatial

import "github.com/justyntemme/spatial3d/pkg/scene"

// SourceHandle refers to a source owned by an engine. Once the source is
// removed, by eviction, completion or Dispose, every method returns
// ErrSourceNotFound.
type SourceHandle struct {
	id SourceID
	e  *Engine
}

// ID returns the source identifier.
func (h SourceHandle) ID() SourceID { return h.id }

func (h SourceHandle) with(fn func(s *Source)) error {
	if h.e == nil {
		return ErrSourceNotFound
	}
	h.e.mu.Lock()
	defer h.e.mu.Unlock()
	if err := h.e.stateErr(); err != nil {
		return err
	}
	s, ok := h.e.pool.Get(h.id)
	if !ok {
		return ErrSourceNotFound
	}
	fn(s)
	return nil
}

// SetPosition moves the source.
func (h SourceHandle) SetPosition(p scene.Vec3) error {
	return h.with(func(s *Source) { s.SetPosition(p) })
}

// SetVelocity sets the velocity used for Doppler.
func (h SourceHandle) SetVelocity(v scene.Vec3) error {
	return h.with(func(s *Source) { s.SetVelocity(v) })
}

// SetOrientation sets the facing direction.
func (h SourceHandle) SetOrientation(o scene.Vec3) error {
	return h.with(func(s *Source) { s.SetOrientation(o) })
}

// SetVolume clamps v to [0,1] and returns the applied value.
func (h SourceHandle) SetVolume(v float64) (applied float64, err error) {
	err = h.with(func(s *Source) { applied = s.SetVolume(v) })
	return applied, err
}

// SetOcclusionAmount clamps a to [0,1] and returns the applied value.
func (h SourceHandle) SetOcclusionAmount(a float64) (applied float64, err error) {
	err = h.with(func(s *Source) { applied = s.SetOcclusionAmount(a) })
	return applied, err
}

// SetReverbAmount clamps v to [0,1] and returns the applied value.
func (h SourceHandle) SetReverbAmount(v float64) (applied float64, err error) {
	err = h.with(func(s *Source) { applied = s.SetReverbAmount(v) })
	return applied, err
}

// Start schedules playback when seconds from now.
func (h SourceHandle) Start(when float64) error {
	return h.with(func(s *Source) { s.Start(when) })
}

// Stop schedules silence when seconds from now. The source is removed on
// the first tick after that time.
func (h SourceHandle) Stop(when float64) error {
	return h.with(func(s *Source) { s.Stop(when) })
}

// State returns a copy of the source state.
func (h SourceHandle) State() (st SourceState, err error) {
	err = h.with(func(s *Source) { st = s.State() })
	return st, err
}

// Dispose stops the source and removes it from the engine.
func (h SourceHandle) Dispose() error {
	return h.with(func(s *Source) { h.e.pool.Remove(s.id) })
}
