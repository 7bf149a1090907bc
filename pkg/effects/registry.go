package effects

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a fresh, uninitialized module.
type Factory func() Module

// Registry maps (kind, implementation name) to module factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[Kind]map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]map[string]Factory)}
}

// DefaultRegistry returns a registry with the production ("default") and
// pass-through implementations of every kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindHRTF, ImplDefault, func() Module { return NewHRTF() })
	r.Register(KindHRTF, ImplPassthrough, func() Module { return NewPassthroughSpatializer() })
	r.Register(KindOcclusion, ImplDefault, func() Module { return NewRaycastOccluder() })
	r.Register(KindOcclusion, ImplPassthrough, func() Module { return NewPassthroughOccluder() })
	r.Register(KindReverb, ImplDefault, func() Module { return NewRoomReverb() })
	r.Register(KindReverb, ImplPassthrough, func() Module { return NewPassthroughReverb() })
	r.Register(KindCompressor, ImplDefault, func() Module { return NewMasteringCompressor() })
	r.Register(KindCompressor, ImplPassthrough, func() Module { return NewPassthroughCompressor() })
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(kind Kind, name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.factories[kind]
	if !ok {
		byName = make(map[string]Factory)
		r.factories[kind] = byName
	}
	byName[name] = f
}

// Names lists the implementations registered for kind.
func (r *Registry) Names(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories[kind]))
	for name := range r.factories[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates a module. An empty name selects ImplDefault.
func (r *Registry) New(kind Kind, name string) (Module, error) {
	if name == "" {
		name = ImplDefault
	}

	r.mu.RLock()
	f, ok := r.factories[kind][name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownModule, kind, name)
	}

	m := f()
	if m == nil {
		return nil, fmt.Errorf("%w: %s/%s returned nil", ErrUnknownModule, kind, name)
	}
	return m, nil
}

// NewSpatializer creates a module of KindHRTF.
func (r *Registry) NewSpatializer(name string) (Spatializer, error) {
	return newAs[Spatializer](r, KindHRTF, name)
}

// NewOccluder creates a module of KindOcclusion.
func (r *Registry) NewOccluder(name string) (Occluder, error) {
	return newAs[Occluder](r, KindOcclusion, name)
}

// NewReverb creates a module of KindReverb.
func (r *Registry) NewReverb(name string) (Reverb, error) {
	return newAs[Reverb](r, KindReverb, name)
}

// NewCompressor creates a module of KindCompressor.
func (r *Registry) NewCompressor(name string) (Compressor, error) {
	return newAs[Compressor](r, KindCompressor, name)
}

func newAs[T Module](r *Registry, kind Kind, name string) (T, error) {
	var zero T
	m, err := r.New(kind, name)
	if err != nil {
		return zero, err
	}
	typed, ok := m.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrWrongKind, kind, m)
	}
	return typed, nil
}
