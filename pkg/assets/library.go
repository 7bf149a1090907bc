package assets

import (
	"bytes"
	"context"
	"io/fs"
	"sync"

	"github.com/justyntemme/spatial3d/pkg/framework/debug"
	"github.com/pion/logging"
	"golang.org/x/sync/singleflight"
)

// Resolver maps an asset key to a decoded buffer.
type Resolver interface {
	Resolve(ctx context.Context, key string) (*Buffer, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, key string) (*Buffer, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, key string) (*Buffer, error) { return f(ctx, key) }

// Library decodes assets from a file system and caches the results.
// Concurrent resolves of one key share a single decode.
type Library struct {
	fsys     fs.FS
	registry *Registry
	log      logging.LeveledLogger

	mu    sync.RWMutex
	cache map[string]*Buffer
	group singleflight.Group
}

// LibraryOption configures a Library.
type LibraryOption func(*Library)

// WithDecoders replaces the default decoder registry.
func WithDecoders(r *Registry) LibraryOption {
	return func(l *Library) { l.registry = r }
}

// WithLibraryLogger sets the logger used for load diagnostics.
func WithLibraryLogger(log logging.LeveledLogger) LibraryOption {
	return func(l *Library) { l.log = log }
}

// NewLibrary creates a library reading from fsys.
func NewLibrary(fsys fs.FS, opts ...LibraryOption) *Library {
	l := &Library{
		fsys:     fsys,
		registry: DefaultRegistry(),
		cache:    make(map[string]*Buffer),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = debug.Default().WithScope("assets")
	}
	return l
}

// Resolve returns the buffer for key, decoding it on first use.
func (l *Library) Resolve(ctx context.Context, key string) (*Buffer, error) {
	if b, ok := l.cached(key); ok {
		return b, nil
	}

	ch := l.group.DoChan(key, func() (interface{}, error) {
		if b, ok := l.cached(key); ok {
			return b, nil
		}
		b, err := l.load(key)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[key] = b
		l.mu.Unlock()
		l.log.Debugf("decoded %s: %d frames, %d ch, %d Hz", key, b.Frames(), b.Channels(), b.SampleRate())
		return b, nil
	})

	select {
	case <-ctx.Done():
		return nil, &UnavailableError{Key: key, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, &UnavailableError{Key: key, Err: res.Err}
		}
		return res.Val.(*Buffer), nil
	}
}

func (l *Library) cached(key string) (*Buffer, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.cache[key]
	return b, ok
}

func (l *Library) load(key string) (*Buffer, error) {
	dec, err := l.registry.ForKey(key)
	if err != nil {
		return nil, err
	}

	raw, err := fs.ReadFile(l.fsys, key)
	if err != nil {
		return nil, err
	}

	pcm, err := dec.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return FromFloat32Buffer(key, pcm)
}

// Evict drops a cached buffer. Sources already playing it keep their reference.
func (l *Library) Evict(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, key)
}

// Len returns the number of cached buffers.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}
