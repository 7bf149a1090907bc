package spatial

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported means no audio backend is available; the engine stays uninitialized.
	ErrUnsupported = errors.New("spatial: audio output unsupported")
	// ErrInvalidBuffer is returned for nil or empty buffers. No source is created.
	ErrInvalidBuffer = errors.New("spatial: invalid audio buffer")
	// ErrNotInitialized is returned by operations that need a running engine.
	ErrNotInitialized = errors.New("spatial: engine not initialized")
	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("spatial: engine already initialized")
	// ErrDisposed is returned after Dispose.
	ErrDisposed = errors.New("spatial: engine disposed")
	// ErrSourceNotFound means the handle's source was removed or recycled.
	ErrSourceNotFound = errors.New("spatial: source not found")
	// ErrNoResolver is returned by PlayAsset when no resolver was configured.
	ErrNoResolver = errors.New("spatial: no asset resolver configured")
	// ErrInvalidConfig wraps configuration values that cannot be normalized.
	ErrInvalidConfig = errors.New("spatial: invalid config")

	errNonFinitePosition  = errors.New("non-finite source position")
	errNonFinitePlacement = errors.New("spatializer produced a non-finite placement")
)

// Feature names used in FeatureError and logs.
const (
	FeatureHRTF        = "hrtf"
	FeatureReverb      = "reverb"
	FeatureCompression = "compression"
	FeatureOcclusion   = "occlusion"
)

// FeatureError records a module that failed to initialize. The engine runs
// without the feature.
type FeatureError struct {
	Feature string
	Err     error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("spatial: %s disabled: %v", e.Feature, e.Err)
}

func (e *FeatureError) Unwrap() error { return e.Err }

// panicError converts a recovered value into an error.
func panicError(where string, r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%s panicked: %w", where, err)
	}
	return fmt.Errorf("%s panicked: %v", where, r)
}
