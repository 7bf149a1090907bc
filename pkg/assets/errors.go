package assets

import (
	"errors"
	"fmt"
)

var (
	// ErrBufferUnavailable wraps every failure to resolve an asset key.
	ErrBufferUnavailable = errors.New("assets: buffer unavailable")
	// ErrUnknownFormat means no decoder is registered for the key's extension
	// or the data is not in the claimed format.
	ErrUnknownFormat = errors.New("assets: unknown format")
	// ErrInvalidPCM means decoded data has an impossible layout.
	ErrInvalidPCM = errors.New("assets: invalid pcm")
)

// UnavailableError reports why a key could not be resolved. It matches both
// ErrBufferUnavailable and the underlying cause with errors.Is.
type UnavailableError struct {
	Key string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("assets: buffer %q unavailable: %v", e.Key, e.Err)
}

// Unwrap returns the sentinel and the cause.
func (e *UnavailableError) Unwrap() []error {
	return []error{ErrBufferUnavailable, e.Err}
}
