//go:build headless

package backend

// OpenDefault has no device to open in headless builds.
func OpenDefault(sampleRate, blockSize int) (Device, error) {
	return nil, ErrNoDevice
}
