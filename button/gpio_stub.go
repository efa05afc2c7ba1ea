//go:build !linux

package button

import "errors"

// ErrNotSupported is returned when a pin is configured on a platform
// without the GPIO character device.
var ErrNotSupported = errors.New("button not supported on this platform")

// GPIO is a stub for non-linux platforms.
type GPIO struct{}

// New returns an error on non-linux platforms.
func New(cfg Config) (*GPIO, error) {
	if cfg.Pin == nil {
		return nil, nil
	}
	return nil, ErrNotSupported
}

func (g *GPIO) Pressed() bool  { return false }
func (g *GPIO) Release() error { return nil }
