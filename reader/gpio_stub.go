//go:build !linux

package reader

import "errors"

// ErrNotSupported is returned when the reader is wired on a platform
// without the GPIO character device.
var ErrNotSupported = errors.New("card reader not supported on this platform")

// Reader is a stub for non-linux platforms.
type Reader struct{}

// New returns an error on non-linux platforms.
func New(cfg Config, sink Sink) (*Reader, error) {
	if !cfg.Configured() {
		return nil, nil
	}
	return nil, ErrNotSupported
}

func (r *Reader) Close() error { return nil }
