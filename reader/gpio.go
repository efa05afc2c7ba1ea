//go:build linux

package reader

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Reader owns the requested GPIO lines.
type Reader struct {
	clock   *gpiocdev.Line
	data    *gpiocdev.Line
	present *gpiocdev.Line
}

// New requests the reader lines and starts feeding sink. It returns
// (nil, nil) when the reader is not wired.
func New(cfg Config, sink Sink) (*Reader, error) {
	if !cfg.Configured() {
		return nil, nil
	}
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}

	r := &Reader{}
	var err error

	r.data, err = gpiocdev.RequestLine(cfg.Chip, *cfg.DataPin,
		gpiocdev.AsInput,
		gpiocdev.WithConsumer("hausprox-data"))
	if err != nil {
		return nil, fmt.Errorf("request data line %d: %w", *cfg.DataPin, err)
	}

	r.present, err = gpiocdev.RequestLine(cfg.Chip, *cfg.PresentPin,
		gpiocdev.AsInput,
		gpiocdev.WithConsumer("hausprox-present"))
	if err != nil {
		r.data.Close()
		return nil, fmt.Errorf("request present line %d: %w", *cfg.PresentPin, err)
	}

	r.clock, err = gpiocdev.RequestLine(cfg.Chip, *cfg.ClockPin,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithConsumer("hausprox-clock"),
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			onClock(sink, r.present.Value, r.data.Value)
		}))
	if err != nil {
		r.data.Close()
		r.present.Close()
		return nil, fmt.Errorf("request clock line %d: %w", *cfg.ClockPin, err)
	}

	return r, nil
}

// Close releases the GPIO lines.
func (r *Reader) Close() error {
	if r.clock != nil {
		r.clock.Close()
	}
	if r.present != nil {
		r.present.Close()
	}
	if r.data != nil {
		r.data.Close()
	}
	return nil
}
