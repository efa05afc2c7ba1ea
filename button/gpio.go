//go:build linux

package button

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIO reads a button wired between the pin and ground, with the pull-up
// enabled, so a pressed button reads low.
type GPIO struct {
	line *gpiocdev.Line
}

// New requests the button line. It returns (nil, nil) when no pin is set.
func New(cfg Config) (*GPIO, error) {
	if cfg.Pin == nil {
		return nil, nil
	}
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	l, err := gpiocdev.RequestLine(cfg.Chip, *cfg.Pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer("hausprox-button"))
	if err != nil {
		return nil, fmt.Errorf("request button line %d: %w", *cfg.Pin, err)
	}
	return &GPIO{line: l}, nil
}

// Pressed implements Line. Read errors count as released.
func (g *GPIO) Pressed() bool {
	v, err := g.line.Value()
	return err == nil && v == 0
}

// Release releases the line.
func (g *GPIO) Release() error {
	return g.line.Close()
}
