// Package door drives the door strike and keeps the timed unlock countdown.
package door

import (
	"fmt"
	"sync"

	"github.com/hjkoskel/govattu"
)

// Latch is the interface for all strike/latch implementations.
type Latch interface {
	// Open asserts the strike (door unlocked).
	Open() error

	// Close de-asserts the strike (door locked).
	Close() error

	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for latch implementations.
type Config struct {
	Type       string `yaml:"type"`        // "servo", "gpio_high", "gpio_low", "none"
	Pin        *int   `yaml:"pin"`         // GPIO pin number
	ServoOpen  int    `yaml:"servo_open"`  // PWM value for open position
	ServoClose int    `yaml:"servo_close"` // PWM value for closed position
}

// New creates a Latch based on the provided configuration.
func New(cfg Config) (Latch, error) {
	if cfg.Pin == nil {
		return &Noop{}, nil
	}

	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	switch cfg.Type {
	case "servo":
		return NewServo(hw, uint8(*cfg.Pin), cfg.ServoOpen, cfg.ServoClose)
	case "gpio_high", "openhigh", "":
		return NewGPIO(hw, uint8(*cfg.Pin), true)
	case "gpio_low", "openlow":
		return NewGPIO(hw, uint8(*cfg.Pin), false)
	default:
		hw.Close()
		return &Noop{}, nil
	}
}

// Door unlocks a Latch for a number of ticks and relocks it when the
// countdown runs out. Tick is driven from the timer goroutine while Lock
// and Unlock are called from the main loop; every read-modify-write of the
// countdown happens under mu.
type Door struct {
	mu        sync.Mutex
	latch     Latch
	countdown int
	onError   func(error)
}

// NewDoor wraps latch. onError receives latch failures and may be nil.
func NewDoor(latch Latch, onError func(error)) *Door {
	return &Door{latch: latch, onError: onError}
}

// Lock cancels any countdown and closes the latch.
func (d *Door) Lock() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.countdown = 0
	d.report(d.latch.Close())
}

// Unlock opens the latch for ticks ticks. A non-positive duration leaves the
// door as it is.
func (d *Door) Unlock(ticks int) {
	if ticks <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.countdown = ticks
	d.report(d.latch.Open())
}

// Tick advances the countdown by one and closes the latch when it reaches zero.
func (d *Door) Tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.countdown == 0 {
		return
	}
	d.countdown--
	if d.countdown == 0 {
		d.report(d.latch.Close())
	}
}

// IsLocked reports whether the countdown is zero.
func (d *Door) IsLocked() bool {
	return d.Remaining() == 0
}

// Remaining returns the ticks left before the door relocks.
func (d *Door) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.countdown
}

// Release releases the latch hardware.
func (d *Door) Release() error {
	return d.latch.Release()
}

func (d *Door) report(err error) {
	if err != nil && d.onError != nil {
		d.onError(err)
	}
}
