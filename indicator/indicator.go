// Package indicator gives the person at the door feedback: the reader's
// beeper and optional status LEDs or a neopixel strip.
package indicator

import "time"

// Indicator is the interface for feedback implementations.
type Indicator interface {
	// Idle returns the indicator to its resting state.
	Idle()

	// Granted signals an admitted card.
	Granted()

	// Denied plays the failure pattern (three short beeps).
	Denied()

	// Beep sounds the beeper once for d.
	Beep(d time.Duration)

	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for indicator implementations.
type Config struct {
	// Reader beeper pin (nil = not configured). The stock reader beeps
	// while the line is held low.
	BeepPin        *uint8 `yaml:"beep_pin"`
	BeepActiveHigh bool   `yaml:"beep_active_high"`

	// GPIO LED pins (nil = not configured)
	GreenPin *uint8 `yaml:"green_pin"`
	RedPin   *uint8 `yaml:"red_pin"`

	// Neopixel pipe path (empty = not configured)
	NeopixelPipe string `yaml:"neopixel_pipe"`
}

// Fail beep timing.
const (
	failBeeps   = 3
	failBeepOn  = 200 * time.Millisecond
	failBeepOff = 100 * time.Millisecond
)

// New creates an Indicator based on the provided configuration.
// Returns a Multi indicator if both GPIO and Neopixel are configured.
func New(cfg Config) (Indicator, error) {
	var indicators []Indicator

	if cfg.BeepPin != nil || cfg.GreenPin != nil || cfg.RedPin != nil {
		gpio, err := NewGPIO(cfg)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, gpio)
	}

	if cfg.NeopixelPipe != "" {
		neo, err := NewNeopixel(cfg.NeopixelPipe)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, neo)
	}

	if len(indicators) == 0 {
		return &Noop{}, nil
	}
	if len(indicators) == 1 {
		return indicators[0], nil
	}
	return &Multi{indicators: indicators}, nil
}
