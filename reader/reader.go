// Package reader connects the proximity reader's clock, data and
// card-present lines to a capture buffer.
//
// The reader clocks one bit out per falling edge of the clock line while the
// card-present line is held low. The edge handler runs on the GPIO event
// goroutine and is the only writer of the buffer.
package reader

import "hausprox/capture"

// Config holds the reader wiring.
type Config struct {
	Chip       string `yaml:"chip"`
	ClockPin   *int   `yaml:"clock_pin"`
	DataPin    *int   `yaml:"data_pin"`
	PresentPin *int   `yaml:"present_pin"`
}

// Sink receives one data-line level per clock edge.
type Sink interface {
	Append(level uint8) bool
}

var _ Sink = (*capture.Buffer)(nil)

// Configured reports whether all three lines are wired.
func (c Config) Configured() bool {
	return c.ClockPin != nil && c.DataPin != nil && c.PresentPin != nil
}

// onClock is the clock-edge callback body: sample data only while a card
// is present.
func onClock(sink Sink, present, data func() (int, error)) {
	p, err := present()
	if err != nil || p != 0 {
		return
	}
	d, err := data()
	if err != nil {
		return
	}
	sink.Append(uint8(d))
}
