package door

import (
	"github.com/hjkoskel/govattu"
)

// GPIO drives an electric strike from a single output pin.
type GPIO struct {
	hw         govattu.Vattu
	pin        uint8
	activeHigh bool // pin level that releases the strike
	open       bool
}

// NewGPIO configures pin as an output and starts with the strike locked.
func NewGPIO(hw govattu.Vattu, pin uint8, activeHigh bool) (*GPIO, error) {
	hw.PinMode(pin, govattu.ALToutput)

	g := &GPIO{
		hw:         hw,
		pin:        pin,
		activeHigh: activeHigh,
	}
	g.Close()
	return g, nil
}

func (g *GPIO) drive(level bool) {
	if level {
		g.hw.PinSet(g.pin)
	} else {
		g.hw.PinClear(g.pin)
	}
}

// Open implements Latch.Open.
func (g *GPIO) Open() error {
	g.drive(g.activeHigh)
	g.open = true
	return nil
}

// Close implements Latch.Close.
func (g *GPIO) Close() error {
	g.drive(!g.activeHigh)
	g.open = false
	return nil
}

// IsOpen reports the last level written.
func (g *GPIO) IsOpen() bool {
	return g.open
}

// Release locks the strike before giving up the pin, so a stopped
// controller leaves the door secured.
func (g *GPIO) Release() error {
	g.Close()
	return g.hw.Close()
}
