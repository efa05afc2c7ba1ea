package indicator

import (
	"fmt"
	"os"
	"time"
)

// Neopixel command strings for the external neopixel tool.
const (
	neoIdle    = "@3 !150000 400000"
	neoGranted = "@1 !50000 8000"
	neoDenied  = "@2 !10000 ff"
	neoBeep    = "@1 !20000 ffffff"
	neoOff     = "@0 010101"
)

// Neopixel implements Indicator using an external neopixel tool via named pipe.
type Neopixel struct {
	pipe *os.File
}

// NewNeopixel opens the neopixel tool's command pipe.
func NewNeopixel(pipePath string) (*Neopixel, error) {
	f, err := os.OpenFile(pipePath, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open neopixel pipe %s: %w", pipePath, err)
	}
	return &Neopixel{pipe: f}, nil
}

// Idle implements Indicator.Idle.
func (n *Neopixel) Idle() {
	n.write(neoIdle)
}

// Granted implements Indicator.Granted.
func (n *Neopixel) Granted() {
	n.write(neoGranted)
}

// Denied implements Indicator.Denied.
func (n *Neopixel) Denied() {
	n.write(neoDenied)
}

// Beep flashes the strip; it has no sound.
func (n *Neopixel) Beep(time.Duration) {
	n.write(neoBeep)
}

// Release implements Indicator.Release.
func (n *Neopixel) Release() error {
	if n.pipe == nil {
		return nil
	}
	n.write(neoOff)
	return n.pipe.Close()
}

func (n *Neopixel) write(s string) {
	if n.pipe != nil {
		n.pipe.Write([]byte(s + "\n"))
	}
}
