package indicator

import (
	"fmt"
	"sync"
	"time"

	"github.com/hjkoskel/govattu"
)

// step is one segment of a beep pattern.
type step struct {
	on bool
	d  time.Duration
}

// GPIO implements Indicator with the reader's beeper line and optional
// green/red LEDs. Beep patterns play on a background goroutine so the
// caller's loop is never held up by them.
type GPIO struct {
	hw             govattu.Vattu
	beepPin        *uint8
	beepActiveHigh bool
	greenPin       *uint8
	redPin         *uint8

	patterns chan []step
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewGPIO creates a new GPIO-based indicator.
func NewGPIO(cfg Config) (*GPIO, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	return newGPIO(hw, cfg), nil
}

func newGPIO(hw govattu.Vattu, cfg Config) *GPIO {
	g := &GPIO{
		hw:             hw,
		beepPin:        cfg.BeepPin,
		beepActiveHigh: cfg.BeepActiveHigh,
		greenPin:       cfg.GreenPin,
		redPin:         cfg.RedPin,
		patterns:       make(chan []step, 1),
		done:           make(chan struct{}),
	}

	for _, pin := range []*uint8{g.beepPin, g.greenPin, g.redPin} {
		if pin != nil {
			hw.PinMode(*pin, govattu.ALToutput)
		}
	}
	g.setBeep(false)
	g.allOff()

	g.wg.Add(1)
	go g.player()
	return g
}

func (g *GPIO) player() {
	defer g.wg.Done()
	for {
		select {
		case <-g.done:
			return
		case p := <-g.patterns:
			for _, s := range p {
				g.setBeep(s.on)
				select {
				case <-time.After(s.d):
				case <-g.done:
					g.setBeep(false)
					return
				}
			}
			g.setBeep(false)
		}
	}
}

// play queues a pattern, dropping it if one is already waiting.
func (g *GPIO) play(p []step) {
	select {
	case g.patterns <- p:
	default:
	}
}

func (g *GPIO) setBeep(on bool) {
	if g.beepPin == nil {
		return
	}
	if on == g.beepActiveHigh {
		g.hw.PinSet(*g.beepPin)
	} else {
		g.hw.PinClear(*g.beepPin)
	}
}

func (g *GPIO) set(pin *uint8, on bool) {
	if pin == nil {
		return
	}
	if on {
		g.hw.PinSet(*pin)
	} else {
		g.hw.PinClear(*pin)
	}
}

// Idle implements Indicator.Idle.
func (g *GPIO) Idle() {
	g.allOff()
}

// Granted implements Indicator.Granted.
func (g *GPIO) Granted() {
	g.set(g.redPin, false)
	g.set(g.greenPin, true)
}

// Denied implements Indicator.Denied.
func (g *GPIO) Denied() {
	g.set(g.greenPin, false)
	g.set(g.redPin, true)

	p := make([]step, 0, 2*failBeeps)
	for i := 0; i < failBeeps; i++ {
		p = append(p, step{true, failBeepOn}, step{false, failBeepOff})
	}
	g.play(p)
}

// Beep implements Indicator.Beep.
func (g *GPIO) Beep(d time.Duration) {
	g.play([]step{{true, d}})
}

// Release implements Indicator.Release.
func (g *GPIO) Release() error {
	close(g.done)
	g.wg.Wait()
	g.allOff()
	return g.hw.Close()
}

func (g *GPIO) allOff() {
	g.set(g.greenPin, false)
	g.set(g.redPin, false)
}
