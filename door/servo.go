package door

import (
	"github.com/hjkoskel/govattu"
)

// PWM clock and range giving a 20 ms servo period on the Pi's PWM0.
const (
	servoClockDiv = 19
	servoRange    = 20000
)

// Servo turns a bolt with a hobby servo on PWM0. Positions are written in
// one step; Door calls Open and Close while holding its countdown lock, so
// a slow sweep would stall the relock timer.
type Servo struct {
	hw       govattu.Vattu
	pin      uint8
	openPos  uint32
	closePos uint32
	open     bool
}

// NewServo configures the PWM pin and moves the bolt to the closed position.
func NewServo(hw govattu.Vattu, pin uint8, openPos, closePos int) (*Servo, error) {
	hw.PinMode(pin, govattu.ALT5) // ALT5 for PWM0
	hw.PwmSetMode(true, true, false, false)
	hw.PwmSetClock(servoClockDiv)
	hw.Pwm0SetRange(servoRange)

	s := &Servo{
		hw:       hw,
		pin:      pin,
		openPos:  uint32(openPos),
		closePos: uint32(closePos),
	}
	s.Close()
	return s, nil
}

// Open implements Latch.Open.
func (s *Servo) Open() error {
	s.hw.Pwm0Set(s.openPos)
	s.open = true
	return nil
}

// Close implements Latch.Close.
func (s *Servo) Close() error {
	s.hw.Pwm0Set(s.closePos)
	s.open = false
	return nil
}

// Release implements Latch.Release.
func (s *Servo) Release() error {
	s.Close()
	return s.hw.Close()
}
