package button

import "sync/atomic"

// Line is a raw button input.
type Line interface {
	// Pressed returns the instantaneous, undebounced level.
	Pressed() bool
}

// Config holds the button wiring.
type Config struct {
	Chip string `yaml:"chip"`
	Pin  *int   `yaml:"pin"` // nil = no button
}

// Sim is a Line set from software, used by the event pipe and when no
// button is wired.
type Sim struct {
	pressed atomic.Bool
}

// Set changes the simulated level.
func (s *Sim) Set(pressed bool) {
	s.pressed.Store(pressed)
}

// Pressed implements Line.
func (s *Sim) Pressed() bool {
	return s.pressed.Load()
}

// Any is pressed when any of its lines is.
type Any []Line

// Pressed implements Line.
func (a Any) Pressed() bool {
	for _, l := range a {
		if l.Pressed() {
			return true
		}
	}
	return false
}
