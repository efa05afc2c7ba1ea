package indicator

import "time"

// Multi combines multiple Indicator implementations.
type Multi struct {
	indicators []Indicator
}

// NewMulti combines indicators.
func NewMulti(indicators ...Indicator) *Multi {
	return &Multi{indicators: indicators}
}

// Idle implements Indicator.Idle.
func (m *Multi) Idle() {
	for _, ind := range m.indicators {
		ind.Idle()
	}
}

// Granted implements Indicator.Granted.
func (m *Multi) Granted() {
	for _, ind := range m.indicators {
		ind.Granted()
	}
}

// Denied implements Indicator.Denied.
func (m *Multi) Denied() {
	for _, ind := range m.indicators {
		ind.Denied()
	}
}

// Beep implements Indicator.Beep.
func (m *Multi) Beep(d time.Duration) {
	for _, ind := range m.indicators {
		ind.Beep(d)
	}
}

// Release implements Indicator.Release.
func (m *Multi) Release() error {
	var lastErr error
	for _, ind := range m.indicators {
		if err := ind.Release(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
