package indicator

import "time"

// Noop implements Indicator but does nothing.
// Used when no indicators are configured.
type Noop struct{}

// Idle implements Indicator.Idle.
func (n *Noop) Idle() {}

// Granted implements Indicator.Granted.
func (n *Noop) Granted() {}

// Denied implements Indicator.Denied.
func (n *Noop) Denied() {}

// Beep implements Indicator.Beep.
func (n *Noop) Beep(time.Duration) {}

// Release implements Indicator.Release.
func (n *Noop) Release() error {
	return nil
}
