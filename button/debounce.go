// Package button reads the open-house push button and filters contact
// bounce out of it.
package button

// DefaultThreshold is the number of consecutive differing samples, beyond
// which a new level is accepted. Sampled once per millisecond this is
// roughly a tenth of a second.
const DefaultThreshold = 100

// Debouncer turns raw samples into a stable state.
type Debouncer struct {
	threshold int
	state     bool
	changed   bool
	count     int
}

// NewDebouncer returns a Debouncer that starts released.
func NewDebouncer(threshold int) *Debouncer {
	return &Debouncer{threshold: threshold}
}

// Update feeds one sample. A level that differs from the stable state must
// be seen on more than threshold consecutive samples before it is taken;
// any sample equal to the stable state restarts the count.
func (d *Debouncer) Update(raw bool) {
	d.changed = false
	if raw == d.state {
		d.count = 0
		return
	}
	if d.count > d.threshold {
		d.state = raw
		d.changed = true
		d.count = 0
		return
	}
	d.count++
}

// State returns the stable level.
func (d *Debouncer) State() bool {
	return d.state
}

// Changed reports whether the last Update changed the stable level.
func (d *Debouncer) Changed() bool {
	return d.changed
}

// Pressed reports a debounced press: the last Update moved the stable
// level to pressed.
func (d *Debouncer) Pressed() bool {
	return d.changed && d.state
}
