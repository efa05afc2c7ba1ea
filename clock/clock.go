// Package clock supplies wall-clock time for the audit log, from a DS1307
// real-time clock on the I2C bus or from the system clock.
package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is the time source.
type Clock interface {
	Now() time.Time
}

// Setter is a clock that can be set from the admin console.
type Setter interface {
	Clock
	Set(t time.Time) error
}

// Config holds the clock wiring.
type Config struct {
	Bus string `yaml:"i2c_bus"` // e.g. "/dev/i2c-1"; empty = system clock
}

// New returns the configured clock.
func New(cfg Config) (Setter, error) {
	if cfg.Bus == "" {
		return System{}, nil
	}
	return Open(cfg.Bus)
}

// System reads the host clock. It cannot be set.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time { return time.Now() }

// ErrNotSettable is returned when setting the system clock.
var ErrNotSettable = errors.New("system clock cannot be set")

// Set implements Setter.
func (System) Set(time.Time) error { return ErrNotSettable }

// ErrInvalidDateTime is returned by ParseDateTime.
var ErrInvalidDateTime = errors.New("invalid date/time, want YY-MM-DD HH:MM:SS")

// ParseDateTime parses the admin console's "YY-MM-DD HH:MM:SS" format.
// Any of ":-/ " separate the fields. The year is taken in 2000-2099.
func ParseDateTime(s string) (time.Time, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(":-/ ", r)
	})
	if len(fields) != 6 {
		return time.Time{}, ErrInvalidDateTime
	}
	var v [6]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return time.Time{}, ErrInvalidDateTime
		}
		v[i] = n
	}
	year, month, day, hour, min, sec := v[0], v[1], v[2], v[3], v[4], v[5]
	if year > 99 {
		return time.Time{}, ErrInvalidDateTime
	}
	t := time.Date(2000+year, time.Month(month), day, hour, min, sec, 0, time.Local)
	// Reject anything time.Date had to normalize, such as 02-30.
	if t.Month() != time.Month(month) || t.Day() != day || t.Hour() != hour ||
		t.Minute() != min || t.Second() != sec {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, s)
	}
	return t, nil
}
