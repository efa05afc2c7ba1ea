// Package eventlog records the door's audit trail: every swipe, door state
// change and admin action, with a severity and an optional card serial and
// raw reader buffer.
package eventlog

import (
	"fmt"
	"strings"
	"time"
)

// Severity classifies an event.
type Severity int

const (
	Card Severity = iota + 1
	Error
	Admin
	Message
	Door
)

// String returns the four-letter tag written in the log.
func (s Severity) String() string {
	switch s {
	case Card:
		return "CARD"
	case Error:
		return "ERRR"
	case Admin:
		return "ADMN"
	case Door:
		return "DOOR"
	default:
		return "MESG"
	}
}

// MarshalText lets the tag be used directly in JSON payloads.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Event is one audit log entry. Serial and Buffer are empty when not
// relevant.
type Event struct {
	Time     time.Time `json:"time"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Serial   string    `json:"serial,omitempty"`
	Buffer   string    `json:"buffer,omitempty"`
}

// TimeLayout is the timestamp written at the start of each line.
const TimeLayout = "2006/01/02 15:04:05"

// Format renders e as a single log line without the trailing newline.
func Format(e Event) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] %s", e.Time.Format(TimeLayout), e.Severity, e.Message)
	if e.Serial != "" {
		sb.WriteString(", serial=")
		sb.WriteString(e.Serial)
	}
	if e.Buffer != "" {
		sb.WriteString(", buffer=")
		sb.WriteString(e.Buffer)
	}
	return sb.String()
}
