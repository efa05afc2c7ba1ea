package eventlog

import (
	"log"
	"sync"
	"time"
)

// Sink receives stamped events.
type Sink interface {
	Write(e Event) error
}

// Clock supplies event timestamps.
type Clock interface {
	Now() time.Time
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) error

// Write implements Sink.
func (f SinkFunc) Write(e Event) error { return f(e) }

// Logger stamps events and fans them out to every sink. A failing sink is
// reported and does not stop delivery to the others.
type Logger struct {
	mu    sync.Mutex
	clock Clock
	sinks []Sink
}

// New creates a Logger. A nil clock uses the system time.
func New(clock Clock, sinks ...Sink) *Logger {
	if clock == nil {
		clock = systemClock{}
	}
	return &Logger{clock: clock, sinks: sinks}
}

// Add attaches another sink.
func (l *Logger) Add(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Log stamps e with the current time and delivers it.
func (l *Logger) Log(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.Time = l.clock.Now()
	for _, s := range l.sinks {
		if err := s.Write(e); err != nil {
			log.Printf("Event log sink error: %v", err)
		}
	}
}

// Emit is shorthand for Log with the given fields.
func (l *Logger) Emit(sev Severity, msg, serial, buffer string) {
	l.Log(Event{Severity: sev, Message: msg, Serial: serial, Buffer: buffer})
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
