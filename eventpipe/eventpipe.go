// Package eventpipe simulates the door hardware from a named pipe, so the
// controller can be driven without a reader or button attached.
package eventpipe

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"hausprox/wiegand"
)

// Config holds configuration for the event pipe.
type Config struct {
	Path string `yaml:"path"` // Path to named pipe (e.g., "/tmp/hausprox-events")
}

// Kind identifies a simulated input.
type Kind int

const (
	// Swipe carries the data-line levels of one card swipe.
	Swipe Kind = iota + 1
	// Button carries the open house button level.
	Button
)

// Event is one parsed pipe command.
type Event struct {
	Kind    Kind
	Levels  []uint8 // Swipe: raw line levels, one per clock edge
	Pressed bool    // Button
}

// EventHandler is called for every event read from the pipe.
type EventHandler func(Event)

// EventPipe listens for events on a named pipe.
type EventPipe struct {
	path    string
	handler EventHandler
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates the named pipe. Returns nil if path is empty.
func New(cfg Config, handler EventHandler) (*EventPipe, error) {
	if cfg.Path == "" {
		return nil, nil
	}

	os.Remove(cfg.Path)
	if err := syscall.Mkfifo(cfg.Path, 0666); err != nil {
		return nil, fmt.Errorf("create named pipe %s: %w", cfg.Path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &EventPipe{
		path:    cfg.Path,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start reads commands until Close. Each writer that opens the pipe may send
// any number of lines. This should be called as a goroutine.
func (ep *EventPipe) Start() {
	log.Printf("Event pipe listening on %s", ep.path)

	for {
		if ep.ctx.Err() != nil {
			return
		}

		// Blocks until a writer connects.
		file, err := os.OpenFile(ep.path, os.O_RDONLY, 0)
		if err != nil {
			if ep.ctx.Err() != nil {
				return
			}
			log.Printf("Event pipe open error: %v", err)
			continue
		}
		ep.read(file)
		file.Close()
	}
}

func (ep *EventPipe) read(file *os.File) {
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if ep.ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		event, err := parseLine(line)
		if err != nil {
			log.Printf("Event pipe parse error: %v", err)
			continue
		}
		if ep.handler != nil {
			ep.handler(event)
		}
	}
}

// Close stops the listener and removes the pipe.
func (ep *EventPipe) Close() error {
	ep.cancel()
	// Unblock a Start waiting in open.
	if f, err := os.OpenFile(ep.path, os.O_WRONLY|syscall.O_NONBLOCK, 0); err == nil {
		f.Close()
	}
	return os.Remove(ep.path)
}

// parseLine parses a command line into an Event.
// Command format:
//
//	swipe FFF-CCCCC   - A well-formed swipe of the given card
//	raw <bits>        - A swipe given as logical bits, e.g. raw 0000...1101
//	button <0|1>      - Open house button released or pressed
func parseLine(line string) (Event, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Event{}, fmt.Errorf("empty command")
	}

	cmd := strings.ToLower(parts[0])
	switch cmd {
	case "swipe", "card":
		if len(parts) < 2 {
			return Event{}, fmt.Errorf("swipe requires a serial (FFF-CCCCC)")
		}
		cred, err := wiegand.ParseSerial(parts[1])
		if err != nil {
			return Event{}, err
		}
		return Event{
			Kind:   Swipe,
			Levels: wiegand.Encode(cred.Facility, cred.Card).Levels(),
		}, nil

	case "raw":
		if len(parts) < 2 {
			return Event{}, fmt.Errorf("raw requires bits")
		}
		bits := strings.Join(parts[1:], "")
		levels := make([]uint8, 0, len(bits))
		for _, c := range bits {
			switch c {
			case '0':
				levels = append(levels, 1)
			case '1':
				levels = append(levels, 0)
			default:
				return Event{}, fmt.Errorf("invalid bit %q", c)
			}
		}
		return Event{Kind: Swipe, Levels: levels}, nil

	case "button", "btn":
		if len(parts) < 2 {
			return Event{}, fmt.Errorf("button requires <0|1>")
		}
		pressed := parts[1] == "1" || strings.ToLower(parts[1]) == "true"
		return Event{Kind: Button, Pressed: pressed}, nil

	default:
		return Event{}, fmt.Errorf("unknown command: %s", cmd)
	}
}
