package admin

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"go.bug.st/serial"
)

// Config holds the console settings.
type Config struct {
	// Serial port for a maintenance terminal (e.g. /dev/ttyUSB0).
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
	// Local runs the console on the daemon's own terminal.
	Local bool `yaml:"local"`
}

// Terminal is a console endpoint.
type Terminal interface {
	Prompter
	io.Writer
	Close() error
}

// Open returns the configured terminal, or nil when the console is off.
func Open(cfg Config) (Terminal, error) {
	switch {
	case cfg.Port != "":
		return OpenSerial(cfg.Port, cfg.Baud)
	case cfg.Local:
		return NewLocal(), nil
	}
	return nil, nil
}

// Local is the controlling terminal with line editing and history.
type Local struct {
	*liner.State
}

// NewLocal takes over stdin.
func NewLocal() *Local {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	return &Local{State: l}
}

// Write implements io.Writer.
func (l *Local) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

// Prompt reads a line and records it in the history.
func (l *Local) Prompt(prompt string) (string, error) {
	line, err := l.State.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		l.AppendHistory(line)
	}
	return line, nil
}

// LineTerminal is a dumb terminal on a byte stream: it echoes input,
// handles backspace and masks passwords.
type LineTerminal struct {
	rw     io.ReadWriteCloser
	r      *bufio.Reader
	lastCR bool
}

// NewLineTerminal wraps rw.
func NewLineTerminal(rw io.ReadWriteCloser) *LineTerminal {
	return &LineTerminal{rw: rw, r: bufio.NewReader(rw)}
}

// OpenSerial opens a serial port terminal. A zero baud rate means 9600.
func OpenSerial(port string, baud int) (*LineTerminal, error) {
	if baud == 0 {
		baud = 9600
	}
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	return NewLineTerminal(p), nil
}

// Write converts newlines to CRLF.
func (t *LineTerminal) Write(p []byte) (int, error) {
	out := strings.ReplaceAll(string(p), "\n", "\r\n")
	if _, err := io.WriteString(t.rw, out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Prompt implements Prompter.
func (t *LineTerminal) Prompt(prompt string) (string, error) {
	return t.readLine(prompt, false)
}

// PasswordPrompt implements Prompter.
func (t *LineTerminal) PasswordPrompt(prompt string) (string, error) {
	return t.readLine(prompt, true)
}

// ErrLineTooLong is returned for input lines over maxLine bytes.
var ErrLineTooLong = errors.New("input line too long")

const maxLine = 256

func (t *LineTerminal) readLine(prompt string, mask bool) (string, error) {
	if _, err := io.WriteString(t.rw, prompt); err != nil {
		return "", err
	}
	var line []byte
	for {
		b, err := t.r.ReadByte()
		if err != nil {
			return "", err
		}
		// A CRLF pair ends one line, not two.
		if b == '\n' && t.lastCR {
			t.lastCR = false
			continue
		}
		t.lastCR = b == '\r'

		switch b {
		case '\r', '\n':
			io.WriteString(t.rw, "\r\n")
			return string(line), nil
		case 0x08, 0x7F:
			if len(line) > 0 {
				line = line[:len(line)-1]
				io.WriteString(t.rw, "\b \b")
			}
			continue
		case 0x03:
			return "", liner.ErrPromptAborted
		}
		if b < 0x20 {
			continue
		}
		if len(line) >= maxLine {
			return "", ErrLineTooLong
		}
		line = append(line, b)
		echo := b
		if mask {
			echo = '*'
		}
		t.rw.Write([]byte{echo})
	}
}

// Close closes the underlying stream.
func (t *LineTerminal) Close() error {
	return t.rw.Close()
}
