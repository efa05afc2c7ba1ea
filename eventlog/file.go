package eventlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File writes formatted lines to a console writer and appends them to a
// monthly file under Dir. The file is opened for every event so a removed
// or rotated file is recreated on the next write.
type File struct {
	mu      sync.Mutex
	dir     string
	console io.Writer
}

// NewFile creates a File sink. An empty dir disables the file and a nil
// console disables the console copy.
func NewFile(dir string, console io.Writer) *File {
	return &File{dir: dir, console: console}
}

// FileName returns the monthly log file name for t, e.g. hp-26-10.log.
func FileName(t time.Time) string {
	return fmt.Sprintf("hp-%d-%02d.log", t.Year()%100, int(t.Month()))
}

// Path returns the log file that events at t are written to.
func (f *File) Path(t time.Time) string {
	if f.dir == "" {
		return ""
	}
	return filepath.Join(f.dir, FileName(t))
}

// Write implements Sink. The console copy is written even when the file
// cannot be opened.
func (f *File) Write(e Event) error {
	line := Format(e) + "\n"

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.console != nil {
		io.WriteString(f.console, line)
	}
	if f.dir == "" {
		return nil
	}

	out, err := os.OpenFile(f.Path(e.Time), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	if _, err := io.WriteString(out, line); err != nil {
		out.Close()
		return fmt.Errorf("write event log: %w", err)
	}
	return out.Close()
}

// Read returns the contents of the log file for the month containing t.
// A month with no events yields an empty result.
func (f *File) Read(t time.Time) ([]byte, error) {
	if f.dir == "" {
		return nil, nil
	}
	data, err := os.ReadFile(f.Path(t))
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}
