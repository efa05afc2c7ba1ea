// Package admin is the maintenance console: card management, log review,
// clock setting and hardware tests behind a password.
package admin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"hausprox/cardstore"
	"hausprox/clock"
	"hausprox/controller"
	"hausprox/wiegand"
)

// ScanTimeout bounds how long "scan" waits for a swipe.
const ScanTimeout = 30 * time.Second

// MsgAccessDenied is audited for every failed login.
const MsgAccessDenied = "Admin access denied"

// ErrLoggedOut ends a session.
var ErrLoggedOut = errors.New("logged out")

// Backend is what the console operates on. Implementations serialize the
// calls with the door's main loop.
type Backend interface {
	Status() controller.Status
	Now() time.Time
	Cards(visit func(cardstore.Record) error) error
	GetCard(slot int) (cardstore.Record, error)
	AddCard(rec cardstore.Record) (int, error)
	UpdateCard(slot int, rec cardstore.Record) error
	DeleteCard(slot int) (cardstore.Record, error)
	ScanCard(ctx context.Context) (string, error)
	ReadLog(month time.Time) ([]byte, error)
	SetTime(t time.Time) error
	SetReaderEnabled(enabled bool)
	TestBeep()
	TestStrike()
	Audit(msg string)
}

// Prompter reads a line of input after showing a prompt.
// *liner.State implements it.
type Prompter interface {
	Prompt(prompt string) (string, error)
	PasswordPrompt(prompt string) (string, error)
}

// Console runs admin sessions on one terminal.
type Console struct {
	backend  Backend
	in       Prompter
	out      io.Writer
	password string
}

// NewConsole creates a console. An empty password locks everyone out.
func NewConsole(b Backend, in Prompter, out io.Writer, password string) *Console {
	return &Console{backend: b, in: in, out: out, password: password}
}

// Run serves sessions until ctx is done or input fails.
func (c *Console) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if err := c.login(); err != nil {
			return err
		}
		err := c.session(ctx)
		if errors.Is(err, ErrLoggedOut) {
			continue
		}
		return err
	}
	return ctx.Err()
}

func (c *Console) login() error {
	for {
		pw, err := c.in.PasswordPrompt("Password: ")
		if err != nil {
			return err
		}
		if c.password != "" && pw == c.password {
			c.printf("\nWelcome to the haus|prox door access system. Type 'help' for commands.\n")
			return nil
		}
		c.backend.Audit(MsgAccessDenied)
		c.printf("%s\n", MsgAccessDenied)
	}
}

func (c *Console) session(ctx context.Context) error {
	for ctx.Err() == nil {
		line, err := c.in.Prompt("> ")
		if err != nil {
			return err
		}
		if err := c.Exec(ctx, line); err != nil {
			if errors.Is(err, ErrLoggedOut) {
				return err
			}
			c.printf("Error: %v\n", err)
		}
	}
	return ctx.Err()
}

const help = `Commands:
  status                         Show door status
  list                           List cards
  add <FFF-CCCCC> [yes|no]       Add a card (active by default)
  edit <slot> <FFF-CCCCC> <yes|no>
                                 Rewrite a card
  delete <slot>                  Blank a card slot
  scan                           Swipe a card to add it
  log [YY-MM[-DD]]               Review the log (default today)
  time [YY-MM-DD HH:MM:SS]       Show or set the date/time
  reader <on|off>                Let card swipes open the door
  beep                           Beep test
  strike                         Strike test
  logout                         End the session
`

// Exec runs one command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "help", "?":
		c.printf("%s", help)
	case "status":
		c.status()
	case "list", "ls":
		return c.list()
	case "add":
		return c.add(args[1:])
	case "edit":
		return c.edit(args[1:])
	case "delete", "rm":
		return c.remove(args[1:])
	case "scan":
		return c.scan(ctx)
	case "log":
		return c.review(args[1:])
	case "time", "date":
		return c.dateTime(args[1:])
	case "reader":
		return c.reader(args[1:])
	case "beep":
		c.backend.TestBeep()
	case "strike":
		c.backend.TestStrike()
	case "logout", "quit", "exit":
		return ErrLoggedOut
	default:
		return fmt.Errorf("unknown command %q, try 'help'", args[0])
	}
	return nil
}

func (c *Console) printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "y", "yes", "1", "on", "true":
		return true, nil
	case "n", "no", "0", "off", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid entry %q", s)
}

func parseSerial(s string) (string, error) {
	cred, err := wiegand.ParseSerial(s)
	if err != nil {
		return "", err
	}
	return cred.Serial(), nil
}

func parseSlot(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid slot %q", s)
	}
	return n, nil
}

func (c *Console) status() {
	st := c.backend.Status()
	c.printf("Door locked:    %s\n", yesNo(st.Locked))
	if !st.Locked {
		c.printf("Relocks in:     %s\n", st.Remaining)
	}
	c.printf("Open house:     %s\n", yesNo(st.OpenHouse))
	c.printf("Reader enabled: %s\n", yesNo(st.ReaderEnabled))
	c.printf("Date/time:      %s\n", c.backend.Now().Format("2006/01/02 15:04:05"))
	c.printf("Door entry len: %s\n", st.Durations.DoorEntry)
	c.printf("Open house len: %s\n", st.Durations.OpenHouse)
}

func (c *Console) list() error {
	n := 0
	err := c.backend.Cards(func(r cardstore.Record) error {
		n++
		switch {
		case r.IsBlank():
			c.printf("%4d: %s - blank\n", r.Slot, r.Serial)
		case r.Enabled:
			c.printf("%4d: %s - active\n", r.Slot, r.Serial)
		default:
			c.printf("%4d: %s - disabled\n", r.Slot, r.Serial)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if n == 0 {
		c.printf("No cards\n")
	}
	return nil
}

func (c *Console) add(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: add <FFF-CCCCC> [yes|no]")
	}
	serial, err := parseSerial(args[0])
	if err != nil {
		return err
	}
	enabled := true
	if len(args) > 1 {
		if enabled, err = parseYesNo(args[1]); err != nil {
			return err
		}
	}
	slot, err := c.backend.AddCard(cardstore.Record{Serial: serial, Enabled: enabled})
	if err != nil {
		return err
	}
	c.printf("Card added in slot %d\n", slot)
	return nil
}

func (c *Console) edit(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: edit <slot> <FFF-CCCCC> <yes|no>")
	}
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}
	serial, err := parseSerial(args[1])
	if err != nil {
		return err
	}
	enabled, err := parseYesNo(args[2])
	if err != nil {
		return err
	}
	old, err := c.backend.GetCard(slot)
	if err != nil {
		return err
	}
	c.printf("Editing card %s\n", old.Serial)
	if err := c.backend.UpdateCard(slot, cardstore.Record{Serial: serial, Enabled: enabled}); err != nil {
		return err
	}
	c.printf("Success\n")
	return nil
}

func (c *Console) remove(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: delete <slot>")
	}
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}
	rec, err := c.backend.GetCard(slot)
	if err != nil {
		return err
	}
	if rec.IsBlank() {
		return fmt.Errorf("slot %d is blank", slot)
	}
	c.printf("Deleting card %s\n", rec.Serial)
	if !c.confirm() {
		c.printf("Aborted\n")
		return nil
	}
	if _, err := c.backend.DeleteCard(slot); err != nil {
		return err
	}
	c.printf("Success\n")
	return nil
}

func (c *Console) confirm() bool {
	answer, err := c.in.Prompt("Confirm? ")
	if err != nil {
		return false
	}
	ok, err := parseYesNo(strings.TrimSpace(answer))
	return err == nil && ok
}

func (c *Console) scan(ctx context.Context) error {
	c.printf("Swipe the card now\n")
	ctx, cancel := context.WithTimeout(ctx, ScanTimeout)
	defer cancel()

	serial, err := c.backend.ScanCard(ctx)
	if err != nil {
		return err
	}
	c.printf("Read card %s\n", serial)
	if !c.confirm() {
		c.printf("Aborted\n")
		return nil
	}
	slot, err := c.backend.AddCard(cardstore.Record{Serial: serial, Enabled: true})
	if err != nil {
		return err
	}
	c.printf("Card added in slot %d\n", slot)
	return nil
}

// review prints the log entries for one day, or a whole month when only
// YY-MM is given.
func (c *Console) review(args []string) error {
	now := c.backend.Now()
	year, month, day := now.Year(), now.Month(), now.Day()
	if len(args) > 0 {
		parts := strings.Split(args[0], "-")
		if len(parts) < 2 || len(parts) > 3 {
			return errors.New("usage: log [YY-MM[-DD]]")
		}
		var v [3]int
		for i, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil {
				return fmt.Errorf("invalid entry %q", args[0])
			}
			v[i] = n
		}
		year, month, day = 2000+v[0], time.Month(v[1]), v[2]
	}

	data, err := c.backend.ReadLog(time.Date(year, month, 1, 0, 0, 0, 0, time.Local))
	if err != nil {
		return err
	}

	prefix := fmt.Sprintf("%04d/%02d/", year, int(month))
	if day > 0 {
		prefix = fmt.Sprintf("%s%02d ", prefix, day)
	}
	n := 0
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if strings.HasPrefix(sc.Text(), prefix) {
			c.printf("%s\n", sc.Text())
			n++
		}
	}
	if n == 0 {
		c.printf("No entries found\n")
	}
	return sc.Err()
}

func (c *Console) dateTime(args []string) error {
	if len(args) == 0 {
		c.printf("Time is %s\n", c.backend.Now().Format("2006/01/02 15:04:05"))
		return nil
	}
	t, err := clock.ParseDateTime(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if err := c.backend.SetTime(t); err != nil {
		return err
	}
	c.printf("Date/time changed\n")
	return nil
}

func (c *Console) reader(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: reader <on|off>")
	}
	on, err := parseYesNo(args[0])
	if err != nil {
		return err
	}
	c.backend.SetReaderEnabled(on)
	c.printf("Reader enabled: %s\n", yesNo(on))
	return nil
}
