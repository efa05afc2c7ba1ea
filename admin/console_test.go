package admin

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hausprox/cardstore"
	"hausprox/clock"
	"hausprox/controller"
)

// script answers prompts from a fixed list, then reports EOF.
type script struct {
	lines   []string
	prompts []string
}

func (s *script) next(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *script) Prompt(p string) (string, error)         { return s.next(p) }
func (s *script) PasswordPrompt(p string) (string, error) { return s.next(p) }

type backend struct {
	cards     []cardstore.Record
	audits    []string
	beeps     int
	strikes   int
	readerOn  bool
	setTo     time.Time
	scan      string
	scanErr   error
	log       string
	now       time.Time
	logMonths []time.Time
}

func (b *backend) Status() controller.Status {
	return controller.Status{Locked: true, ReaderEnabled: b.readerOn, Durations: controller.DefaultDurations}
}
func (b *backend) Now() time.Time { return b.now }
func (b *backend) Cards(visit func(cardstore.Record) error) error {
	for _, r := range b.cards {
		if err := visit(r); err != nil {
			return err
		}
	}
	return nil
}
func (b *backend) GetCard(slot int) (cardstore.Record, error) {
	if slot >= len(b.cards) {
		return cardstore.Record{}, cardstore.ErrEOF
	}
	return b.cards[slot], nil
}
func (b *backend) AddCard(rec cardstore.Record) (int, error) {
	for _, r := range b.cards {
		if r.Serial == rec.Serial {
			return 0, cardstore.ErrAlreadyExists
		}
	}
	rec.Slot = len(b.cards)
	b.cards = append(b.cards, rec)
	return rec.Slot, nil
}
func (b *backend) UpdateCard(slot int, rec cardstore.Record) error {
	rec.Slot = slot
	b.cards[slot] = rec
	return nil
}
func (b *backend) DeleteCard(slot int) (cardstore.Record, error) {
	old := b.cards[slot]
	b.cards[slot] = cardstore.Blank(slot)
	return old, nil
}
func (b *backend) ScanCard(ctx context.Context) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("scan without deadline")
	}
	return b.scan, b.scanErr
}
func (b *backend) ReadLog(month time.Time) ([]byte, error) {
	b.logMonths = append(b.logMonths, month)
	return []byte(b.log), nil
}
func (b *backend) SetTime(t time.Time) error     { b.setTo = t; return nil }
func (b *backend) SetReaderEnabled(enabled bool) { b.readerOn = enabled }
func (b *backend) TestBeep()                     { b.beeps++ }
func (b *backend) TestStrike()                   { b.strikes++ }
func (b *backend) Audit(msg string)              { b.audits = append(b.audits, msg) }

func run(t *testing.T, b *backend, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	c := NewConsole(b, &script{lines: lines}, &out, "secret")
	err := c.Run(context.Background())
	require.ErrorIs(t, err, io.EOF)
	return out.String()
}

func TestLogin(t *testing.T) {
	t.Parallel()
	b := &backend{}
	out := run(t, b, "wrong", "", "secret", "status")

	assert.Equal(t, []string{MsgAccessDenied, MsgAccessDenied}, b.audits)
	assert.Contains(t, out, "Welcome")
	assert.Contains(t, out, "Door locked:    yes")
	assert.Contains(t, out, "Door entry len: 30s")
}

func TestEmptyPasswordLocksOut(t *testing.T) {
	t.Parallel()
	b := &backend{}
	var out bytes.Buffer
	c := NewConsole(b, &script{lines: []string{"", "anything"}}, &out, "")
	require.ErrorIs(t, c.Run(context.Background()), io.EOF)
	assert.Len(t, b.audits, 2)
	assert.NotContains(t, out.String(), "Welcome")
}

func TestAddListEditDelete(t *testing.T) {
	t.Parallel()
	b := &backend{}
	out := run(t, b,
		"secret",
		"add 123-45678",
		"add 1-2",
		"add 001-00002 no",
		"add 123-45678",
		"edit 1 001-00003 yes",
		"delete 0", "yes",
		"delete 1", "no",
		"list",
	)

	assert.Equal(t, []cardstore.Record{
		cardstore.Blank(0),
		{Serial: "001-00003", Slot: 1, Enabled: true},
	}, b.cards)
	assert.Contains(t, out, "Card added in slot 0")
	assert.Contains(t, out, "Card added in slot 1")
	assert.Contains(t, out, "Error: "+cardstore.ErrAlreadyExists.Error())
	assert.Contains(t, out, "Editing card 001-00002")
	assert.Contains(t, out, "Deleting card 123-45678")
	assert.Contains(t, out, "Aborted")
	assert.Contains(t, out, "   0: ZZZZZZZZZ - blank")
	assert.Contains(t, out, "   1: 001-00003 - active")
}

func TestDeleteBlankSlot(t *testing.T) {
	t.Parallel()
	b := &backend{cards: []cardstore.Record{cardstore.Blank(0)}}
	out := run(t, b, "secret", "delete 0")
	assert.Contains(t, out, "slot 0 is blank")
}

func TestScanToAdd(t *testing.T) {
	t.Parallel()
	b := &backend{scan: "080-35752"}
	out := run(t, b, "secret", "scan", "y")
	assert.Contains(t, out, "Read card 080-35752")
	require.Len(t, b.cards, 1)
	assert.True(t, b.cards[0].Enabled)

	b = &backend{scanErr: context.DeadlineExceeded}
	out = run(t, b, "secret", "scan")
	assert.Contains(t, out, "Error: context deadline exceeded")
	assert.Empty(t, b.cards)
}

func TestReviewLog(t *testing.T) {
	t.Parallel()
	b := &backend{
		now: time.Date(2026, time.March, 7, 12, 0, 0, 0, time.Local),
		log: "2026/03/06 08:00:00 [DOOR] Door is locked\n" +
			"2026/03/07 09:05:03 [CARD] Admit entry, serial=123-45678\n",
	}
	out := run(t, b, "secret", "log", "log 26-03", "log 26-02-01")

	assert.Equal(t, 1, strings.Count(out, "[DOOR] Door is locked"))
	assert.Equal(t, 2, strings.Count(out, "[CARD] Admit entry"))
	assert.Contains(t, out, "No entries found")
	require.Len(t, b.logMonths, 3)
	assert.Equal(t, time.February, b.logMonths[2].Month())
}

func TestSetTime(t *testing.T) {
	t.Parallel()
	b := &backend{}
	out := run(t, b, "secret", "time 26-03-07 09:05:03", "time 26-02-30 00:00:00")

	want, err := clock.ParseDateTime("26-03-07 09:05:03")
	require.NoError(t, err)
	assert.Equal(t, want, b.setTo)
	assert.Contains(t, out, "Date/time changed")
	assert.Contains(t, out, "Error: invalid date/time")
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()
	b := &backend{readerOn: true}
	out := run(t, b, "secret", "beep", "strike", "reader off", "bogus")
	assert.Equal(t, 1, b.beeps)
	assert.Equal(t, 1, b.strikes)
	assert.False(t, b.readerOn)
	assert.Contains(t, out, `unknown command "bogus"`)
}

func TestLogoutReturnsToLogin(t *testing.T) {
	t.Parallel()
	s := &script{lines: []string{"secret", "logout", "secret"}}
	var out bytes.Buffer
	c := NewConsole(&backend{}, s, &out, "secret")
	require.ErrorIs(t, c.Run(context.Background()), io.EOF)
	assert.Equal(t, []string{"Password: ", "> ", "Password: ", "> "}, s.prompts)
}

type pipe struct {
	in  io.Reader
	out bytes.Buffer
}

func (p *pipe) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *pipe) Write(b []byte) (int, error) { return p.out.Write(b) }
func (p *pipe) Close() error                { return nil }

func TestLineTerminal(t *testing.T) {
	t.Parallel()
	p := &pipe{in: strings.NewReader("abx\bc\r\nsecret\r")}
	term := NewLineTerminal(p)

	line, err := term.Prompt("> ")
	require.NoError(t, err)
	assert.Equal(t, "abc", line)

	pw, err := term.PasswordPrompt("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)
	assert.Contains(t, p.out.String(), "******")
	assert.NotContains(t, p.out.String(), "secret")

	_, err = term.Prompt("> ")
	assert.ErrorIs(t, err, io.EOF)

	_, err = term.Write([]byte("a\nb"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p.out.String(), "a\r\nb"))
}
