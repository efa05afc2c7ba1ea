package eventlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

var when = time.Date(2026, time.March, 7, 9, 5, 3, 0, time.UTC)

func TestFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		e    Event
		want string
	}{
		{
			name: "message only",
			e:    Event{Time: when, Severity: Message, Message: "haus|prox bootup"},
			want: "2026/03/07 09:05:03 [MESG] haus|prox bootup",
		},
		{
			name: "with serial",
			e:    Event{Time: when, Severity: Card, Message: "Admit entry", Serial: "123-45678"},
			want: "2026/03/07 09:05:03 [CARD] Admit entry, serial=123-45678",
		},
		{
			name: "with buffer",
			e:    Event{Time: when, Severity: Error, Message: "Parity failure", Buffer: "0101"},
			want: "2026/03/07 09:05:03 [ERRR] Parity failure, buffer=0101",
		},
		{
			name: "admin and door",
			e:    Event{Time: when, Severity: Admin, Message: "Add card", Serial: "001-00001"},
			want: "2026/03/07 09:05:03 [ADMN] Add card, serial=001-00001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Format(tt.e))
		})
	}
	assert.Equal(t, "DOOR", Door.String())
	assert.Equal(t, "MESG", Severity(0).String())
}

func TestFileName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hp-26-03.log", FileName(when))
	assert.Equal(t, "hp-5-12.log", FileName(time.Date(2005, time.December, 1, 0, 0, 0, 0, time.UTC)))
}

func TestLoggerFansOutAndStamps(t *testing.T) {
	t.Parallel()
	var a, b []Event
	failing := SinkFunc(func(Event) error { return errors.New("offline") })
	l := New(fixedClock(when),
		SinkFunc(func(e Event) error { a = append(a, e); return nil }),
		failing,
	)
	l.Add(SinkFunc(func(e Event) error { b = append(b, e); return nil }))

	l.Emit(Door, "Door is locked", "", "")

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, when, a[0].Time)
	assert.Equal(t, a, b)
}

func TestFileSink(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var console bytes.Buffer
	f := NewFile(dir, &console)
	l := New(fixedClock(when), f)

	l.Emit(Card, "Deny unregistered card", "001-00002", "")
	l.Emit(Door, "Door is locked", "", "")

	want := "2026/03/07 09:05:03 [CARD] Deny unregistered card, serial=001-00002\n" +
		"2026/03/07 09:05:03 [DOOR] Door is locked\n"
	assert.Equal(t, want, console.String())

	data, err := os.ReadFile(filepath.Join(dir, "hp-26-03.log"))
	require.NoError(t, err)
	assert.Equal(t, want, string(data))

	got, err := f.Read(when)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))

	got, err = f.Read(when.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileSinkMissingDirStillWritesConsole(t *testing.T) {
	t.Parallel()
	var console bytes.Buffer
	f := NewFile(filepath.Join(t.TempDir(), "absent"), &console)

	err := f.Write(Event{Time: when, Severity: Message, Message: "hello"})
	assert.Error(t, err)
	assert.Contains(t, console.String(), "[MESG] hello")
}

type publisher struct {
	topic, payload string
}

func (p *publisher) Publish(topic, payload string) {
	p.topic, p.payload = topic, payload
}

func TestMQTTSink(t *testing.T) {
	t.Parallel()
	p := &publisher{}
	s := NewMQTT(p, "hausprox/status/node/door1/event")

	require.NoError(t, s.Write(Event{Time: when, Severity: Card, Message: "Admit entry", Serial: "123-45678"}))
	assert.Equal(t, "hausprox/status/node/door1/event", p.topic)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(p.payload), &got))
	assert.Equal(t, "CARD", got["severity"])
	assert.Equal(t, "Admit entry", got["message"])
	assert.Equal(t, "123-45678", got["serial"])
	assert.NotContains(t, got, "buffer")
}
