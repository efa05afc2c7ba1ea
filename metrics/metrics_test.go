package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hausprox/eventlog"
)

func TestRecorderCounts(t *testing.T) {
	t.Parallel()
	r := NewRecorder(nil)

	events := []eventlog.Event{
		{Severity: eventlog.Card, Message: "Admit entry", Serial: "123-45678"},
		{Severity: eventlog.Card, Message: "Admit entry (open house)", Serial: "123-45678"},
		{Severity: eventlog.Card, Message: "Deny disabled card"},
		{Severity: eventlog.Card, Message: "Deny unregistered card"},
		{Severity: eventlog.Card, Message: "Deny unregistered card"},
		{Severity: eventlog.Door, Message: "Door is locked"},
	}
	for _, e := range events {
		require.NoError(t, r.Write(e))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(r.admits))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.denials))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.events.WithLabelValues("CARD", "Deny unregistered card")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.events.WithLabelValues("DOOR", "Door is locked")))
}

func TestHandlerExposesDoorState(t *testing.T) {
	t.Parallel()
	locked := false
	r := NewRecorder(func() bool { return locked })

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hausprox_door_unlocked 1")
}

func TestNewServerDisabled(t *testing.T) {
	t.Parallel()
	assert.Nil(t, NewServer(Config{}, NewRecorder(nil)))
	assert.NotNil(t, NewServer(Config{Listen: "127.0.0.1:0"}, NewRecorder(nil)))
}
