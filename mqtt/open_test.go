package mqtt

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	secret = base64.StdEncoding.EncodeToString([]byte("front door secret"))
	now    = time.Unix(1_790_000_000, 0)
)

func request(t *testing.T, member, door string, ts time.Time, sig func(hex, b64 string) string) []byte {
	t.Helper()
	h, b, err := SignOpenRequest(secret, member, door, uint64(ts.Unix()))
	require.NoError(t, err)
	payload, err := json.Marshal(OpenRequest{Member: member, Door: door, Timestamp: uint64(ts.Unix()), Signature: sig(h, b)})
	require.NoError(t, err)
	return payload
}

func hexSig(h, _ string) string { return h }
func b64Sig(_, b string) string { return b }

func TestVerifyOpenRequest(t *testing.T) {
	t.Parallel()
	v := OpenVerifier{Secret: secret, Door: "front", Now: func() time.Time { return now }}

	for name, sig := range map[string]func(string, string) string{"hex": hexSig, "base64": b64Sig} {
		req, err := v.Verify(request(t, "alice", "front", now.Add(-time.Minute), sig))
		require.NoError(t, err, name)
		assert.Equal(t, "alice", req.Member)
	}
}

func TestVerifyOpenRequestRejects(t *testing.T) {
	t.Parallel()
	v := OpenVerifier{Secret: secret, Door: "front", Now: func() time.Time { return now }}

	tests := []struct {
		name    string
		payload []byte
		want    error
	}{
		{
			name:    "bad signature",
			payload: request(t, "alice", "front", now, func(string, string) string { return "00ff" }),
			want:    ErrBadSignature,
		},
		{
			name:    "other door",
			payload: request(t, "alice", "back", now, hexSig),
			want:    ErrWrongDoor,
		},
		{
			name:    "too old",
			payload: request(t, "alice", "front", now.Add(-6*time.Minute), hexSig),
			want:    ErrStaleRequest,
		},
		{
			name:    "from the future",
			payload: request(t, "alice", "front", now.Add(6*time.Minute), hexSig),
			want:    ErrStaleRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := v.Verify(tt.payload)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := v.Verify([]byte("{"))
	assert.Error(t, err)
}

func TestVerifyTamperedMember(t *testing.T) {
	t.Parallel()
	v := OpenVerifier{Secret: secret, Door: "front", Now: func() time.Time { return now }}

	var req OpenRequest
	require.NoError(t, json.Unmarshal(request(t, "alice", "front", now, hexSig), &req))
	req.Member = "mallory"
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	_, err = v.Verify(payload)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	_, err := OpenVerifier{Door: "front"}.Verify(nil)
	assert.ErrorIs(t, err, ErrOpenDisabled)

	_, _, err = SignOpenRequest("", "a", "b", 1)
	assert.Error(t, err)
	_, _, err = SignOpenRequest("!!", "a", "b", 1)
	assert.Error(t, err)
}

func TestTopics(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hausprox/status/node/door1/event", EventTopic("door1"))
	assert.Equal(t, "hausprox/status/node/door1/ping", PingTopic("door1"))
	assert.Equal(t, "hausprox/control/node/door1/open", OpenTopic("door1"))

	c, err := New(Config{}, "door1", Handlers{})
	require.NoError(t, err)
	assert.False(t, c.IsEnabled())
	require.NoError(t, c.Connect())
	require.NoError(t, c.Subscribe("x"))
	c.Publish("x", "y")
	c.Disconnect()
}
