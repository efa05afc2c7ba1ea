package indicator

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
	err   error
}

func (r *recorder) Idle()              { r.calls = append(r.calls, "idle") }
func (r *recorder) Granted()           { r.calls = append(r.calls, "granted") }
func (r *recorder) Denied()            { r.calls = append(r.calls, "denied") }
func (r *recorder) Beep(time.Duration) { r.calls = append(r.calls, "beep") }
func (r *recorder) Release() error {
	r.calls = append(r.calls, "release")
	return r.err
}

func TestNewWithoutHardwareIsNoop(t *testing.T) {
	t.Parallel()
	ind, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Noop{}, ind)
}

func TestMultiFansOut(t *testing.T) {
	t.Parallel()
	a, b := &recorder{}, &recorder{err: errors.New("stuck")}
	m := NewMulti(a, b)

	m.Granted()
	m.Denied()
	m.Beep(time.Millisecond)
	m.Idle()
	err := m.Release()

	want := []string{"granted", "denied", "beep", "idle", "release"}
	assert.Equal(t, want, a.calls)
	assert.Equal(t, want, b.calls)
	assert.EqualError(t, err, "stuck")
}

func TestNeopixelWritesCommands(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "neo")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	n, err := NewNeopixel(path)
	require.NoError(t, err)
	n.Denied()
	n.Idle()
	require.NoError(t, n.Release())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, neoDenied+"\n"+neoIdle+"\n"+neoOff+"\n", string(data))
}

func TestNeopixelMissingPipe(t *testing.T) {
	t.Parallel()
	_, err := New(Config{NeopixelPipe: filepath.Join(t.TempDir(), "absent")})
	assert.Error(t, err)
}
