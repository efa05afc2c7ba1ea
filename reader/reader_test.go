package reader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"hausprox/capture"
	"hausprox/wiegand"
)

func level(v int) func() (int, error) {
	return func() (int, error) { return v, nil }
}

func TestOnClockSamplesWhileCardPresent(t *testing.T) {
	t.Parallel()
	var buf capture.Buffer

	onClock(&buf, level(0), level(1))
	onClock(&buf, level(0), level(0))
	assert.Equal(t, 2, buf.Len())
	assert.Equal(t, "01", buf.String())
}

func TestOnClockIgnoresEdgesWithoutCard(t *testing.T) {
	t.Parallel()
	var buf capture.Buffer

	onClock(&buf, level(1), level(0))
	onClock(&buf, func() (int, error) { return 0, errors.New("gone") }, level(0))
	onClock(&buf, level(0), func() (int, error) { return 0, errors.New("gone") })
	assert.Equal(t, 0, buf.Len())
}

func TestOnClockFillsBufferFromSwipe(t *testing.T) {
	t.Parallel()
	var buf capture.Buffer

	for _, l := range wiegand.Encode(80, 35752).Levels() {
		onClock(&buf, level(0), level(int(l)))
	}
	// Extra edges after a full swipe are dropped.
	onClock(&buf, level(0), level(0))

	assert.True(t, buf.Full())
	cred, err := wiegand.Decode(&buf)
	assert.NoError(t, err)
	assert.Equal(t, "080-35752", cred.Serial())
}

func TestConfigured(t *testing.T) {
	t.Parallel()
	pin := 3
	assert.False(t, Config{}.Configured())
	assert.False(t, Config{ClockPin: &pin, DataPin: &pin}.Configured())
	assert.True(t, Config{ClockPin: &pin, DataPin: &pin, PresentPin: &pin}.Configured())

	r, err := New(Config{}, &capture.Buffer{})
	assert.NoError(t, err)
	assert.Nil(t, r)
}
