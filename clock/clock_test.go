package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestBCD(t *testing.T) {
	t.Parallel()
	for n := 0; n < 100; n++ {
		assert.Equal(t, n, fromBCD(toBCD(n)))
	}
	assert.Equal(t, byte(0x59), toBCD(59))
	assert.Equal(t, 26, fromBCD(0x26))
}

func TestDS1307Read(t *testing.T) {
	t.Parallel()
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{{
			Addr: ds1307Addr,
			W:    []byte{0},
			// 09:05:03 Saturday 2026-03-07, clock halt bit set on seconds.
			R: []byte{0x83, 0x05, 0x09, 0x07, 0x07, 0x03, 0x26},
		}},
	}
	r := NewDS1307(bus)

	got, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 7, 9, 5, 3, 0, time.Local), got)
	require.NoError(t, bus.Close())
}

func TestDS1307ReadInvalid(t *testing.T) {
	t.Parallel()
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{{
			Addr: ds1307Addr,
			W:    []byte{0},
			R:    []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		}},
	}
	_, err := NewDS1307(bus).Read()
	assert.ErrorIs(t, err, ErrInvalidRegisters)
}

func TestDS1307NowFallsBack(t *testing.T) {
	t.Parallel()
	bus := &i2ctest.Playback{DontPanic: true}
	before := time.Now()
	got := NewDS1307(bus).Now()
	assert.False(t, got.Before(before))
}

func TestDS1307Set(t *testing.T) {
	t.Parallel()
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{{
			Addr: ds1307Addr,
			W:    []byte{0, 0x03, 0x05, 0x09, 0x07, 0x07, 0x03, 0x26},
		}},
	}
	r := NewDS1307(bus)
	require.NoError(t, r.Set(time.Date(2026, time.March, 7, 9, 5, 3, 0, time.Local)))
	require.NoError(t, bus.Close())

	assert.Error(t, r.Set(time.Date(1999, time.January, 1, 0, 0, 0, 0, time.Local)))
}

func TestParseDateTime(t *testing.T) {
	t.Parallel()
	got, err := ParseDateTime("26-03-07 09:05:03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 7, 9, 5, 3, 0, time.Local), got)

	got, err = ParseDateTime("26/3/7 9:5:3")
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year())

	for _, bad := range []string{"", "26-03-07", "26-02-30 00:00:00", "26-13-01 00:00:00", "126-01-01 00:00:00", "26-01-01 24:00:00", "aa-01-01 00:00:00"} {
		_, err := ParseDateTime(bad)
		assert.ErrorIs(t, err, ErrInvalidDateTime, bad)
	}
}

func TestSystemClock(t *testing.T) {
	t.Parallel()
	c, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, System{}, c)
	assert.ErrorIs(t, c.Set(time.Now()), ErrNotSettable)
}
