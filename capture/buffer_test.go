package capture

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferAppendUntilFull(t *testing.T) {
	t.Parallel()
	var b Buffer

	for i := 0; i < Capacity; i++ {
		require.False(t, b.Full(), "full after %d bits", i)
		require.True(t, b.Append(uint8(i%2)))
	}

	assert.True(t, b.Full())
	assert.Equal(t, Capacity, b.Len())
	assert.False(t, b.Append(1), "append past capacity must fail")
	assert.Equal(t, Capacity, b.Len())
}

func TestBufferBitInvertsLineLevel(t *testing.T) {
	t.Parallel()
	var b Buffer
	b.Append(1)
	b.Append(0)

	bit, ok := b.Bit(0)
	require.True(t, ok)
	assert.Equal(t, uint8(0), bit)

	bit, ok = b.Bit(1)
	require.True(t, ok)
	assert.Equal(t, uint8(1), bit)

	_, ok = b.Bit(2)
	assert.False(t, ok, "no data past length")
	_, ok = b.Bit(-1)
	assert.False(t, ok)
}

func TestBufferClear(t *testing.T) {
	t.Parallel()
	var b Buffer
	for b.Append(0) {
	}
	require.True(t, b.Full())

	b.Clear()
	assert.False(t, b.Full())
	assert.Equal(t, 0, b.Len())
	_, ok := b.Bit(0)
	assert.False(t, ok)
	assert.True(t, b.Append(1))
}

func TestBufferString(t *testing.T) {
	t.Parallel()
	var b Buffer
	for _, c := range "1100" {
		b.Append(uint8(c - '0'))
	}
	assert.Equal(t, "0011", b.String())
}

func TestBufferProducerConsumerHandoff(t *testing.T) {
	t.Parallel()
	var b Buffer
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < Capacity+10; i++ {
			b.Append(1)
		}
	}()
	for !b.Full() {
	}
	assert.Equal(t, strings.Repeat("0", Capacity), b.String())
	wg.Wait()
}
