// Package capture buffers the raw bits clocked out of the card reader.
//
// Bits are appended from the GPIO edge-event handler and consumed by the
// main loop once the buffer is full. The length counter is the only field
// shared between the two sides: the producer stores a bit and then publishes
// the new length, the consumer reads contents only below the published length.
package capture

import (
	"strings"
	"sync/atomic"
)

// Capacity is the number of bits a single card swipe produces.
const Capacity = 255

// Buffer is a fixed-capacity, append-only bit buffer.
type Buffer struct {
	data [Capacity]uint8
	n    atomic.Int32
}

// Append stores one raw line level (0 or 1). It returns false once the
// buffer is full; nothing is stored in that case.
func (b *Buffer) Append(level uint8) bool {
	n := b.n.Load()
	if n >= Capacity {
		return false
	}
	b.data[n] = level & 1
	b.n.Store(n + 1)
	return true
}

// Clear discards all captured bits.
func (b *Buffer) Clear() {
	b.n.Store(0)
}

// Full reports whether a complete swipe has been captured.
func (b *Buffer) Full() bool {
	return b.n.Load() == Capacity
}

// Len returns the number of captured bits.
func (b *Buffer) Len() int {
	return int(b.n.Load())
}

// Bit returns the logical value of bit i. The reader drives the data line
// low for a one, so the stored line level is inverted on the way out.
// The second result is false when i is outside the captured range.
func (b *Buffer) Bit(i int) (uint8, bool) {
	if i < 0 || i >= b.Len() {
		return 0, false
	}
	return 1 - b.data[i], true
}

// String renders the logical bits as a string of '0' and '1'.
func (b *Buffer) String() string {
	n := b.Len()
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		if b.data[i] == 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
