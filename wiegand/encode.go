package wiegand

// dataGroups is the number of data groups a reader emits per swipe. Only the
// low 26 payload bits carry the card frame; the rest are zero.
const dataGroups = 16

// Bits is a logical bit stream held in memory.
type Bits []uint8

// Bit implements BitSource.
func (b Bits) Bit(i int) (uint8, bool) {
	if i < 0 || i >= len(b) {
		return 0, false
	}
	return b[i], true
}

// Levels returns the raw line levels a reader would drive for b.
func (b Bits) Levels() []uint8 {
	out := make([]uint8, len(b))
	for i, v := range b {
		out[i] = 1 - v
	}
	return out
}

// Encode produces the FrameBits-long stream a reader emits for the given
// card, including frame parity, group parity, the LRC and zero padding.
func Encode(facility uint8, card uint16) Bits {
	frame := uint64(facility)<<16 | uint64(card)
	// Even parity over the upper 12 bits, odd parity over the lower 12.
	hi := popcount(frame>>12) & 1
	lo := (popcount(frame&0xFFF) + 1) & 1
	payload := uint64(hi)<<25 | frame<<1 | uint64(lo)

	out := make(Bits, 0, FrameBits)
	out = append(out, make(Bits, LeadingZeros)...)

	var lrc uint8
	emit := func(nibble uint8) {
		lrc ^= nibble
		out = appendGroup(out, nibble)
	}

	emit(startNibble)
	for i := dataGroups - 1; i >= 0; i-- {
		chunk := uint8(payload>>(3*uint(i))) & 0x7
		emit(chunk)
	}
	emit(endNibble)
	out = appendGroup(out, lrc)

	for len(out) < FrameBits {
		out = append(out, 0)
	}
	return out
}

func appendGroup(out Bits, nibble uint8) Bits {
	var ones uint8
	for i := 0; i < 4; i++ {
		bit := nibble >> uint(i) & 1
		ones += bit
		out = append(out, bit)
	}
	return append(out, (ones+1)&1)
}

func popcount(v uint64) int {
	n := 0
	for ; v != 0; v &= v - 1 {
		n++
	}
	return n
}
