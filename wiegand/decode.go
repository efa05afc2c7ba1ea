// Package wiegand decodes the card reader's bit stream into a facility
// code and card number.
//
// A swipe is 255 bits long:
//
//	25 zeros | START DATA ... DATA END LRC | zeros
//
// Each group is five bits, d0 d1 d2 d3 P, with odd parity over all five.
// START is 1101 (d0..d3), END is 1111. Data groups carry three payload bits
// and a zero pad in d3. The payload ends in the 26-bit facility/card frame:
//
//	P | FACILITY (8) | CARD (16) | P
package wiegand

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// FrameBits is the length of a complete capture.
	FrameBits = 255
	// LeadingZeros is the number of idle bits before the START group.
	LeadingZeros = 25
	// SerialLen is the length of a formatted serial, "FFF-CCCCC".
	SerialLen = 9
)

// Decode errors.
var (
	ErrLeadingZeros   = errors.New("expected leading zeros")
	ErrParity         = errors.New("parity failure")
	ErrInvalidStart   = errors.New("invalid start segment")
	ErrLRCParity      = errors.New("LRC parity failure")
	ErrTrailingZeros  = errors.New("expected trailing zeros")
	ErrPadding        = errors.New("data pad failure")
	ErrPrematureEnd   = errors.New("premature end of data")
	ErrBufferTooSmall = errors.New("serial buffer too small")
)

// BitSource yields logical bits by position. ok is false past the end of data.
type BitSource interface {
	Bit(i int) (bit uint8, ok bool)
}

// Credential is a successfully decoded card.
type Credential struct {
	Facility uint8
	Card     uint16
}

// Serial returns the canonical "FFF-CCCCC" form used as the card database key.
func (c Credential) Serial() string {
	return FormatSerial(c.Facility, c.Card)
}

// FormatSerial formats a facility/card pair as "FFF-CCCCC".
func FormatSerial(facility uint8, card uint16) string {
	return fmt.Sprintf("%03d-%05d", facility, card)
}

// ParseSerial is the inverse of FormatSerial.
func ParseSerial(serial string) (Credential, error) {
	if len(serial) != SerialLen || serial[3] != '-' {
		return Credential{}, fmt.Errorf("serial %q: want FFF-CCCCC", serial)
	}
	f, err := strconv.ParseUint(serial[:3], 10, 16)
	if err != nil {
		return Credential{}, fmt.Errorf("serial %q facility: %w", serial, err)
	}
	c, err := strconv.ParseUint(serial[4:], 10, 32)
	if err != nil {
		return Credential{}, fmt.Errorf("serial %q card: %w", serial, err)
	}
	if f > 0xFF || c > 0xFFFF {
		return Credential{}, fmt.Errorf("serial %q out of range", serial)
	}
	return Credential{Facility: uint8(f), Card: uint16(c)}, nil
}

type cursor struct {
	src BitSource
	pos int
}

func (c *cursor) next() (uint8, bool) {
	b, ok := c.src.Bit(c.pos)
	c.pos++
	return b, ok
}

type group struct {
	d0, d1, d2, d3, p uint8
}

func (g group) oddParity() bool {
	return (g.d0+g.d1+g.d2+g.d3+g.p)%2 == 1
}

func (g group) nibble() uint8 {
	return g.d0 | g.d1<<1 | g.d2<<2 | g.d3<<3
}

const (
	startNibble = 0xB // d0=1 d1=1 d2=0 d3=1
	endNibble   = 0xF
)

// group reads five bits. ok is false if the stream ran out before all five
// were read.
func (c *cursor) group() (g group, ok bool) {
	var bits [5]uint8
	for i := range bits {
		if bits[i], ok = c.next(); !ok {
			return group{}, false
		}
	}
	return group{bits[0], bits[1], bits[2], bits[3], bits[4]}, true
}

// Decode interprets a full capture.
func Decode(src BitSource) (Credential, error) {
	c := &cursor{src: src}

	for i := 0; i < LeadingZeros; i++ {
		if b, ok := c.next(); !ok || b != 0 {
			return Credential{}, ErrLeadingZeros
		}
	}

	var acc uint64
	start := true
	for {
		g, ok := c.group()
		if !ok {
			return Credential{}, ErrPrematureEnd
		}
		if !g.oddParity() {
			return Credential{}, ErrParity
		}

		if start {
			if g.nibble() != startNibble {
				return Credential{}, ErrInvalidStart
			}
			start = false
			continue
		}

		if g.nibble() == endNibble {
			lrc, ok := c.group()
			if !ok {
				return Credential{}, ErrPrematureEnd
			}
			if !lrc.oddParity() {
				return Credential{}, ErrLRCParity
			}
			for {
				b, ok := c.next()
				if !ok {
					break
				}
				if b != 0 {
					return Credential{}, ErrTrailingZeros
				}
			}
			break
		}

		if g.d3 != 0 {
			return Credential{}, ErrPadding
		}
		acc = acc<<1 | uint64(g.d2)
		acc = acc<<1 | uint64(g.d1)
		acc = acc<<1 | uint64(g.d0)
	}

	// Drop the trailing parity bit; the leading one falls outside the masks.
	acc >>= 1
	return Credential{
		Facility: uint8((acc >> 16) & 0xFF),
		Card:     uint16(acc & 0xFFFF),
	}, nil
}

// ReadSerial decodes src and writes the serial into dst, returning the number
// of bytes written.
func ReadSerial(src BitSource, dst []byte) (int, error) {
	if len(dst) < SerialLen {
		return 0, ErrBufferTooSmall
	}
	cred, err := Decode(src)
	if err != nil {
		return 0, err
	}
	return copy(dst, cred.Serial()), nil
}
