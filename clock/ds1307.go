package clock

import (
	"errors"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DS1307 I2C address.
const ds1307Addr = 0x68

// ErrInvalidRegisters is returned when the chip holds an impossible time,
// typically after losing its backup battery.
var ErrInvalidRegisters = errors.New("RTC holds an invalid time")

// DS1307 is a battery-backed real-time clock. Times are kept in local time
// with a two-digit year.
type DS1307 struct {
	dev *i2c.Dev
	bus i2c.BusCloser
}

// Open initializes the periph host and opens the clock on busName.
func Open(busName string) (*DS1307, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialize periph host: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open I2C bus %s: %w", busName, err)
	}
	r := NewDS1307(bus)
	r.bus = bus
	return r, nil
}

// NewDS1307 returns a clock on an already open bus.
func NewDS1307(bus i2c.Bus) *DS1307 {
	return &DS1307{dev: &i2c.Dev{Addr: ds1307Addr, Bus: bus}}
}

// Read returns the time held by the chip.
func (r *DS1307) Read() (time.Time, error) {
	var regs [7]byte
	if err := r.dev.Tx([]byte{0}, regs[:]); err != nil {
		return time.Time{}, fmt.Errorf("read RTC: %w", err)
	}

	sec := fromBCD(regs[0] & 0x7F) // bit 7 is clock halt
	min := fromBCD(regs[1])
	hour := fromBCD(regs[2] & 0x3F) // 24 hour mode
	day := fromBCD(regs[4])
	month := fromBCD(regs[5])
	year := fromBCD(regs[6])

	if sec > 59 || min > 59 || hour > 23 || day < 1 || day > 31 || month < 1 || month > 12 || year > 99 {
		return time.Time{}, fmt.Errorf("%w: % x", ErrInvalidRegisters, regs)
	}
	return time.Date(2000+year, time.Month(month), day, hour, min, sec, 0, time.Local), nil
}

// Now implements Clock. A failed read falls back to the system clock.
func (r *DS1307) Now() time.Time {
	t, err := r.Read()
	if err != nil {
		log.Printf("RTC read failed, using system time: %v", err)
		return time.Now()
	}
	return t
}

// Set writes t to the chip and starts its oscillator.
func (r *DS1307) Set(t time.Time) error {
	if t.Year() < 2000 || t.Year() > 2099 {
		return fmt.Errorf("set RTC: year %d out of range", t.Year())
	}
	w := []byte{
		0, // register address
		toBCD(t.Second()),
		toBCD(t.Minute()),
		toBCD(t.Hour()),
		toBCD(int(t.Weekday()) + 1),
		toBCD(t.Day()),
		toBCD(int(t.Month())),
		toBCD(t.Year() - 2000),
	}
	if err := r.dev.Tx(w, nil); err != nil {
		return fmt.Errorf("set RTC: %w", err)
	}
	return nil
}

// Close releases the bus if Open created it.
func (r *DS1307) Close() error {
	if r.bus == nil {
		return nil
	}
	return r.bus.Close()
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

func toBCD(n int) byte {
	return byte(n/10)<<4 | byte(n%10)
}
