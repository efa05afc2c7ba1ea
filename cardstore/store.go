// Package cardstore keeps the card authorization table in a flat file of
// fixed-width records.
//
// Each record is exactly RecordLen bytes:
//
//	FFF-CCCCC,1\n
//
// and its slot is its byte offset divided by RecordLen. Records are never
// removed; deleting a card overwrites its slot with the blank record so that
// every other slot keeps its number. The file is opened for each operation
// and no state is kept between calls, so callers must not run two operations
// at the same time.
package cardstore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

const (
	// SerialLen is the width of the serial field.
	SerialLen = 9
	// RecordLen is serial + ',' + flag + '\n'.
	RecordLen = SerialLen + 3
	// BlankSerial marks a tombstoned slot.
	BlankSerial = "ZZZZZZZZZ"
	// Append passed as a slot to Put writes a new record at the end.
	Append = -1
)

// Store errors.
var (
	ErrOpenFailure    = errors.New("failed to open card DB")
	ErrRecordTooShort = errors.New("record too short")
	ErrRecordTooLong  = errors.New("record too long")
	ErrInvalidRecord  = errors.New("invalid record in card DB")
	ErrRecordNotFound = errors.New("record not found")
	ErrEOF            = errors.New("database EOF")
	ErrDoesNotExist   = errors.New("database does not exist")
	ErrAlreadyExists  = errors.New("serial number taken")
)

// Record is one row of the table.
type Record struct {
	Serial  string
	Slot    int
	Enabled bool
}

// Blank returns the tombstone record for slot.
func Blank(slot int) Record {
	return Record{Serial: BlankSerial, Slot: slot}
}

// IsBlank reports whether r is a tombstone.
func (r Record) IsBlank() bool {
	return r.Serial == BlankSerial
}

// Store is a card table backed by a single file.
type Store struct {
	path string
}

// New returns a Store for the file at path. The file is not touched.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Init creates an empty table if none exists.
func (s *Store) Init() error {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailure, err)
	}
	return f.Close()
}

func (s *Store) open(flag int) (*os.File, error) {
	f, err := os.OpenFile(s.path, flag, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrDoesNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailure, err)
	}
	return f, nil
}

// readRecord reads one fixed-width line from r.
func readRecord(r *bufio.Reader) (Record, error) {
	var line [RecordLen]byte
	n := 0
	for n < RecordLen {
		c, err := r.ReadByte()
		if err != nil {
			break
		}
		line[n] = c
		n++
		if c == '\n' {
			break
		}
	}

	switch {
	case n == 0:
		return Record{}, ErrEOF
	case n < RecordLen:
		return Record{}, ErrRecordTooShort
	case line[n-1] != '\n':
		return Record{}, ErrRecordTooLong
	}
	return parseRecord(line[:n-1])
}

// parseRecord splits "serial,flag" on the first comma.
func parseRecord(line []byte) (Record, error) {
	left, right, ok := bytes.Cut(line, []byte{','})
	if !ok || len(right) == 0 {
		return Record{}, ErrInvalidRecord
	}
	serial := strings.Trim(string(left), " ")
	if serial == "" {
		return Record{}, ErrInvalidRecord
	}
	return Record{Serial: serial, Enabled: right[0] == '1'}, nil
}

func encodeRecord(r Record) []byte {
	flag := byte('0')
	if r.Enabled {
		flag = '1'
	}
	buf := make([]byte, 0, RecordLen)
	buf = append(buf, r.Serial...)
	return append(buf, ',', flag, '\n')
}

// Lookup scans the table from slot 0 for serial. The first exact match wins.
// A malformed record stops the scan and its error is returned.
func (s *Store) Lookup(serial string) (Record, error) {
	f, err := s.open(os.O_RDONLY)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 16*RecordLen)
	for slot := 0; ; slot++ {
		rec, err := readRecord(r)
		if errors.Is(err, ErrEOF) {
			return Record{}, ErrRecordNotFound
		}
		if err != nil {
			return Record{}, err
		}
		if rec.Serial == serial {
			rec.Slot = slot
			return rec, nil
		}
	}
}

// Get reads the record in slot.
func (s *Store) Get(slot int) (Record, error) {
	f, err := s.open(os.O_RDONLY)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	size, err := fileSize(f)
	if err != nil {
		return Record{}, err
	}
	off := int64(slot) * RecordLen
	if slot < 0 || off >= size {
		return Record{}, ErrEOF
	}

	rec, err := readRecord(bufio.NewReader(io.NewSectionReader(f, off, RecordLen)))
	if err != nil {
		return Record{}, err
	}
	rec.Slot = slot
	return rec, nil
}

// Put writes rec into slot, or at the end of the table when slot is Append.
func (s *Store) Put(slot int, rec Record) error {
	_, err := s.put(slot, rec)
	return err
}

// validSerial reports whether serial is BlankSerial or "DDD-DDDDD".
func validSerial(serial string) bool {
	if serial == BlankSerial {
		return true
	}
	if len(serial) != SerialLen {
		return false
	}
	for i := 0; i < SerialLen; i++ {
		c := serial[i]
		if i == 3 {
			if c != '-' {
				return false
			}
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (s *Store) put(slot int, rec Record) (int, error) {
	if !validSerial(rec.Serial) {
		return 0, ErrInvalidRecord
	}

	f, err := s.open(os.O_RDWR)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	size, err := fileSize(f)
	if err != nil {
		return 0, err
	}

	off := int64(slot) * RecordLen
	switch {
	case slot == Append:
		off = size
		slot = int(size / RecordLen)
	case slot < 0 || off > size:
		return 0, ErrEOF
	}

	if _, err := f.WriteAt(encodeRecord(rec), off); err != nil {
		return 0, fmt.Errorf("write slot %d: %w", slot, err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("sync card DB: %w", err)
	}
	return slot, nil
}

// Insert adds rec, reusing the first blank slot if there is one and
// appending otherwise. It returns the slot used.
func (s *Store) Insert(rec Record) (int, error) {
	_, err := s.Lookup(rec.Serial)
	if err == nil {
		return 0, ErrAlreadyExists
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return 0, err
	}

	slot := Append
	blank, err := s.Lookup(BlankSerial)
	switch {
	case err == nil:
		slot = blank.Slot
	case !errors.Is(err, ErrRecordNotFound):
		return 0, err
	}
	return s.put(slot, rec)
}

// Update rewrites the record in slot. The serial must not belong to a
// card in another slot.
func (s *Store) Update(slot int, rec Record) error {
	if _, err := s.Get(slot); err != nil {
		return err
	}
	other, err := s.Lookup(rec.Serial)
	switch {
	case err == nil && other.Slot != slot:
		return ErrAlreadyExists
	case err != nil && !errors.Is(err, ErrRecordNotFound):
		return err
	}
	return s.Put(slot, rec)
}

// Delete tombstones slot and returns the record that was there.
func (s *Store) Delete(slot int) (Record, error) {
	old, err := s.Get(slot)
	if err != nil {
		return Record{}, err
	}
	if err := s.Put(slot, Blank(slot)); err != nil {
		return Record{}, err
	}
	return old, nil
}

// Enumerate calls visit for every record from slot 0 until the end of the
// table. The first error, from parsing or from visit, stops the walk and is
// returned; records already visited are not revisited.
func (s *Store) Enumerate(visit func(Record) error) error {
	f, err := s.open(os.O_RDONLY)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 16*RecordLen)
	for slot := 0; ; slot++ {
		rec, err := readRecord(r)
		if errors.Is(err, ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}
		rec.Slot = slot
		if err := visit(rec); err != nil {
			return err
		}
	}
}

// Count returns the number of slots, blank ones included.
func (s *Store) Count() (int, error) {
	f, err := s.open(os.O_RDONLY)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	size, err := fileSize(f)
	if err != nil {
		return 0, err
	}
	return int(size / RecordLen), nil
}

func fileSize(f *os.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOpenFailure, err)
	}
	return fi.Size(), nil
}
