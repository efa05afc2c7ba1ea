// Package controller is the door's decision loop: it watches for relocks,
// turns completed card swipes into admit or deny decisions and toggles open
// house mode from the push button.
//
// A Controller is owned by a single goroutine. Tick and every other method
// must be called from that goroutine; the only state shared with other
// goroutines lives in the capture buffer and the door countdown, which guard
// themselves.
package controller

import (
	"errors"
	"fmt"
	"log"
	"time"

	"hausprox/button"
	"hausprox/cardstore"
	"hausprox/door"
	"hausprox/eventlog"
	"hausprox/wiegand"
)

// Event messages.
const (
	MsgBootup              = "haus|prox bootup"
	MsgAdmit               = "Admit entry"
	MsgAdmitOpenHouse      = "Admit entry (open house)"
	MsgDenyDisabled        = "Deny disabled card"
	MsgDenyUnregistered    = "Deny unregistered card"
	MsgOpenHouseOn         = "Turn on open house"
	MsgOpenHouseOff        = "Turn off open house"
	MsgOpenHouseExpired    = "Open house expired"
	MsgDoorLocked          = "Door is locked"
	MsgDoorUnlocked        = "Door is unlocked"
	MsgDoorAlreadyUnlocked = "Door already unlocked"
	MsgAddCard             = "Add card"
	MsgRemoveCard          = "Remove card"
	MsgUpdateCard          = "Update card"
	MsgRemoteOpen          = "Remote open"
	MsgReaderDisabled      = "Ignore swipe, reader disabled"
)

// BootBeep is the beep played once the controller has started.
const BootBeep = 500 * time.Millisecond

// Capture is the swipe buffer filled by the reader.
type Capture interface {
	wiegand.BitSource
	Full() bool
	Clear()
	String() string
}

// Store is the card table.
type Store interface {
	Lookup(serial string) (cardstore.Record, error)
	Insert(rec cardstore.Record) (int, error)
	Update(slot int, rec cardstore.Record) error
	Delete(slot int) (cardstore.Record, error)
}

// Feedback is what the person at the door sees and hears.
type Feedback interface {
	Idle()
	Granted()
	Denied()
	Beep(d time.Duration)
}

// Logger receives audit events.
type Logger interface {
	Emit(sev eventlog.Severity, msg, serial, buffer string)
}

// Durations are the configurable unlock times.
type Durations struct {
	DoorEntry time.Duration
	OpenHouse time.Duration
}

// DefaultDurations apply when nothing is configured.
var DefaultDurations = Durations{
	DoorEntry: 30 * time.Second,
	OpenHouse: 3 * time.Hour,
}

// DoorTick is the period of door.Door.Tick.
const DoorTick = time.Second

// ticks converts d to door countdown ticks.
func ticks(d time.Duration) int {
	return int(d / DoorTick)
}

// Config wires a Controller to its collaborators.
type Config struct {
	Capture  Capture
	Store    Store
	Door     *door.Door
	Log      Logger
	Feedback Feedback    // nil = none
	Button   button.Line // nil = no open house button

	// Decode defaults to wiegand.Decode.
	Decode func(wiegand.BitSource) (wiegand.Credential, error)

	Durations Durations

	// DebounceThreshold defaults to button.DefaultThreshold.
	DebounceThreshold int
}

// Status is a snapshot for the admin console.
type Status struct {
	Locked        bool
	Remaining     time.Duration
	OpenHouse     bool
	ReaderEnabled bool
	Scanning      bool
	Durations     Durations
}

// Controller decides who gets in.
type Controller struct {
	capture  Capture
	store    Store
	door     *door.Door
	log      Logger
	feedback Feedback
	button   button.Line
	debounce *button.Debouncer
	decode   func(wiegand.BitSource) (wiegand.Credential, error)

	durations      Durations
	readerDisabled bool
	scanning       bool
	openHouse      bool
	lastLocked     bool
}

// New creates a Controller in the idle, locked state.
func New(cfg Config) *Controller {
	c := &Controller{
		capture:    cfg.Capture,
		store:      cfg.Store,
		door:       cfg.Door,
		log:        cfg.Log,
		feedback:   cfg.Feedback,
		button:     cfg.Button,
		decode:     cfg.Decode,
		durations:  cfg.Durations,
		lastLocked: true,
	}
	if c.decode == nil {
		c.decode = wiegand.Decode
	}
	if c.feedback == nil {
		c.feedback = nopFeedback{}
	}
	threshold := cfg.DebounceThreshold
	if threshold <= 0 {
		threshold = button.DefaultThreshold
	}
	c.debounce = button.NewDebouncer(threshold)
	return c
}

// Boot logs the startup message, locks the door and beeps once.
func (c *Controller) Boot() {
	c.log.Emit(eventlog.Message, MsgBootup, "", "")
	c.lockDoor()
	c.feedback.Beep(BootBeep)
}

// Tick runs one pass of the loop: relock detection, then the card reader,
// then the open house button.
func (c *Controller) Tick() {
	c.handleRelock()
	c.handleCard()
	c.handleButton()
}

func (c *Controller) handleRelock() {
	locked := c.door.IsLocked()
	if locked && !c.lastLocked {
		if c.openHouse {
			c.openHouse = false
			c.log.Emit(eventlog.Door, MsgOpenHouseExpired, "", "")
		} else {
			c.log.Emit(eventlog.Door, MsgDoorLocked, "", "")
		}
		c.feedback.Idle()
	}
	c.lastLocked = locked
}

func (c *Controller) handleCard() {
	if c.scanning || !c.capture.Full() {
		return
	}
	if c.readerDisabled {
		c.discardSwipe()
		return
	}

	cred, err := c.decode(c.capture)
	if err != nil {
		c.emitError(err, "", c.capture.String())
		c.capture.Clear()
		return
	}
	c.capture.Clear()

	serial := cred.Serial()
	rec, err := c.store.Lookup(serial)
	switch {
	case errors.Is(err, cardstore.ErrRecordNotFound):
		c.feedback.Denied()
		c.log.Emit(eventlog.Card, MsgDenyUnregistered, serial, "")
		return
	case err != nil:
		c.emitError(err, serial, "")
		return
	}

	if !rec.Enabled {
		c.feedback.Denied()
		c.log.Emit(eventlog.Card, MsgDenyDisabled, serial, "")
		return
	}

	c.feedback.Granted()
	if c.openHouse {
		c.log.Emit(eventlog.Card, MsgAdmitOpenHouse, serial, "")
		return
	}
	c.log.Emit(eventlog.Card, MsgAdmit, serial, "")
	c.unlockDoor(c.durations.DoorEntry)
}

// knownErrors are reported by their own text; wrapped detail such as file
// paths goes to the process log only.
var knownErrors = []error{
	cardstore.ErrOpenFailure,
	cardstore.ErrRecordTooShort,
	cardstore.ErrRecordTooLong,
	cardstore.ErrInvalidRecord,
	cardstore.ErrEOF,
	cardstore.ErrDoesNotExist,
	wiegand.ErrLeadingZeros,
	wiegand.ErrParity,
	wiegand.ErrInvalidStart,
	wiegand.ErrLRCParity,
	wiegand.ErrTrailingZeros,
	wiegand.ErrPadding,
	wiegand.ErrPrematureEnd,
}

// MsgUnknownError is logged for errors outside knownErrors.
const MsgUnknownError = "Unexpected error"

// errorMessage maps err to a fixed event message.
func errorMessage(err error) string {
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return MsgUnknownError
}

func (c *Controller) emitError(err error, serial, buffer string) {
	msg := errorMessage(err)
	if msg != err.Error() {
		log.Printf("%s: %v", msg, err)
	}
	c.log.Emit(eventlog.Error, msg, serial, buffer)
}

func (c *Controller) handleButton() {
	if c.button == nil {
		return
	}
	c.debounce.Update(c.button.Pressed())
	if !c.debounce.Pressed() {
		return
	}

	c.openHouse = !c.openHouse
	if !c.openHouse {
		c.lockDoor()
		c.log.Emit(eventlog.Door, MsgOpenHouseOff, "", "")
		return
	}
	c.unlockDoor(c.durations.OpenHouse)
	c.log.Emit(eventlog.Door, MsgOpenHouseOn, "", "")
}

func (c *Controller) lockDoor() {
	c.log.Emit(eventlog.Door, MsgDoorLocked, "", "")
	c.door.Lock()
}

func (c *Controller) unlockDoor(d time.Duration) {
	if !c.door.IsLocked() {
		c.log.Emit(eventlog.Door, MsgDoorAlreadyUnlocked, "", "")
	} else {
		c.log.Emit(eventlog.Door, MsgDoorUnlocked, "", "")
	}
	c.door.Unlock(ticks(d))
}

// discardSwipe drops a swipe read while the reader is disabled.
func (c *Controller) discardSwipe() {
	var serial string
	if cred, err := c.decode(c.capture); err == nil {
		serial = cred.Serial()
	}
	c.capture.Clear()
	c.log.Emit(eventlog.Card, MsgReaderDisabled, serial, "")
}

// SetReaderEnabled turns card swipes on or off as a way to open the door.
// Swipes read while disabled are logged and dropped.
func (c *Controller) SetReaderEnabled(enabled bool) {
	c.readerDisabled = !enabled
}

// SetScanning holds completed swipes in the buffer for TakeSwipe instead of
// acting on them.
func (c *Controller) SetScanning(scanning bool) {
	c.scanning = scanning
}

// TakeSwipe decodes and clears a completed swipe without acting on it, for
// enrolling cards. ok is false while no swipe is waiting.
func (c *Controller) TakeSwipe() (cred wiegand.Credential, ok bool, err error) {
	if !c.capture.Full() {
		return wiegand.Credential{}, false, nil
	}
	defer c.capture.Clear()
	cred, err = c.decode(c.capture)
	if err != nil {
		c.emitError(err, "", c.capture.String())
		return wiegand.Credential{}, true, err
	}
	return cred, true, nil
}

// Configure replaces the unlock durations. A running countdown is not
// changed.
func (c *Controller) Configure(d Durations) {
	c.durations = d
}

// Status returns the current state.
func (c *Controller) Status() Status {
	return Status{
		Locked:        c.door.IsLocked(),
		Remaining:     time.Duration(c.door.Remaining()) * DoorTick,
		OpenHouse:     c.openHouse,
		ReaderEnabled: !c.readerDisabled,
		Scanning:      c.scanning,
		Durations:     c.durations,
	}
}

// InsertCard adds a card and returns its slot.
func (c *Controller) InsertCard(rec cardstore.Record) (int, error) {
	slot, err := c.store.Insert(rec)
	if err != nil {
		return 0, fmt.Errorf("insert card %s: %w", rec.Serial, err)
	}
	c.log.Emit(eventlog.Admin, MsgAddCard, rec.Serial, "")
	return slot, nil
}

// UpdateCard rewrites the card in slot.
func (c *Controller) UpdateCard(slot int, rec cardstore.Record) error {
	if err := c.store.Update(slot, rec); err != nil {
		return fmt.Errorf("update slot %d: %w", slot, err)
	}
	c.log.Emit(eventlog.Admin, MsgUpdateCard, rec.Serial, "")
	return nil
}

// DeleteCard blanks slot and returns the card that was there.
func (c *Controller) DeleteCard(slot int) (cardstore.Record, error) {
	old, err := c.store.Delete(slot)
	if err != nil {
		return cardstore.Record{}, fmt.Errorf("delete slot %d: %w", slot, err)
	}
	c.log.Emit(eventlog.Admin, MsgRemoveCard, old.Serial, "")
	return old, nil
}

// RemoteUnlock opens the door for the entry duration on behalf of who,
// as if an enabled card had been swiped.
func (c *Controller) RemoteUnlock(who string) {
	c.log.Emit(eventlog.Admin, MsgRemoteOpen, who, "")
	c.feedback.Granted()
	if c.openHouse {
		return
	}
	c.unlockDoor(c.durations.DoorEntry)
}

// TestBeep plays the failure pattern.
func (c *Controller) TestBeep() {
	c.feedback.Denied()
}

// TestStrike unlocks the door for d.
func (c *Controller) TestStrike(d time.Duration) {
	c.unlockDoor(d)
}

type nopFeedback struct{}

func (nopFeedback) Idle()              {}
func (nopFeedback) Granted()           {}
func (nopFeedback) Denied()            {}
func (nopFeedback) Beep(time.Duration) {}
