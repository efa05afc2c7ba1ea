package main

import (
	"context"
	"errors"
	"time"

	"hausprox/cardstore"
	"hausprox/controller"
	"hausprox/eventlog"
	"hausprox/wiegand"
)

// ErrShuttingDown is returned by console requests made during shutdown.
var ErrShuttingDown = errors.New("shutting down")

// MsgDateTimeChanged is audited when the clock is set from the console.
const MsgDateTimeChanged = "Date/time changed"

type scanResult struct {
	cred wiegand.Credential
	err  error
}

// scanWaiter diverts the next swipe to the admin console.
type scanWaiter struct {
	result chan scanResult
}

// pollScan hands a completed swipe to a waiting scan. Runs on the main loop
// after the controller tick.
func (app *App) pollScan() {
	if app.scan == nil {
		return
	}
	cred, ok, err := app.ctrl.TakeSwipe()
	if !ok {
		return
	}
	app.scan.result <- scanResult{cred: cred, err: err}
	app.endScan()
}

func (app *App) endScan() {
	app.ctrl.SetScanning(false)
	app.scan = nil
}

// The methods below implement admin.Backend.

// Status implements admin.Backend.
func (app *App) Status() controller.Status {
	var st controller.Status
	app.do(func() { st = app.ctrl.Status() })
	return st
}

// Now implements admin.Backend.
func (app *App) Now() time.Time {
	return app.clock.Now()
}

// Cards implements admin.Backend.
func (app *App) Cards(visit func(cardstore.Record) error) error {
	err := ErrShuttingDown
	app.do(func() { err = app.store.Enumerate(visit) })
	return err
}

// GetCard implements admin.Backend.
func (app *App) GetCard(slot int) (cardstore.Record, error) {
	var rec cardstore.Record
	err := ErrShuttingDown
	app.do(func() { rec, err = app.store.Get(slot) })
	return rec, err
}

// AddCard implements admin.Backend.
func (app *App) AddCard(rec cardstore.Record) (int, error) {
	var slot int
	err := ErrShuttingDown
	app.do(func() { slot, err = app.ctrl.InsertCard(rec) })
	return slot, err
}

// UpdateCard implements admin.Backend.
func (app *App) UpdateCard(slot int, rec cardstore.Record) error {
	err := ErrShuttingDown
	app.do(func() { err = app.ctrl.UpdateCard(slot, rec) })
	return err
}

// DeleteCard implements admin.Backend.
func (app *App) DeleteCard(slot int) (cardstore.Record, error) {
	var rec cardstore.Record
	err := ErrShuttingDown
	app.do(func() { rec, err = app.ctrl.DeleteCard(slot) })
	return rec, err
}

// ScanCard implements admin.Backend. Card swipes stop opening the door until
// a card is read or ctx ends.
func (app *App) ScanCard(ctx context.Context) (string, error) {
	w := &scanWaiter{result: make(chan scanResult, 1)}
	ok := app.do(func() {
		if app.scan != nil {
			app.endScan()
		}
		app.ctrl.SetScanning(true)
		app.scan = w
	})
	if !ok {
		return "", ErrShuttingDown
	}

	select {
	case r := <-w.result:
		if r.err != nil {
			return "", r.err
		}
		return r.cred.Serial(), nil
	case <-ctx.Done():
		app.do(func() {
			if app.scan == w {
				app.endScan()
			}
		})
		return "", ctx.Err()
	}
}

// ReadLog implements admin.Backend.
func (app *App) ReadLog(month time.Time) ([]byte, error) {
	return app.logFile.Read(month)
}

// SetTime implements admin.Backend.
func (app *App) SetTime(t time.Time) error {
	if err := app.clock.Set(t); err != nil {
		return err
	}
	app.Audit(MsgDateTimeChanged)
	return nil
}

// SetReaderEnabled implements admin.Backend.
func (app *App) SetReaderEnabled(enabled bool) {
	app.do(func() { app.ctrl.SetReaderEnabled(enabled) })
}

// TestBeep implements admin.Backend.
func (app *App) TestBeep() {
	app.do(app.ctrl.TestBeep)
}

// TestStrike implements admin.Backend.
func (app *App) TestStrike() {
	app.do(func() { app.ctrl.TestStrike(strikeTest) })
}

// Audit implements admin.Backend.
func (app *App) Audit(msg string) {
	app.do(func() { app.events.Emit(eventlog.Admin, msg, "", "") })
}
