// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"fmt"
	"time"

	"github.com/GermanBionicSystems/epaper/framebuffer"
	"periph.io/x/conn/v3/gpio"
)

// ResetPulse is how long the reset line is held low, and how long the
// controller is given to come back up afterwards.
const ResetPulse = 10 * time.Millisecond

// Lifecycle tracks the power state of one panel and gates the operations a
// driver runs against its Hardware.
//
// It also retains the base framebuffer: the image on the glass after the
// last successful refresh, against which partial refreshes are computed.
//
// A Lifecycle is not safe for concurrent use.
type Lifecycle struct {
	hw   Hardware
	busy gpio.Level
	log  Logger

	state  PowerState
	fault  error
	base   *framebuffer.Framebuffer
	synced bool
}

// NewLifecycle returns a Lifecycle in the Uninitialized state. busy is the
// level of the busy line while the panel is working. logger may be nil.
func NewLifecycle(hw Hardware, busy gpio.Level, logger Logger) *Lifecycle {
	if logger == nil {
		logger = discard{}
	}
	return &Lifecycle{hw: hw, busy: busy, log: logger}
}

// State returns the current power state.
func (l *Lifecycle) State() PowerState {
	return l.state
}

// Base returns the retained base framebuffer, or nil before the first
// successful full display. The caller must not modify it.
func (l *Lifecycle) Base() *framebuffer.Framebuffer {
	return l.base
}

// Synced reports whether both RAM banks of the controller are known to
// hold the base framebuffer. It is false after a Reset until the base is
// written again.
func (l *Lifecycle) Synced() bool {
	return l.base != nil && l.synced
}

// Fault returns the error that interrupted the last command sequence. It is
// cleared by a successful Reset.
func (l *Lifecycle) Fault() error {
	return l.fault
}

// Check returns a *StateError if op may not run now.
func (l *Lifecycle) Check(op string, allowed ...PowerState) error {
	if l.fault != nil {
		return &StateError{Op: op, State: l.state, Reason: "reset required after: " + l.fault.Error()}
	}
	for _, s := range allowed {
		if s == l.state {
			return nil
		}
	}
	return &StateError{Op: op, State: l.state}
}

// Run runs the command sequence seq if the current state is one of allowed.
// Nothing is sent to the panel when the check fails. An error raised by the
// sequence leaves the Lifecycle faulted until the next Reset.
func (l *Lifecycle) Run(op string, seq func(eh *ErrorHandler), allowed ...PowerState) error {
	if err := l.Check(op, allowed...); err != nil {
		return err
	}
	return l.run(op, seq)
}

func (l *Lifecycle) run(op string, seq func(eh *ErrorHandler)) error {
	eh := NewErrorHandler(l.hw, l.busy)
	seq(eh)
	if err := eh.Err(); err != nil {
		l.fault = err
		l.log.Printf("epd: %s failed: %v", op, err)
		return fmt.Errorf("epd: %s: %w", op, err)
	}
	return nil
}

func pulseReset(eh *ErrorHandler) {
	eh.SetReset(gpio.Low)
	eh.Delay(ResetPulse)
	eh.SetReset(gpio.High)
	eh.Delay(ResetPulse)
}

// Reset pulses the reset line, then runs init. It is accepted in every state
// and clears a previous fault. The controller's RAM can no longer be trusted
// afterwards, so the base framebuffer is kept but marked unsynced.
func (l *Lifecycle) Reset(init func(eh *ErrorHandler)) error {
	err := l.run("Reset", func(eh *ErrorHandler) {
		pulseReset(eh)
		if init != nil {
			init(eh)
		}
	})
	if err != nil {
		return err
	}
	l.fault = nil
	l.synced = false
	l.transition("Reset", Awake)
	return nil
}

// Sleep runs seq, which must put the panel into deep sleep. It is a no-op
// when already asleep.
func (l *Lifecycle) Sleep(seq func(eh *ErrorHandler)) error {
	if l.state == Asleep && l.fault == nil {
		return nil
	}
	if err := l.Run("Sleep", seq, Awake); err != nil {
		return err
	}
	l.transition("Sleep", Asleep)
	return nil
}

// Wake pulses the reset line to bring the panel out of deep sleep and runs
// seq, which may be nil. RAM content survives deep sleep, so the base
// framebuffer stays valid. It is a no-op when already awake.
func (l *Lifecycle) Wake(seq func(eh *ErrorHandler)) error {
	if l.state == Awake && l.fault == nil {
		return nil
	}
	err := l.Run("Wake", func(eh *ErrorHandler) {
		pulseReset(eh)
		if seq != nil {
			seq(eh)
		}
	}, Asleep)
	if err != nil {
		return err
	}
	l.transition("Wake", Awake)
	return nil
}

// Commit adopts a copy of fb as the base framebuffer, recording that both
// RAM banks hold it.
func (l *Lifecycle) Commit(fb *framebuffer.Framebuffer) {
	l.base = fb.Clone()
	l.synced = true
}

// MarkSynced records that the base framebuffer was rewritten to both RAM
// banks.
func (l *Lifecycle) MarkSynced() {
	l.synced = l.base != nil
}

// MarkUnsynced records that the RAM banks may no longer hold the base
// framebuffer, so the next partial display rewrites it first.
func (l *Lifecycle) MarkUnsynced() {
	l.synced = false
}

func (l *Lifecycle) transition(op string, to PowerState) {
	if l.state != to {
		l.log.Printf("epd: %s: %s -> %s", op, l.state, to)
	}
	l.state = to
}
