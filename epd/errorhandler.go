// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// ErrorHandler runs a command sequence against a Hardware, remembering the
// first error. Once an error occurred all further calls are no-ops.
type ErrorHandler struct {
	hw   Hardware
	busy gpio.Level
	err  error
}

// NewErrorHandler returns an ErrorHandler for hw. busy is the level of the
// busy line while the panel is working.
func NewErrorHandler(hw Hardware, busy gpio.Level) *ErrorHandler {
	return &ErrorHandler{hw: hw, busy: busy}
}

// Err returns the first error encountered, if any.
func (eh *ErrorHandler) Err() error {
	return eh.err
}

// SetReset drives the reset line.
func (eh *ErrorHandler) SetReset(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.hw.SetReset(l)
}

// Delay pauses the sequence.
func (eh *ErrorHandler) Delay(d time.Duration) {
	if eh.err != nil {
		return
	}
	eh.err = eh.hw.Delay(d)
}

// WaitUntilIdle blocks until the panel is no longer busy.
func (eh *ErrorHandler) WaitUntilIdle() {
	if eh.err != nil {
		return
	}
	eh.err = eh.hw.WaitForIdle(eh.busy)
}

// SendCommand waits for the panel to be idle, then sends cmd. The
// controllers ignore commands received while busy.
func (eh *ErrorHandler) SendCommand(cmd byte) {
	eh.WaitUntilIdle()
	if eh.err != nil {
		return
	}
	eh.err = eh.hw.WriteCommand(cmd)
}

// SendData sends parameter or pixel bytes following a command.
func (eh *ErrorHandler) SendData(data []byte) {
	if eh.err != nil || len(data) == 0 {
		return
	}
	eh.err = eh.hw.WriteData(data)
}
