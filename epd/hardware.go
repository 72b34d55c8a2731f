// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Hardware is the set of operations a driver needs from the board the panel
// is wired to.
//
// Every method may block. Errors are returned to the caller of the driver
// operation as-is, wrapped with context.
type Hardware interface {
	// SetReset drives the reset line.
	SetReset(l gpio.Level) error
	// WaitForIdle blocks while the busy line reads busy. It returns an error
	// wrapping ErrTimeout if the line doesn't change in time.
	WaitForIdle(busy gpio.Level) error
	// WriteCommand sends a single command byte with the D/C line low.
	WriteCommand(cmd byte) error
	// WriteData sends parameter or pixel bytes with the D/C line high.
	WriteData(data []byte) error
	// Delay pauses for d.
	Delay(d time.Duration) error
}

// Logger is implemented by *log.Logger.
type Logger interface {
	Printf(format string, v ...interface{})
}

type discard struct{}

func (discard) Printf(string, ...interface{}) {}
