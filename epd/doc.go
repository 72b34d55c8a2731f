// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epd contains the pieces shared by the e-paper panel drivers.
//
// A driver talks to its panel exclusively through a Hardware value, which
// models the SPI bus, the reset and busy lines and a timer. SPI binds
// Hardware to periph.io ports and pins.
//
// Every driver owns a Lifecycle tracking the panel's power state. Operations
// that are not valid in the current state fail with an error wrapping
// ErrInvalidState before any I/O is done:
//
//	Uninitialized --Reset--> Awake --Sleep--> Asleep --Wake--> Awake
//
// Reset is accepted in every state and is the only way out of a failed
// command sequence.
//
// The capabilities a driver offers are expressed as small interfaces
// (Resetter, Sleeper, Waker, Displayable, DisplaySimple, DisplayPartial).
// Code using a driver should depend on the narrowest one it needs.
package epd
