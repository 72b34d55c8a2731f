// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when an operation isn't allowed in the
	// panel's current power state.
	ErrInvalidState = errors.New("epd: invalid state")
	// ErrTimeout is returned when the busy line doesn't clear in time.
	ErrTimeout = errors.New("epd: timeout waiting for busy line")
	// ErrPartialDisabled is returned by DisplayPartial on panels configured
	// without a partial refresh waveform.
	ErrPartialDisabled = errors.New("epd: partial refresh not available")
)

// PowerState is the operating state of a panel.
type PowerState uint8

const (
	// Uninitialized is the state of a driver that was never reset.
	Uninitialized PowerState = iota
	// Awake panels accept data and refresh commands.
	Awake
	// Asleep panels are in deep sleep and only accept Wake or Reset.
	Asleep
)

func (s PowerState) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Awake:
		return "Awake"
	case Asleep:
		return "Asleep"
	}
	return fmt.Sprintf("PowerState(%d)", uint8(s))
}

// StateError describes an operation rejected by a Lifecycle. It wraps
// ErrInvalidState.
type StateError struct {
	Op     string
	State  PowerState
	Reason string
}

func (e *StateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("epd: %s not allowed while %s: %s", e.Op, e.State, e.Reason)
	}
	return fmt.Sprintf("epd: %s not allowed while %s", e.Op, e.State)
}

// Unwrap returns ErrInvalidState.
func (e *StateError) Unwrap() error {
	return ErrInvalidState
}
