// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epdtest is meant to be used to test e-paper drivers against a
// fake Hardware.
package epdtest

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Kind is the type of a recorded operation.
type Kind uint8

const (
	Command Kind = iota
	Data
	Reset
	Wait
	Delay
)

func (k Kind) String() string {
	switch k {
	case Command:
		return "Command"
	case Data:
		return "Data"
	case Reset:
		return "Reset"
	case Wait:
		return "Wait"
	case Delay:
		return "Delay"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Op is one operation done on the Recorder.
type Op struct {
	Kind Kind
	// Cmd is the command byte for Command, and the last command sent
	// before it for Data.
	Cmd  byte
	Data []byte
	// Level is the reset level for Reset and the busy level waited on for
	// Wait.
	Level    gpio.Level
	Duration time.Duration
}

// Recorder implements epd.Hardware and records every operation.
type Recorder struct {
	Ops []Op
	// Fail, if set, is called before each operation is recorded. A non-nil
	// return value is returned by the operation, which isn't recorded.
	Fail func(op Op) error

	last byte
}

// SetReset implements epd.Hardware.
func (r *Recorder) SetReset(l gpio.Level) error {
	return r.record(Op{Kind: Reset, Level: l})
}

// WaitForIdle implements epd.Hardware.
func (r *Recorder) WaitForIdle(busy gpio.Level) error {
	return r.record(Op{Kind: Wait, Level: busy})
}

// WriteCommand implements epd.Hardware.
func (r *Recorder) WriteCommand(cmd byte) error {
	if err := r.record(Op{Kind: Command, Cmd: cmd}); err != nil {
		return err
	}
	r.last = cmd
	return nil
}

// WriteData implements epd.Hardware.
func (r *Recorder) WriteData(data []byte) error {
	return r.record(Op{Kind: Data, Cmd: r.last, Data: append([]byte(nil), data...)})
}

// Delay implements epd.Hardware. It doesn't sleep.
func (r *Recorder) Delay(d time.Duration) error {
	return r.record(Op{Kind: Delay, Duration: d})
}

func (r *Recorder) record(op Op) error {
	if r.Fail != nil {
		if err := r.Fail(op); err != nil {
			return err
		}
	}
	r.Ops = append(r.Ops, op)
	return nil
}

// Clear forgets all recorded operations.
func (r *Recorder) Clear() {
	r.Ops = nil
}

// Transfer is a command together with the data sent after it.
type Transfer struct {
	Cmd  byte
	Data []byte
}

// Transfers returns the recorded commands, each with the concatenation of
// the data that followed it. Other operations are dropped.
func (r *Recorder) Transfers() []Transfer {
	var out []Transfer
	for _, op := range r.Ops {
		switch op.Kind {
		case Command:
			out = append(out, Transfer{Cmd: op.Cmd})
		case Data:
			if len(out) == 0 {
				out = append(out, Transfer{Cmd: op.Cmd})
			}
			cur := &out[len(out)-1]
			cur.Data = append(cur.Data, op.Data...)
		}
	}
	return out
}

// Count returns the number of operations of kind k.
func (r *Recorder) Count(k Kind) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == k {
			n++
		}
	}
	return n
}
