// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3/rpi"
)

// SPIOpts configures the SPI binding.
type SPIOpts struct {
	// Frequency of the SPI clock. Defaults to 4MHz.
	Frequency physic.Frequency
	// PollInterval bounds a single wait for an edge on the busy line.
	// Defaults to 100ms.
	PollInterval time.Duration
	// BusyTimeout is how long WaitForIdle waits before failing with
	// ErrTimeout. Defaults to 10s, which is longer than any refresh of the
	// supported panels.
	BusyTimeout time.Duration
}

// DefaultSPIOpts is used when nil options are passed to NewSPI.
var DefaultSPIOpts = SPIOpts{
	Frequency:    4 * physic.MegaHertz,
	PollInterval: 100 * time.Millisecond,
	BusyTimeout:  10 * time.Second,
}

// SPI implements Hardware over a periph.io SPI port and GPIO pins.
type SPI struct {
	c         conn.Conn
	maxTxSize int

	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	opts SPIOpts
}

// NewSPI connects to the panel over p. cs may be nil when the port drives
// chip select itself.
func NewSPI(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIn, opts *SPIOpts) (*SPI, error) {
	o := DefaultSPIOpts
	if opts != nil {
		if opts.Frequency != 0 {
			o.Frequency = opts.Frequency
		}
		if opts.PollInterval != 0 {
			o.PollInterval = opts.PollInterval
		}
		if opts.BusyTimeout != 0 {
			o.BusyTimeout = opts.BusyTimeout
		}
	}

	c, err := p.Connect(o.Frequency, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("epd: failed to connect over spi: %w", err)
	}

	if err := busy.In(gpio.Float, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("epd: failed to configure busy pin: %w", err)
	}

	// Get the maxTxSize from the conn if it implements the conn.Limits
	// interface, otherwise use 4096 bytes.
	maxTxSize := 0
	if limits, ok := c.(conn.Limits); ok {
		maxTxSize = limits.MaxTxSize()
	}
	if maxTxSize == 0 {
		maxTxSize = 4096
	}

	return &SPI{
		c:         c,
		maxTxSize: maxTxSize,
		dc:        dc,
		cs:        cs,
		rst:       rst,
		busy:      busy,
		opts:      o,
	}, nil
}

// NewHat connects to a panel wired as on the Waveshare e-Paper HAT.
func NewHat(p spi.Port, opts *SPIOpts) (*SPI, error) {
	dc := rpi.P1_22
	cs := rpi.P1_24
	rst := rpi.P1_11
	busy := rpi.P1_18
	return NewSPI(p, dc, cs, rst, busy, opts)
}

// String implements conn.Resource.
func (s *SPI) String() string {
	return fmt.Sprintf("epd.SPI{%s, %s}", s.c, s.dc)
}

// Halt implements conn.Resource. The panel is put to sleep by its driver,
// so it has no effect.
func (s *SPI) Halt() error {
	return nil
}

// SetReset implements Hardware.
func (s *SPI) SetReset(l gpio.Level) error {
	return s.rst.Out(l)
}

// WaitForIdle implements Hardware.
func (s *SPI) WaitForIdle(busy gpio.Level) error {
	deadline := time.Now().Add(s.opts.BusyTimeout)
	for s.busy.Read() == busy {
		left := time.Until(deadline)
		if left <= 0 {
			return fmt.Errorf("%w: busy pin %s still %s after %s", ErrTimeout, s.busy, busy, s.opts.BusyTimeout)
		}
		s.busy.WaitForEdge(min(left, s.opts.PollInterval))
	}
	return nil
}

// WriteCommand implements Hardware.
func (s *SPI) WriteCommand(cmd byte) error {
	return s.write(gpio.Low, []byte{cmd})
}

// WriteData implements Hardware. Large writes are split to fit the
// connection's limits.
func (s *SPI) WriteData(data []byte) error {
	return s.write(gpio.High, data)
}

// Delay implements Hardware.
func (s *SPI) Delay(d time.Duration) error {
	time.Sleep(d)
	return nil
}

func (s *SPI) write(dc gpio.Level, b []byte) error {
	if err := s.dc.Out(dc); err != nil {
		return err
	}
	if s.cs != nil {
		if err := s.cs.Out(gpio.Low); err != nil {
			return err
		}
	}
	var err error
	for len(b) > 0 && err == nil {
		n := min(len(b), s.maxTxSize)
		err = s.c.Tx(b[:n], nil)
		b = b[n:]
	}
	if s.cs != nil {
		if csErr := s.cs.Out(gpio.High); err == nil {
			err = csErr
		}
	}
	return err
}

var _ Hardware = &SPI{}
var _ conn.Resource = &SPI{}
