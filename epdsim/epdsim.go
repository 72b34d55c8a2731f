// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epdsim implements an SSD16xx class e-paper controller in software.
//
// A Panel is an epd.Hardware: drivers send it the same byte stream as a real
// panel. It decodes RAM windows, cursors and bank writes, keeps the image on
// the "glass" after each refresh and renders it to a terminal using ANSI
// color codes.
//
// Useful to develop layouts without a panel at hand, and to verify what a
// driver left in controller RAM.
package epdsim

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/GermanBionicSystems/epaper/epd"
	"github.com/GermanBionicSystems/epaper/framebuffer"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// Commands understood by the simulator. Anything else is stored in
// Registers.
const (
	cmdDeepSleep       byte = 0x10
	cmdDataEntry       byte = 0x11
	cmdSwReset         byte = 0x12
	cmdActivate        byte = 0x20
	cmdUpdateControl2  byte = 0x22
	cmdWriteRAM        byte = 0x24
	cmdWriteOldRAM     byte = 0x26
	cmdRAMXStartEnd    byte = 0x44
	cmdRAMYStartEnd    byte = 0x45
	cmdRAMXCounter     byte = 0x4E
	cmdRAMYCounter     byte = 0x4F
	dataEntryIncrement byte = 0x03
	updateDisplay      byte = 0x04
)

// ErrProtocol is returned for byte streams a real controller would
// misinterpret.
var ErrProtocol = errors.New("epdsim: protocol violation")

// Opts represents the options available for the simulated panel.
type Opts struct {
	Width  int
	Height int
	// SwapBanks emulates controllers that exchange their two RAM banks on
	// every refresh, like the IL3820.
	SwapBanks bool
	// Output receives a rendering of the glass after each refresh. Defaults
	// to stdout.
	Output io.Writer
	// Palette used for rendering. Defaults to ansi256.Default.
	Palette *ansi256.Palette
	// Scale renders every Scale-th pixel in both directions. Defaults to 1.
	Scale int
	// Quiet disables rendering.
	Quiet bool

	_ struct{}
}

// Panel is a simulated e-paper panel.
type Panel struct {
	w       io.Writer
	opts    Opts
	palette ansi256.Palette
	stride  int

	// RAM banks addressed by 0x24 and 0x26.
	banks [2][]byte
	glass []byte

	cmd    byte
	params []byte
	asleep bool
	update byte

	winX0, winX1 int
	winY0, winY1 int
	curX, curY   int

	// Registers holds the last parameters of every command the simulator
	// doesn't interpret.
	Registers map[byte][]byte
	// Refreshes counts the updates that drove the glass.
	Refreshes int
	// Elapsed is the sum of all delays requested.
	Elapsed time.Duration

	buf bytes.Buffer
}

// New returns a Panel in its power-on state: both banks and the glass white.
func New(opts *Opts) (*Panel, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width%8 != 0 {
		return nil, fmt.Errorf("epdsim: invalid size %dx%d", opts.Width, opts.Height)
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.Output
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	o := *opts
	if o.Scale <= 0 {
		o.Scale = 1
	}
	stride := opts.Width / 8
	s := &Panel{
		w:         w,
		opts:      o,
		palette:   *p,
		stride:    stride,
		glass:     bytes.Repeat([]byte{0xFF}, stride*opts.Height),
		Registers: map[byte][]byte{},
	}
	for i := range s.banks {
		s.banks[i] = bytes.Repeat([]byte{0xFF}, stride*opts.Height)
	}
	s.swReset()
	return s, nil
}

func (s *Panel) String() string {
	return fmt.Sprintf("epdsim.Panel{%dx%d}", s.opts.Width, s.opts.Height)
}

// Halt implements conn.Resource.
//
// It restores the terminal colors.
func (s *Panel) Halt() error {
	if s.opts.Quiet {
		return nil
	}
	_, err := s.w.Write([]byte("\033[0m\n"))
	return err
}

// SetReset implements epd.Hardware. A low level wakes the controller from
// deep sleep. RAM content is retained.
func (s *Panel) SetReset(l gpio.Level) error {
	if l == gpio.Low {
		s.asleep = false
		s.cmd = 0
		s.params = nil
	}
	return nil
}

// WaitForIdle implements epd.Hardware. The simulator is never busy.
func (s *Panel) WaitForIdle(busy gpio.Level) error {
	return nil
}

// Delay implements epd.Hardware. It doesn't sleep.
func (s *Panel) Delay(d time.Duration) error {
	s.Elapsed += d
	return nil
}

// WriteCommand implements epd.Hardware.
func (s *Panel) WriteCommand(cmd byte) error {
	if s.asleep {
		return fmt.Errorf("%w: command %#02x in deep sleep", ErrProtocol, cmd)
	}
	if err := s.check(); err != nil {
		return err
	}
	s.cmd = cmd
	s.params = s.params[:0]
	switch cmd {
	case cmdSwReset:
		s.swReset()
	case cmdActivate:
		return s.activate()
	}
	return nil
}

// WriteData implements epd.Hardware.
func (s *Panel) WriteData(data []byte) error {
	if s.asleep {
		return fmt.Errorf("%w: data in deep sleep", ErrProtocol)
	}
	switch s.cmd {
	case 0:
		return fmt.Errorf("%w: data without a command", ErrProtocol)
	case cmdWriteRAM:
		s.writeRAM(s.banks[0], data)
	case cmdWriteOldRAM:
		s.writeRAM(s.banks[1], data)
	default:
		s.params = append(s.params, data...)
		s.apply()
	}
	return nil
}

// paramLen is the number of parameter bytes of the commands with a fixed
// length.
var paramLen = map[byte]int{
	cmdDeepSleep:      1,
	cmdDataEntry:      1,
	cmdUpdateControl2: 1,
	cmdRAMXStartEnd:   2,
	cmdRAMYStartEnd:   4,
	cmdRAMXCounter:    1,
	cmdRAMYCounter:    2,
}

// apply updates the controller with the parameters received so far.
func (s *Panel) apply() {
	p := s.params
	if n, ok := paramLen[s.cmd]; ok && len(p) != n {
		return
	}
	switch s.cmd {
	case cmdRAMXStartEnd:
		s.winX0, s.winX1 = int(p[0]), int(p[1])
	case cmdRAMYStartEnd:
		s.winY0, s.winY1 = int(p[0])|int(p[1])<<8, int(p[2])|int(p[3])<<8
	case cmdRAMXCounter:
		s.curX = int(p[0])
	case cmdRAMYCounter:
		s.curY = int(p[0]) | int(p[1])<<8
	case cmdDeepSleep:
		s.asleep = p[0]&0x03 != 0
	case cmdUpdateControl2:
		s.update = p[0]
	case cmdDataEntry:
	default:
		s.Registers[s.cmd] = append([]byte(nil), p...)
	}
}

// check verifies the previous command received all its parameters.
func (s *Panel) check() error {
	n, ok := paramLen[s.cmd]
	if !ok {
		return nil
	}
	if len(s.params) != n {
		return fmt.Errorf("%w: command %#02x needs %d bytes, got %d", ErrProtocol, s.cmd, n, len(s.params))
	}
	if s.cmd == cmdDataEntry && s.params[0] != dataEntryIncrement {
		return fmt.Errorf("%w: unsupported data entry mode %#02x", ErrProtocol, s.params[0])
	}
	return nil
}

func (s *Panel) swReset() {
	s.winX0, s.winX1 = 0, s.stride-1
	s.winY0, s.winY1 = 0, s.opts.Height-1
	s.curX, s.curY = 0, 0
}

// writeRAM stores data at the cursor, incrementing X then Y inside the
// window.
func (s *Panel) writeRAM(bank, data []byte) {
	for _, b := range data {
		if s.curX < s.stride && s.curY < s.opts.Height {
			bank[s.curY*s.stride+s.curX] = b
		}
		s.curX++
		if s.curX > s.winX1 {
			s.curX = s.winX0
			s.curY++
			if s.curY > s.winY1 {
				s.curY = s.winY0
			}
		}
	}
}

// activate runs the update sequence selected with 0x22. Sequences without
// the display bit only load settings.
func (s *Panel) activate() error {
	if s.update&updateDisplay == 0 {
		return nil
	}
	copy(s.glass, s.banks[0])
	if s.opts.SwapBanks {
		s.banks[0], s.banks[1] = s.banks[1], s.banks[0]
	}
	s.Refreshes++
	if s.opts.Quiet {
		return nil
	}
	return s.render()
}

// Asleep reports whether the controller is in deep sleep.
func (s *Panel) Asleep() bool {
	return s.asleep
}

// UpdateControl returns the last display update sequence selected.
func (s *Panel) UpdateControl() byte {
	return s.update
}

// Glass returns a copy of the image shown by the last refresh.
func (s *Panel) Glass() (*framebuffer.Framebuffer, error) {
	return framebuffer.Load(s.opts.Width, s.opts.Height, 1, s.glass)
}

// RAM returns a copy of the bank currently addressed by cmd, 0x24 or 0x26.
func (s *Panel) RAM(cmd byte) (*framebuffer.Framebuffer, error) {
	switch cmd {
	case cmdWriteRAM:
		return framebuffer.Load(s.opts.Width, s.opts.Height, 1, s.banks[0])
	case cmdWriteOldRAM:
		return framebuffer.Load(s.opts.Width, s.opts.Height, 1, s.banks[1])
	}
	return nil, fmt.Errorf("epdsim: %#02x is not a RAM bank", cmd)
}

var (
	white = color.NRGBA{255, 255, 255, 255}
	black = color.NRGBA{0, 0, 0, 255}
)

func (s *Panel) render() error {
	// This code is designed to minimize the amount of memory allocated per call.
	s.buf.Reset()
	_, _ = s.buf.WriteString("\033[0m")
	step := s.opts.Scale
	for y := 0; y < s.opts.Height; y += step {
		for x := 0; x < s.opts.Width; x += step {
			c := black
			if s.glass[y*s.stride+x/8]&(0x80>>uint(x%8)) != 0 {
				c = white
			}
			_, _ = io.WriteString(&s.buf, s.palette.Block(c))
		}
		_, _ = s.buf.WriteString("\033[0m\n")
	}
	_, err := s.buf.WriteTo(s.w)
	return err
}

var _ epd.Hardware = &Panel{}
var _ conn.Resource = &Panel{}
