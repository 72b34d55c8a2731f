// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in9v2

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/GermanBionicSystems/epaper/epd"
	"github.com/GermanBionicSystems/epaper/framebuffer"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Commands
const (
	driverOutputControl            byte = 0x01
	gateDrivingVoltageControl      byte = 0x03
	sourceDrivingVoltageControl    byte = 0x04
	deepSleepMode                  byte = 0x10
	dataEntryModeSetting           byte = 0x11
	swReset                        byte = 0x12
	masterActivation               byte = 0x20
	displayUpdateControl1          byte = 0x21
	displayUpdateControl2          byte = 0x22
	writeRAMBW                     byte = 0x24
	writeRAMRed                    byte = 0x26
	vcomRegisterWrite              byte = 0x2C
	writeLutRegister               byte = 0x32
	writeRegisterForDisplayOption  byte = 0x37
	borderWaveformControl          byte = 0x3C
	endOptionEOPT                  byte = 0x3F
	setRAMXAddressStartEndPosition byte = 0x44
	setRAMYAddressStartEndPosition byte = 0x45
	setRAMXAddressCounter          byte = 0x4E
	setRAMYAddressCounter          byte = 0x4F
)

// Flags for the displayUpdateControl2 command
const (
	displayUpdateDisableClock byte = 1 << iota
	displayUpdateDisableAnalog
	displayUpdateDisplay
	displayUpdateMode2
	displayUpdateLoadLUTFromOTP
	displayUpdateLoadTemperature
	displayUpdateEnableClock
	displayUpdateEnableAnalog
)

const busyLevel = gpio.High

const lutSize = 153

const (
	// RecommendedMinFullRefreshInterval is the shortest interval between
	// regular full refreshes the vendor recommends.
	RecommendedMinFullRefreshInterval = 180 * time.Second
	// RecommendedMaxFullRefreshInterval is the longest the panel should go
	// without a full refresh.
	RecommendedMaxFullRefreshInterval = 24 * time.Hour
)

// LUT contains the waveform that is used to program the display.
type LUT []byte

// RefreshMode selects the waveform and voltages used by the next refresh.
type RefreshMode uint8

const (
	// Full drives every pixel. It is slow and flashes, but removes ghosting.
	Full RefreshMode = iota
	// Partial only drives the pixels that differ between the two RAM banks.
	Partial
)

func (m RefreshMode) String() string {
	switch m {
	case Full:
		return "Full"
	case Partial:
		return "Partial"
	}
	return fmt.Sprintf("RefreshMode(%d)", uint8(m))
}

// Opts defines the structure of the display configuration.
type Opts struct {
	Width         int
	Height        int
	FullUpdate    LUT
	PartialUpdate LUT

	// PartialRefresh makes Draw refresh only the changed area once a full
	// image was displayed.
	PartialRefresh bool
	// Logger receives state transitions and failures. It may be nil.
	Logger epd.Logger
}

// EPD2in9v2 contains display configuration for the Waveshare 2in9 v2.
var EPD2in9v2 = Opts{
	Width:  128,
	Height: 296,
	FullUpdate: LUT{
		0x90, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x60, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x90, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x60, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x19, 0x19, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x24, 0x42, 0x22, 0x22, 0x23, 0x32, 0x00, 0x00, 0x00,
	},
	PartialUpdate: LUT{
		0x00, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x80, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x40, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x0A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x22, 0x22, 0x22, 0x22, 0x22, 0x22, 0x00, 0x00, 0x00,
	},
}

// Dev defines the handler which is used to access the display.
type Dev struct {
	lc   *epd.Lifecycle
	opts Opts

	mode       RefreshMode
	configured bool

	buffer *framebuffer.Framebuffer
}

// New returns a driver for a panel reachable through hw. The panel must be
// reset before use.
func New(hw epd.Hardware, opts *Opts) (*Dev, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width%8 != 0 {
		return nil, fmt.Errorf("waveshare2in9v2: invalid size %dx%d", opts.Width, opts.Height)
	}
	if len(opts.FullUpdate) != lutSize {
		return nil, fmt.Errorf("waveshare2in9v2: full update LUT must be %d bytes, got %d", lutSize, len(opts.FullUpdate))
	}
	if n := len(opts.PartialUpdate); n != 0 && n != lutSize {
		return nil, fmt.Errorf("waveshare2in9v2: partial update LUT must be %d bytes, got %d", lutSize, n)
	}

	buffer, err := framebuffer.New(opts.Width, opts.Height, 1)
	if err != nil {
		return nil, err
	}
	if err := buffer.Clear(1); err != nil {
		return nil, err
	}

	return &Dev{
		lc:     epd.NewLifecycle(hw, busyLevel, opts.Logger),
		opts:   *opts,
		buffer: buffer,
	}, nil
}

// NewSPI returns a driver for a panel connected to p and the given pins.
func NewSPI(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	hw, err := epd.NewSPI(p, dc, cs, rst, busy, nil)
	if err != nil {
		return nil, err
	}
	return New(hw, opts)
}

// NewHat returns a driver for a panel on a Waveshare e-Paper HAT.
func NewHat(p spi.Port, opts *Opts) (*Dev, error) {
	hw, err := epd.NewHat(p, nil)
	if err != nil {
		return nil, err
	}
	return New(hw, opts)
}

// State returns the power state of the panel.
func (d *Dev) State() epd.PowerState {
	return d.lc.State()
}

// Base returns the image shown by the last successful refresh, or nil.
func (d *Dev) Base() *framebuffer.Framebuffer {
	return d.lc.Base()
}

// Mode returns the current refresh mode.
func (d *Dev) Mode() RefreshMode {
	return d.mode
}

// Reset resets the controller and enters full refresh mode.
func (d *Dev) Reset() error {
	d.configured = false
	return d.lc.Reset(func(eh *epd.ErrorHandler) {
		c := handler{eh}
		initDisplay(c, &d.opts)
		d.selectMode(c, Full)
	})
}

// Sleep puts the panel into deep sleep. RAM content is retained.
func (d *Dev) Sleep() error {
	return d.lc.Sleep(func(eh *epd.ErrorHandler) {
		deepSleep(handler{eh})
	})
}

// Wake brings the panel out of deep sleep. The controller forgets its
// registers, so it is initialized again in the previous refresh mode.
func (d *Dev) Wake() error {
	mode := d.mode
	return d.lc.Wake(func(eh *epd.ErrorHandler) {
		c := handler{eh}
		d.configured = false
		initDisplay(c, &d.opts)
		d.selectMode(c, mode)
	})
}

// SetRefreshMode selects the waveform used by UpdateDisplay.
func (d *Dev) SetRefreshMode(mode RefreshMode) error {
	if mode > Partial {
		return fmt.Errorf("waveshare2in9v2: unknown refresh mode %v", mode)
	}
	if mode == Partial && len(d.opts.PartialUpdate) == 0 {
		return epd.ErrPartialDisabled
	}
	return d.lc.Run("SetRefreshMode", func(eh *epd.ErrorHandler) {
		d.selectMode(handler{eh}, mode)
	}, epd.Awake)
}

func (d *Dev) selectMode(ctrl controller, mode RefreshMode) {
	if d.configured && d.mode == mode {
		return
	}
	configRefreshMode(ctrl, &d.opts, mode)
	d.mode = mode
	d.configured = true
	d.opts.logf("waveshare2in9v2: refresh mode %s", mode)
}

// Send writes cmd followed by data as is, once the panel is idle. It is
// meant for experimenting with the controller. The driver doesn't track
// registers changed this way, and the next partial display rewrites the base
// image to the RAM banks first.
func (d *Dev) Send(cmd byte, data []byte) error {
	err := d.lc.Run("Send", func(eh *epd.ErrorHandler) {
		eh.SendCommand(cmd)
		eh.SendData(data)
	}, epd.Awake)
	if err != nil {
		return err
	}
	d.lc.MarkUnsynced()
	return nil
}

func (d *Dev) checkSize(fb *framebuffer.Framebuffer) error {
	if fb.Depth() != 1 || fb.Width()%8 != 0 || fb.Width() > d.opts.Width || fb.Height() > d.opts.Height {
		return fmt.Errorf("%w: %v doesn't fit a %dx%d 1 bpp panel", framebuffer.ErrDimensionMismatch, fb, d.opts.Width, d.opts.Height)
	}
	return nil
}

// WriteFramebuffer transfers fb to the black and white RAM bank, at the
// origin of the panel. The base image is not changed.
func (d *Dev) WriteFramebuffer(fb *framebuffer.Framebuffer) error {
	if err := d.lc.Check("WriteFramebuffer", epd.Awake); err != nil {
		return err
	}
	if err := d.checkSize(fb); err != nil {
		return err
	}
	return d.lc.Run("WriteFramebuffer", func(eh *epd.ErrorHandler) {
		writeImage(handler{eh}, writeRAMBW, fb.Bounds(), fb.Bytes())
	}, epd.Awake)
}

// WriteBaseFramebuffer transfers fb to the RAM bank partial refreshes compare
// against. It requires partial refresh mode.
func (d *Dev) WriteBaseFramebuffer(fb *framebuffer.Framebuffer) error {
	if err := d.lc.Check("WriteBaseFramebuffer", epd.Awake); err != nil {
		return err
	}
	if !d.configured || d.mode != Partial {
		return fmt.Errorf("waveshare2in9v2: base framebuffer needs partial refresh mode: %w", epd.ErrPartialDisabled)
	}
	if err := d.checkSize(fb); err != nil {
		return err
	}
	return d.lc.Run("WriteBaseFramebuffer", func(eh *epd.ErrorHandler) {
		writeImage(handler{eh}, writeRAMRed, fb.Bounds(), fb.Bytes())
	}, epd.Awake)
}

// UpdateDisplay refreshes the panel from RAM in the current refresh mode.
func (d *Dev) UpdateDisplay() error {
	return d.lc.Run("UpdateDisplay", func(eh *epd.ErrorHandler) {
		updateDisplay(handler{eh}, d.mode)
	}, epd.Awake)
}

// DisplayFull writes fb to both RAM banks and does a full refresh. fb is
// placed at the origin of the panel and may be smaller than it.
func (d *Dev) DisplayFull(fb *framebuffer.Framebuffer) error {
	if err := d.lc.Check("DisplayFull", epd.Awake); err != nil {
		return err
	}
	if err := d.checkSize(fb); err != nil {
		return err
	}
	err := d.lc.Run("DisplayFull", func(eh *epd.ErrorHandler) {
		c := handler{eh}
		d.selectMode(c, Full)
		writeImage(c, writeRAMBW, fb.Bounds(), fb.Bytes())
		writeImage(c, writeRAMRed, fb.Bounds(), fb.Bytes())
		updateDisplay(c, Full)
	}, epd.Awake)
	if err != nil {
		return err
	}
	d.lc.Commit(fb)
	return nil
}

// DisplayPartial refreshes the area of fb that differs from the base image
// and returns it. Nothing is sent when the images are identical.
func (d *Dev) DisplayPartial(fb *framebuffer.Framebuffer) (image.Rectangle, error) {
	if err := d.lc.Check("DisplayPartial", epd.Awake); err != nil {
		return image.Rectangle{}, err
	}
	if len(d.opts.PartialUpdate) == 0 {
		return image.Rectangle{}, epd.ErrPartialDisabled
	}
	base := d.lc.Base()
	if base == nil {
		return image.Rectangle{}, &epd.StateError{Op: "DisplayPartial", State: d.lc.State(), Reason: "no image displayed yet"}
	}
	r, err := framebuffer.Diff(base, fb)
	if err != nil {
		return image.Rectangle{}, err
	}
	if r.Empty() {
		return r, nil
	}
	data, err := fb.Window(r)
	if err != nil {
		return image.Rectangle{}, err
	}

	synced := d.lc.Synced()
	err = d.lc.Run("DisplayPartial", func(eh *epd.ErrorHandler) {
		c := handler{eh}
		d.selectMode(c, Partial)
		if !synced {
			writeImage(c, writeRAMBW, base.Bounds(), base.Bytes())
			writeImage(c, writeRAMRed, base.Bounds(), base.Bytes())
		}
		writeImage(c, writeRAMBW, r, data)
		updateDisplay(c, Partial)
		// The red bank holds the previous image for the next comparison.
		writeImage(c, writeRAMRed, r, data)
	}, epd.Awake)
	if err != nil {
		return image.Rectangle{}, err
	}
	d.lc.Commit(fb)
	return r, nil
}

// ColorModel returns a 1Bit color model.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds returns the bounds for the configurated display.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.opts.Width, d.opts.Height)
}

// Draw draws the given image to the display. The panel is refreshed
// partially when enabled in Opts and a full image was displayed before,
// otherwise fully.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	if err := d.lc.Check("Draw", epd.Awake); err != nil {
		return err
	}
	draw.Src.Draw(d.buffer, dstRect, src, srcPts)

	if d.opts.PartialRefresh && len(d.opts.PartialUpdate) != 0 {
		if base := d.lc.Base(); base != nil && base.SameShape(d.buffer) {
			_, err := d.DisplayPartial(d.buffer)
			return err
		}
	}
	return d.DisplayFull(d.buffer)
}

// Halt puts the panel to sleep.
func (d *Dev) Halt() error {
	if d.lc.State() == epd.Uninitialized {
		return nil
	}
	return d.Sleep()
}

// String returns a string containing configuration information.
func (d *Dev) String() string {
	return fmt.Sprintf("waveshare2in9v2.Dev{Width: %d, Height: %d, %s}", d.opts.Width, d.opts.Height, d.lc.State())
}

func (o *Opts) logf(format string, v ...interface{}) {
	if o.Logger != nil {
		o.Logger.Printf(format, v...)
	}
}

var _ display.Drawer = &Dev{}
var _ epd.Resetter = &Dev{}
var _ epd.Sleeper = &Dev{}
var _ epd.Waker = &Dev{}
var _ epd.DisplayPartial = &Dev{}
