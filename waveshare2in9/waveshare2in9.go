// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in9

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
	boosterSoftStartControl        byte = 0x0C
	deepSleepMode                  byte = 0x10
	dataEntryModeSetting           byte = 0x11
	swReset                        byte = 0x12
	masterActivation               byte = 0x20
	displayUpdateControl1          byte = 0x21
	displayUpdateControl2          byte = 0x22
	writeRAM                       byte = 0x24
	writeOldRAM                    byte = 0x26
	writeVcomRegister              byte = 0x2C
	writeLutRegister               byte = 0x32
	setDummyLinePeriod             byte = 0x3A
	setGateTime                    byte = 0x3B
	borderWaveformControl          byte = 0x3C
	setRAMXAddressStartEndPosition byte = 0x44
	setRAMYAddressStartEndPosition byte = 0x45
	setRAMXAddressCounter          byte = 0x4E
	setRAMYAddressCounter          byte = 0x4F
	nop                            byte = 0xFF
)

// The busy line is high while the controller works.
const busyLevel = gpio.High

// lutSize is the length of a waveform table.
const lutSize = 30

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

// RefreshMode selects the waveform used by the next refresh.
type RefreshMode uint8

const (
	// Full drives every pixel. It is slow and flashes, but removes ghosting.
	Full RefreshMode = iota
	// Partial only drives the pixels that changed since the last refresh.
	Partial
	// PartialBlackBypass uses the partial waveform but only drives the black
	// pixels of the new image, ignoring the previous one.
	PartialBlackBypass
	// PartialWhiteBypass uses the partial waveform but only drives the white
	// pixels of the new image, ignoring the previous one.
	PartialWhiteBypass
)

func (m RefreshMode) String() string {
	switch m {
	case Full:
		return "Full"
	case Partial:
		return "Partial"
	case PartialBlackBypass:
		return "PartialBlackBypass"
	case PartialWhiteBypass:
		return "PartialWhiteBypass"
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

// EPD2in9 contains display configuration for the Waveshare 2in9.
var EPD2in9 = Opts{
	Width:  128,
	Height: 296,
	FullUpdate: LUT{
		0x50, 0xAA, 0x55, 0xAA, 0x11, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xFF, 0xFF, 0x1F, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	},
	PartialUpdate: LUT{
		0x10, 0x18, 0x18, 0x08, 0x18, 0x18, 0x08, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x13, 0x14, 0x44, 0x12, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	},
}

// Dev defines the handler which is used to access the display.
type Dev struct {
	lc   *epd.Lifecycle
	opts Opts

	// mode is only meaningful when configured is set. Both are reset along
	// with the controller.
	mode       RefreshMode
	configured bool

	buffer *framebuffer.Framebuffer
}

// New returns a driver for a panel reachable through hw. The panel must be
// reset before use.
func New(hw epd.Hardware, opts *Opts) (*Dev, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width%8 != 0 {
		return nil, fmt.Errorf("waveshare2in9: invalid size %dx%d", opts.Width, opts.Height)
	}
	if len(opts.FullUpdate) != lutSize {
		return nil, fmt.Errorf("waveshare2in9: full update LUT must be %d bytes, got %d", lutSize, len(opts.FullUpdate))
	}
	if n := len(opts.PartialUpdate); n != 0 && n != lutSize {
		return nil, fmt.Errorf("waveshare2in9: partial update LUT must be %d bytes, got %d", lutSize, n)
	}

	buffer, err := framebuffer.New(opts.Width, opts.Height, 1)
	if err != nil {
		return nil, err
	}
	// Default color
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

// Reset resets the controller and loads the full refresh waveform. It
// recovers the driver after a failed operation.
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

// Wake brings the panel out of deep sleep. The configuration survives, so
// no initialization is needed.
func (d *Dev) Wake() error {
	return d.lc.Wake(nil)
}

// SetRefreshMode selects the waveform used by UpdateDisplay.
func (d *Dev) SetRefreshMode(mode RefreshMode) error {
	if mode > PartialWhiteBypass {
		return fmt.Errorf("waveshare2in9: unknown refresh mode %v", mode)
	}
	if mode != Full && len(d.opts.PartialUpdate) == 0 {
		return epd.ErrPartialDisabled
	}
	return d.lc.Run("SetRefreshMode", func(eh *epd.ErrorHandler) {
		d.selectMode(handler{eh}, mode)
	}, epd.Awake)
}

// selectMode switches to mode, only sending the LUT when the waveform
// changes.
func (d *Dev) selectMode(ctrl controller, mode RefreshMode) {
	if d.configured && d.mode == mode {
		return
	}
	writeLUT := !d.configured || (d.mode == Full) != (mode == Full)
	configRefreshMode(ctrl, &d.opts, mode, writeLUT)
	d.mode = mode
	d.configured = true
	d.opts.logf("waveshare2in9: refresh mode %s", mode)
}

// SetBorder sets the color of the border around the active area. It is
// applied on the next full refresh.
func (d *Dev) SetBorder(color image1bit.Bit) error {
	return d.lc.Run("SetBorder", func(eh *epd.ErrorHandler) {
		setBorder(handler{eh}, color)
	}, epd.Awake)
}

// Send writes cmd followed by data as is, once the panel is idle. It is
// meant for experimenting with the controller, for example to write RAM
// outside the origin anchored window of WriteFramebuffer. The driver doesn't
// track registers changed this way. The RAM banks are no longer assumed to
// hold the base image, so the next partial display rewrites it first.
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

// checkSize verifies fb can be written at the origin of the panel.
func (d *Dev) checkSize(fb *framebuffer.Framebuffer) error {
	if fb.Depth() != 1 || fb.Width()%8 != 0 || fb.Width() > d.opts.Width || fb.Height() > d.opts.Height {
		return fmt.Errorf("%w: %v doesn't fit a %dx%d 1 bpp panel", framebuffer.ErrDimensionMismatch, fb, d.opts.Width, d.opts.Height)
	}
	return nil
}

// WriteFramebuffer transfers fb to the RAM bank used by the next refresh,
// at the origin of the panel. The base image is not changed.
func (d *Dev) WriteFramebuffer(fb *framebuffer.Framebuffer) error {
	if err := d.lc.Check("WriteFramebuffer", epd.Awake); err != nil {
		return err
	}
	if err := d.checkSize(fb); err != nil {
		return err
	}
	return d.lc.Run("WriteFramebuffer", func(eh *epd.ErrorHandler) {
		writeImage(handler{eh}, writeRAM, fb.Bounds(), fb.Bytes())
	}, epd.Awake)
}

// WriteBaseFramebuffer transfers fb to the RAM bank holding the previous
// image, which partial refreshes compare against.
func (d *Dev) WriteBaseFramebuffer(fb *framebuffer.Framebuffer) error {
	if err := d.lc.Check("WriteBaseFramebuffer", epd.Awake); err != nil {
		return err
	}
	if err := d.checkSize(fb); err != nil {
		return err
	}
	return d.lc.Run("WriteBaseFramebuffer", func(eh *epd.ErrorHandler) {
		writeImage(handler{eh}, writeOldRAM, fb.Bounds(), fb.Bytes())
	}, epd.Awake)
}

// UpdateDisplay refreshes the panel from RAM in the current refresh mode.
func (d *Dev) UpdateDisplay() error {
	return d.lc.Run("UpdateDisplay", func(eh *epd.ErrorHandler) {
		updateDisplay(handler{eh})
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
		writeImage(c, writeRAM, fb.Bounds(), fb.Bytes())
		writeImage(c, writeOldRAM, fb.Bounds(), fb.Bytes())
		updateDisplay(c)
	}, epd.Awake)
	if err != nil {
		return err
	}
	d.lc.Commit(fb)
	return nil
}

// DisplayPartial refreshes the area of fb that differs from the base image
// and returns it. Nothing is sent when the images are identical.
//
// Partial refreshes accumulate ghosting; do a full refresh at least every
// RecommendedMaxFullRefreshInterval.
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

	mode := d.mode
	if !d.configured || mode == Full {
		mode = Partial
	}
	synced := d.lc.Synced()
	err = d.lc.Run("DisplayPartial", func(eh *epd.ErrorHandler) {
		c := handler{eh}
		d.selectMode(c, mode)
		if !synced {
			writeImage(c, writeRAM, base.Bounds(), base.Bytes())
			writeImage(c, writeOldRAM, base.Bounds(), base.Bytes())
		}
		writeImage(c, writeRAM, r, data)
		updateDisplay(c)
		// The banks swapped, bring both up to date.
		writeImage(c, writeRAM, r, data)
		writeImage(c, writeOldRAM, r, data)
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

// Halt puts the panel to sleep. It does nothing if the panel was never
// reset.
func (d *Dev) Halt() error {
	if d.lc.State() == epd.Uninitialized {
		return nil
	}
	return d.Sleep()
}

// String returns a string containing configuration information.
func (d *Dev) String() string {
	return fmt.Sprintf("waveshare2in9.Dev{Width: %d, Height: %d, %s}", d.opts.Width, d.opts.Height, d.lc.State())
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
