// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in9

import (
	"image"

	"github.com/GermanBionicSystems/epaper/epd"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

type controller interface {
	sendCommand(byte)
	sendData([]byte)
	waitUntilIdle()
}

// handler adapts an epd.ErrorHandler to controller.
type handler struct {
	eh *epd.ErrorHandler
}

func (h handler) sendCommand(cmd byte) {
	h.eh.SendCommand(cmd)
}

func (h handler) sendData(data []byte) {
	h.eh.SendData(data)
}

func (h handler) waitUntilIdle() {
	h.eh.WaitUntilIdle()
}

func initDisplay(ctrl controller, opts *Opts) {
	ctrl.sendCommand(swReset)
	ctrl.waitUntilIdle()

	ctrl.sendCommand(driverOutputControl)
	ctrl.sendData([]byte{
		byte((opts.Height - 1) & 0xFF),
		byte((opts.Height - 1) >> 8),
		0x00,
	})

	ctrl.sendCommand(boosterSoftStartControl)
	ctrl.sendData([]byte{0xD7, 0xD6, 0x9D})

	// Increment X then Y.
	ctrl.sendCommand(dataEntryModeSetting)
	ctrl.sendData([]byte{0x03})

	ctrl.sendCommand(writeVcomRegister)
	ctrl.sendData([]byte{0xA8})

	// 4 dummy lines per gate.
	ctrl.sendCommand(setDummyLinePeriod)
	ctrl.sendData([]byte{0x1A})

	// 2us per line.
	ctrl.sendCommand(setGateTime)
	ctrl.sendData([]byte{0x08})
}

// configRefreshMode selects mode. The LUT is only sent when writeLUT is set,
// as both partial variants share the partial waveform.
func configRefreshMode(ctrl controller, opts *Opts, mode RefreshMode, writeLUT bool) {
	if writeLUT {
		ctrl.sendCommand(writeLutRegister)
		if mode == Full {
			ctrl.sendData(opts.FullUpdate)
		} else {
			ctrl.sendData(opts.PartialUpdate)
		}
	}

	switch mode {
	case Partial:
		ctrl.sendCommand(displayUpdateControl1)
		ctrl.sendData([]byte{0x00})
	case PartialBlackBypass:
		ctrl.sendCommand(displayUpdateControl1)
		ctrl.sendData([]byte{0x90})
	case PartialWhiteBypass:
		ctrl.sendCommand(displayUpdateControl1)
		ctrl.sendData([]byte{0x80})
	}
}

// setWindow limits RAM writes to r. r.Min.X and r.Max.X must be multiples of
// 8.
func setWindow(ctrl controller, r image.Rectangle) {
	ctrl.sendCommand(setRAMXAddressStartEndPosition)
	ctrl.sendData([]byte{
		byte((r.Min.X >> 3) & 0xFF),
		byte(((r.Max.X - 1) >> 3) & 0xFF),
	})

	ctrl.sendCommand(setRAMYAddressStartEndPosition)
	ctrl.sendData([]byte{
		byte(r.Min.Y & 0xFF),
		byte((r.Min.Y >> 8) & 0xFF),
		byte((r.Max.Y - 1) & 0xFF),
		byte(((r.Max.Y - 1) >> 8) & 0xFF),
	})
}

func setCursor(ctrl controller, pt image.Point) {
	ctrl.sendCommand(setRAMXAddressCounter)
	// x point must be the multiple of 8 or the last 3 bits will be ignored
	ctrl.sendData([]byte{byte((pt.X >> 3) & 0xFF)})

	ctrl.sendCommand(setRAMYAddressCounter)
	ctrl.sendData([]byte{byte(pt.Y & 0xFF), byte((pt.Y >> 8) & 0xFF)})
}

// writeImage writes data, the packed rows of r, to the RAM bank selected by
// cmd.
func writeImage(ctrl controller, cmd byte, r image.Rectangle, data []byte) {
	setWindow(ctrl, r)
	setCursor(ctrl, r.Min)
	ctrl.sendCommand(cmd)
	ctrl.sendData(data)
}

// updateDisplay refreshes the panel and swaps the RAM banks.
func updateDisplay(ctrl controller) {
	ctrl.sendCommand(displayUpdateControl2)
	ctrl.sendData([]byte{0xC4})
	ctrl.sendCommand(masterActivation)
	ctrl.sendCommand(nop)
	ctrl.waitUntilIdle()
}

func setBorder(ctrl controller, color image1bit.Bit) {
	var v byte
	if color == image1bit.On {
		v = 0x01
	}
	ctrl.sendCommand(borderWaveformControl)
	ctrl.sendData([]byte{v})
}

func deepSleep(ctrl controller) {
	ctrl.sendCommand(deepSleepMode)
	ctrl.sendData([]byte{0x01})
}
