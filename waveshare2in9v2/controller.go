// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in9v2

import (
	"image"

	"github.com/GermanBionicSystems/epaper/epd"
)

type controller interface {
	sendCommand(byte)
	sendData([]byte)
	sendByte(byte)
	waitUntilIdle()
}

type handler struct {
	eh *epd.ErrorHandler
}

func (h handler) sendCommand(cmd byte) {
	h.eh.SendCommand(cmd)
}

func (h handler) sendData(data []byte) {
	h.eh.SendData(data)
}

func (h handler) sendByte(b byte) {
	h.eh.SendData([]byte{b})
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

	// Increment X then Y.
	ctrl.sendCommand(dataEntryModeSetting)
	ctrl.sendByte(0x03)

	// Black and white, RAM content as is.
	ctrl.sendCommand(displayUpdateControl1)
	ctrl.sendData([]byte{0x00, 0x80})
}

// refreshSettings holds the registers written when entering a refresh mode.
type refreshSettings struct {
	border        byte
	gateVoltage   byte
	sourceVoltage [3]byte
	vcom          byte
	update        byte
}

var settings = map[RefreshMode]refreshSettings{
	Full: {
		border:        0x05,
		gateVoltage:   0x17,
		sourceVoltage: [3]byte{0x41, 0xAE, 0x32},
		vcom:          0x38,
		update:        updateFull,
	},
	Partial: {
		border:        0x80,
		gateVoltage:   0x17,
		sourceVoltage: [3]byte{0x41, 0xB0, 0x32},
		vcom:          0x36,
		update:        updatePartial,
	},
}

const (
	updateFull = displayUpdateEnableAnalog |
		displayUpdateEnableClock |
		displayUpdateDisplay |
		displayUpdateDisableAnalog |
		displayUpdateDisableClock
	updatePartial = updateFull | displayUpdateMode2
	// Powers up the analog stage so the display option registers latch.
	updateLatchOptions = displayUpdateEnableAnalog |
		displayUpdateEnableClock |
		displayUpdateDisableAnalog |
		displayUpdateDisableClock
)

func configRefreshMode(ctrl controller, opts *Opts, mode RefreshMode) {
	s := settings[mode]

	ctrl.sendCommand(borderWaveformControl)
	ctrl.sendByte(s.border)

	ctrl.sendCommand(writeLutRegister)
	if mode == Full {
		ctrl.sendData(opts.FullUpdate)
	} else {
		ctrl.sendData(opts.PartialUpdate)
	}

	ctrl.sendCommand(endOptionEOPT)
	ctrl.sendByte(0x22)

	ctrl.sendCommand(gateDrivingVoltageControl)
	ctrl.sendByte(s.gateVoltage)

	ctrl.sendCommand(sourceDrivingVoltageControl)
	ctrl.sendData(s.sourceVoltage[:])

	ctrl.sendCommand(vcomRegisterWrite)
	ctrl.sendByte(s.vcom)

	if mode == Partial {
		ctrl.sendCommand(writeRegisterForDisplayOption)
		ctrl.sendData([]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0x00, 0x00})

		ctrl.sendCommand(displayUpdateControl2)
		ctrl.sendByte(updateLatchOptions)
		ctrl.sendCommand(masterActivation)
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
	ctrl.sendByte(byte((pt.X >> 3) & 0xFF))

	ctrl.sendCommand(setRAMYAddressCounter)
	ctrl.sendData([]byte{byte(pt.Y & 0xFF), byte((pt.Y >> 8) & 0xFF)})
}

func writeImage(ctrl controller, cmd byte, r image.Rectangle, data []byte) {
	setWindow(ctrl, r)
	setCursor(ctrl, r.Min)
	ctrl.sendCommand(cmd)
	ctrl.sendData(data)
}

func updateDisplay(ctrl controller, mode RefreshMode) {
	ctrl.sendCommand(displayUpdateControl2)
	ctrl.sendByte(settings[mode].update)
	ctrl.sendCommand(masterActivation)
	ctrl.waitUntilIdle()
}

func deepSleep(ctrl controller) {
	ctrl.sendCommand(deepSleepMode)
	ctrl.sendByte(0x01)
}
