// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package waveshare2in9v2 controls the second revision of the Waveshare 2.9
// inch e-paper display (SSD1680 class controller, 128x296 pixels, black and
// white).
//
// Unlike the first revision, the waveform tables are 153 bytes long and every
// refresh mode also programs the border, gate, source and VCOM voltages.
// Switching between full and partial refresh therefore costs a few
// milliseconds of bus traffic; the driver only does it when the mode changes.
//
// Datasheets
//
// https://files.waveshare.com/upload/7/79/2.9inch-e-paper-v2-specification.pdf
//
// Product page:
//
// https://www.waveshare.com/wiki/2.9inch_e-Paper_Module
package waveshare2in9v2
