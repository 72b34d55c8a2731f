// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package waveshare2in9 controls the first revision of the Waveshare 2.9 inch
// e-paper display (IL3820 controller, 128x296 pixels, black and white).
//
// The controller holds two image banks and swaps them on every refresh.
// Partial refreshes only drive the pixels that differ between the banks, so
// the driver keeps both in sync with the image on the glass.
//
// Datasheets
//
// https://www.waveshare.com/w/upload/e/e6/2.9inch_e-Paper_Datasheet.pdf
//
// Product page:
//
// https://www.waveshare.com/wiki/2.9inch_e-Paper_Module
package waveshare2in9
