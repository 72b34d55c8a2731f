// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epaper is a container for e-paper panel drivers.
//
// The epd package holds the parts shared by all drivers: the hardware
// abstraction, the power state lifecycle and the capability interfaces.
// framebuffer holds the packed pixel buffers drivers transfer to the panel.
// Each supported panel has its own package, for example waveshare2in9v2.
//
// epdsim is a software panel useful to run drivers without hardware.
package epaper
