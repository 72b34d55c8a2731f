// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package framebuffer implements the bit packed pixel buffers handed to
// e-paper drivers, and the diff used to limit partial refreshes to the area
// that changed.
//
// A Framebuffer implements draw.Image so that anything able to draw into an
// image (image/draw, golang.org/x/image/font, github.com/fogleman/gg) can
// render into it directly.
package framebuffer
