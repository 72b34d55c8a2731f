// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"image"

	"github.com/GermanBionicSystems/epaper/framebuffer"
)

// Resetter is implemented by drivers able to hardware reset and initialize
// their panel. Reset moves the panel to Awake from any state.
type Resetter interface {
	Reset() error
}

// Sleeper is implemented by panels with a deep sleep mode.
type Sleeper interface {
	Sleep() error
}

// Waker is implemented by panels able to leave deep sleep without a full
// reinitialization.
type Waker interface {
	Wake() error
}

// Displayable is implemented by drivers able to refresh the panel from its
// RAM.
type Displayable interface {
	// UpdateDisplay refreshes the panel from the content of its RAM.
	UpdateDisplay() error
}

// DisplaySimple is implemented by drivers able to show a whole
// framebuffer.
type DisplaySimple interface {
	Displayable
	// WriteFramebuffer transfers fb to the panel RAM without refreshing.
	WriteFramebuffer(fb *framebuffer.Framebuffer) error
	// DisplayFull transfers fb and does a full refresh. On success fb becomes
	// the base for partial refreshes.
	DisplayFull(fb *framebuffer.Framebuffer) error
}

// DisplayPartial is implemented by drivers able to refresh only the part of
// the panel that changed since the last refresh.
type DisplayPartial interface {
	DisplaySimple
	// WriteBaseFramebuffer transfers fb to the RAM bank holding the previous
	// image, which the panel compares against during a partial refresh.
	WriteBaseFramebuffer(fb *framebuffer.Framebuffer) error
	// DisplayPartial transfers the region of fb that differs from the base
	// and refreshes it. It returns the refreshed region, which is empty when
	// nothing changed.
	DisplayPartial(fb *framebuffer.Framebuffer) (image.Rectangle, error)
}
