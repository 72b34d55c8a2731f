// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in9_test

import (
	"fmt"
	"image"
	"image/draw"
	"log"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/GermanBionicSystems/epaper/framebuffer"
	"github.com/GermanBionicSystems/epaper/waveshare2in9"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// Use spireg SPI bus registry to find the first available SPI bus.
	b, err := spireg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close()

	opts := waveshare2in9.EPD2in9
	opts.PartialRefresh = true
	dev, err := waveshare2in9.NewHat(b, &opts)
	if err != nil {
		log.Fatalf("Failed to initialize driver: %v", err)
	}
	defer dev.Halt()

	if err := dev.Reset(); err != nil {
		log.Fatalf("Failed to initialize display: %v", err)
	}

	// Draw on it. Black text on a white background. The first Draw does a
	// full refresh, the following ones only refresh the changed text.
	img := image1bit.NewVerticalLSB(dev.Bounds())
	f := basicfont.Face7x13
	for i := 0; i < 3; i++ {
		draw.Draw(img, img.Bounds(), &image.Uniform{image1bit.On}, image.Point{}, draw.Src)
		drawer := font.Drawer{
			Dst:  img,
			Src:  &image.Uniform{image1bit.Off},
			Face: f,
			Dot:  fixed.P(4, 20),
		}
		drawer.DrawString(fmt.Sprintf("Hello from periph! %d", i))

		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			log.Fatal(err)
		}
		time.Sleep(time.Second)
	}
}

func Example_framebuffer() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	b, err := spireg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close()

	dev, err := waveshare2in9.NewHat(b, &waveshare2in9.EPD2in9)
	if err != nil {
		log.Fatalf("Failed to initialize driver: %v", err)
	}
	if err := dev.Reset(); err != nil {
		log.Fatalf("Failed to initialize display: %v", err)
	}

	fb, err := framebuffer.New(128, 296, 1)
	if err != nil {
		log.Fatal(err)
	}
	if err := fb.Clear(1); err != nil {
		log.Fatal(err)
	}
	if err := dev.DisplayFull(fb); err != nil {
		log.Fatal(err)
	}

	// A progress bar, only the new column is refreshed each step.
	for x := 8; x < 120; x++ {
		for y := 140; y < 156; y++ {
			if err := fb.SetPixel(x, y, 0); err != nil {
				log.Fatal(err)
			}
		}
		r, err := dev.DisplayPartial(fb)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("refreshed %v", r)
	}

	if err := dev.Sleep(); err != nil {
		log.Fatal(err)
	}
}
