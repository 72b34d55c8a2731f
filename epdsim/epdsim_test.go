// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epdsim_test

import (
	"bytes"
	"errors"
	"image"
	"math/rand"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/epaper/epd"
	"github.com/GermanBionicSystems/epaper/epdsim"
	"github.com/GermanBionicSystems/epaper/framebuffer"
	"github.com/GermanBionicSystems/epaper/waveshare2in9"
	"github.com/GermanBionicSystems/epaper/waveshare2in9v2"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
)

// driver is the subset of both panel drivers the tests use.
type driver interface {
	epd.Resetter
	epd.Sleeper
	epd.Waker
	epd.DisplayPartial
}

func newPanel(t *testing.T, swap bool) *epdsim.Panel {
	t.Helper()
	p, err := epdsim.New(&epdsim.Opts{Width: 128, Height: 296, SwapBanks: swap, Quiet: true})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return p
}

func drivers(t *testing.T) map[string]func(p *epdsim.Panel) driver {
	return map[string]func(p *epdsim.Panel) driver{
		"waveshare2in9": func(p *epdsim.Panel) driver {
			d, err := waveshare2in9.New(p, &waveshare2in9.EPD2in9)
			if err != nil {
				t.Fatal(err)
			}
			return d
		},
		"waveshare2in9v2": func(p *epdsim.Panel) driver {
			d, err := waveshare2in9v2.New(p, &waveshare2in9v2.EPD2in9v2)
			if err != nil {
				t.Fatal(err)
			}
			return d
		},
	}
}

func checkPanel(t *testing.T, p *epdsim.Panel, want *framebuffer.Framebuffer) {
	t.Helper()
	glass, err := p.Glass()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(glass.Bytes(), want.Bytes()); diff != "" {
		t.Errorf("glass difference (-got +want):\n%s", diff)
	}
	for _, bank := range []byte{0x24, 0x26} {
		ram, err := p.RAM(bank)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(ram.Bytes(), want.Bytes()); diff != "" {
			t.Errorf("RAM %#02x difference (-got +want):\n%s", bank, diff)
		}
	}
}

func TestDrivers(t *testing.T) {
	for name, newDriver := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			p := newPanel(t, name == "waveshare2in9")
			d := newDriver(p)

			if err := d.Reset(); err != nil {
				t.Fatalf("Reset() failed: %v", err)
			}
			fb, err := framebuffer.New(128, 296, 1)
			if err != nil {
				t.Fatal(err)
			}
			if err := fb.Clear(1); err != nil {
				t.Fatal(err)
			}
			if err := fb.SetPixel(3, 3, 0); err != nil {
				t.Fatal(err)
			}
			if err := d.DisplayFull(fb); err != nil {
				t.Fatalf("DisplayFull() failed: %v", err)
			}
			checkPanel(t, p, fb)

			rnd := rand.New(rand.NewSource(1))
			for i := 0; i < 20; i++ {
				x, y := rnd.Intn(128), rnd.Intn(296)
				v, _ := fb.Pixel(x, y)
				if err := fb.SetPixel(x, y, 1-v); err != nil {
					t.Fatal(err)
				}
				r, err := d.DisplayPartial(fb)
				if err != nil {
					t.Fatalf("DisplayPartial() failed: %v", err)
				}
				if !image.Pt(x, y).In(r) {
					t.Errorf("DisplayPartial() = %v, doesn't contain (%d, %d)", r, x, y)
				}
				checkPanel(t, p, fb)
			}
			if p.Refreshes != 21 {
				t.Errorf("Refreshes = %d, want 21", p.Refreshes)
			}

			if err := d.Sleep(); err != nil {
				t.Fatalf("Sleep() failed: %v", err)
			}
			if !p.Asleep() {
				t.Errorf("panel not in deep sleep")
			}
			if err := d.Wake(); err != nil {
				t.Fatalf("Wake() failed: %v", err)
			}
			if err := fb.Clear(0); err != nil {
				t.Fatal(err)
			}
			if _, err := d.DisplayPartial(fb); err != nil {
				t.Fatalf("DisplayPartial() after Wake() failed: %v", err)
			}
			checkPanel(t, p, fb)
		})
	}
}

func TestResyncAfterReset(t *testing.T) {
	p := newPanel(t, true)
	d, err := waveshare2in9.New(p, &waveshare2in9.EPD2in9)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}
	fb, err := framebuffer.New(128, 296, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.DisplayFull(fb); err != nil {
		t.Fatal(err)
	}

	// Garbage written behind the driver's back, as after a power glitch.
	if err := p.WriteCommand(0x26); err != nil {
		t.Fatal(err)
	}
	if err := p.WriteData(bytes.Repeat([]byte{0x5A}, 128*296/8)); err != nil {
		t.Fatal(err)
	}
	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}

	if err := fb.SetPixel(100, 200, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := d.DisplayPartial(fb); err != nil {
		t.Fatalf("DisplayPartial() failed: %v", err)
	}
	checkPanel(t, p, fb)
}

func TestProtocolErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		ops  func(p *epdsim.Panel) error
	}{
		{
			name: "data without command",
			ops: func(p *epdsim.Panel) error {
				return p.WriteData([]byte{1})
			},
		},
		{
			name: "short window",
			ops: func(p *epdsim.Panel) error {
				if err := p.WriteCommand(0x44); err != nil {
					return err
				}
				if err := p.WriteData([]byte{0}); err != nil {
					return err
				}
				return p.WriteCommand(0x24)
			},
		},
		{
			name: "unsupported data entry mode",
			ops: func(p *epdsim.Panel) error {
				if err := p.WriteCommand(0x11); err != nil {
					return err
				}
				if err := p.WriteData([]byte{0x01}); err != nil {
					return err
				}
				return p.WriteCommand(0x24)
			},
		},
		{
			name: "command in deep sleep",
			ops: func(p *epdsim.Panel) error {
				if err := p.WriteCommand(0x10); err != nil {
					return err
				}
				if err := p.WriteData([]byte{0x01}); err != nil {
					return err
				}
				return p.WriteCommand(0x24)
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := newPanel(t, false)
			if err := tc.ops(p); !errors.Is(err, epdsim.ErrProtocol) {
				t.Errorf("error = %v, want %v", err, epdsim.ErrProtocol)
			}
		})
	}
}

func TestResetWakes(t *testing.T) {
	p := newPanel(t, false)
	if err := p.WriteCommand(0x10); err != nil {
		t.Fatal(err)
	}
	if err := p.WriteData([]byte{0x01}); err != nil {
		t.Fatal(err)
	}
	if !p.Asleep() {
		t.Fatalf("panel not asleep")
	}
	if err := p.SetReset(gpio.Low); err != nil {
		t.Fatal(err)
	}
	if err := p.SetReset(gpio.High); err != nil {
		t.Fatal(err)
	}
	if p.Asleep() {
		t.Errorf("panel still asleep after a reset pulse")
	}
	if err := p.WriteCommand(0x12); err != nil {
		t.Errorf("WriteCommand() after reset failed: %v", err)
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	p, err := epdsim.New(&epdsim.Opts{Width: 16, Height: 4, Output: &buf, Scale: 2})
	if err != nil {
		t.Fatal(err)
	}
	for _, op := range []struct {
		cmd  byte
		data []byte
	}{
		{cmd: 0x24, data: []byte{0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF}},
		{cmd: 0x22, data: []byte{0xC4}},
		{cmd: 0x20},
	} {
		if err := p.WriteCommand(op.cmd); err != nil {
			t.Fatal(err)
		}
		if op.data != nil {
			if err := p.WriteData(op.data); err != nil {
				t.Fatal(err)
			}
		}
	}

	if p.Refreshes != 1 {
		t.Errorf("Refreshes = %d, want 1", p.Refreshes)
	}
	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Errorf("rendered %d lines, want 2:\n%s", got, buf.String())
	}
	if err := p.Halt(); err != nil {
		t.Errorf("Halt() failed: %v", err)
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := epdsim.New(&epdsim.Opts{Width: 10, Height: 10}); err == nil {
		t.Errorf("New() with an unaligned width succeeded")
	}
}
