// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package framebuffer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// DefaultCapacity is the largest buffer, in bytes, New accepts.
const DefaultCapacity = 256 * 1024

var (
	// ErrInvalidDimensions is returned when a framebuffer can't be created
	// with the requested size or depth.
	ErrInvalidDimensions = errors.New("framebuffer: invalid dimensions")
	// ErrOutOfBounds is returned for pixel coordinates outside the buffer.
	ErrOutOfBounds = errors.New("framebuffer: coordinates out of bounds")
	// ErrInvalidValue is returned for pixel values not representable at the
	// buffer's depth.
	ErrInvalidValue = errors.New("framebuffer: invalid pixel value")
	// ErrDimensionMismatch is returned when two buffers that must share
	// their shape don't.
	ErrDimensionMismatch = errors.New("framebuffer: dimension mismatch")
)

// Framebuffer is a fixed size, bit packed pixel buffer.
//
// Pixels are stored row-major, most significant bits first, without any
// padding between rows. A 1 bit per pixel buffer uses image1bit.On for set
// bits, which the supported panels show as white.
type Framebuffer struct {
	width  int
	height int
	depth  int
	pix    []byte
}

// Size returns the number of bytes needed to hold width*height pixels at
// the given depth.
func Size(width, height, bpp int) int {
	return (width*height*bpp + 7) / 8
}

// New returns a zeroed framebuffer. bpp must be 1, 2, 4 or 8.
func New(width, height, bpp int) (*Framebuffer, error) {
	return NewWithCapacity(width, height, bpp, DefaultCapacity)
}

// NewWithCapacity is like New but rejects buffers larger than capacity
// bytes.
func NewWithCapacity(width, height, bpp, capacity int) (*Framebuffer, error) {
	switch bpp {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("%w: unsupported depth %d", ErrInvalidDimensions, bpp)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	// Checked by division so width*height*bpp can't overflow.
	bits := math.MaxInt - 7
	if capacity <= bits/8 {
		bits = capacity * 8
	}
	if width > bits/bpp/height {
		return nil, fmt.Errorf("%w: %dx%d at %d bpp exceeds capacity of %d bytes", ErrInvalidDimensions, width, height, bpp, capacity)
	}
	n := Size(width, height, bpp)
	return &Framebuffer{
		width:  width,
		height: height,
		depth:  bpp,
		pix:    make([]byte, n),
	}, nil
}

// Load returns a framebuffer holding a copy of data, which must be packed
// as returned by Bytes.
func Load(width, height, bpp int, data []byte) (*Framebuffer, error) {
	f, err := New(width, height, bpp)
	if err != nil {
		return nil, err
	}
	if len(data) != len(f.pix) {
		return nil, fmt.Errorf("%w: %dx%d at %d bpp needs %d bytes, got %d", ErrInvalidDimensions, width, height, bpp, len(f.pix), len(data))
	}
	copy(f.pix, data)
	return f, nil
}

// Width returns the width in pixels.
func (f *Framebuffer) Width() int {
	return f.width
}

// Height returns the height in pixels.
func (f *Framebuffer) Height() int {
	return f.height
}

// Depth returns the number of bits per pixel.
func (f *Framebuffer) Depth() int {
	return f.depth
}

// Bytes returns the packed pixel data. The caller must not modify it.
func (f *Framebuffer) Bytes() []byte {
	return f.pix
}

// SameShape reports whether o has the same width, height and depth.
func (f *Framebuffer) SameShape(o *Framebuffer) bool {
	return f.width == o.width && f.height == o.height && f.depth == o.depth
}

// Clone returns a deep copy.
func (f *Framebuffer) Clone() *Framebuffer {
	c := *f
	c.pix = append([]byte(nil), f.pix...)
	return &c
}

// String implements fmt.Stringer.
func (f *Framebuffer) String() string {
	return fmt.Sprintf("Framebuffer{%dx%d, %d bpp}", f.width, f.height, f.depth)
}

func (f *Framebuffer) maxValue() uint8 {
	return uint8(int(1)<<f.depth - 1)
}

// pixOffset returns the byte index and the shift of the pixel at (x, y).
func (f *Framebuffer) pixOffset(x, y int) (int, uint) {
	bit := (y*f.width + x) * f.depth
	return bit / 8, uint(8 - f.depth - bit%8)
}

func (f *Framebuffer) checkBounds(x, y int) error {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return fmt.Errorf("%w: (%d,%d) not in %dx%d", ErrOutOfBounds, x, y, f.width, f.height)
	}
	return nil
}

// SetPixel sets the pixel at (x, y) to v.
func (f *Framebuffer) SetPixel(x, y int, v uint8) error {
	if err := f.checkBounds(x, y); err != nil {
		return err
	}
	if v > f.maxValue() {
		return fmt.Errorf("%w: %d exceeds %d at %d bpp", ErrInvalidValue, v, f.maxValue(), f.depth)
	}
	f.set(x, y, v)
	return nil
}

func (f *Framebuffer) set(x, y int, v uint8) {
	i, shift := f.pixOffset(x, y)
	mask := f.maxValue() << shift
	f.pix[i] = f.pix[i]&^mask | v<<shift
}

// Pixel returns the value of the pixel at (x, y).
func (f *Framebuffer) Pixel(x, y int) (uint8, error) {
	if err := f.checkBounds(x, y); err != nil {
		return 0, err
	}
	return f.get(x, y), nil
}

func (f *Framebuffer) get(x, y int) uint8 {
	i, shift := f.pixOffset(x, y)
	return f.pix[i] >> shift & f.maxValue()
}

// Clear sets every pixel to v.
func (f *Framebuffer) Clear(v uint8) error {
	if v > f.maxValue() {
		return fmt.Errorf("%w: %d exceeds %d at %d bpp", ErrInvalidValue, v, f.maxValue(), f.depth)
	}
	var b byte
	for shift := 0; shift < 8; shift += f.depth {
		b |= v << uint(shift)
	}
	for i := range f.pix {
		f.pix[i] = b
	}
	return nil
}

// Window returns a copy of the bytes covering r, row by row. r.Min.X and
// r.Max.X must fall on byte boundaries and rows must be byte aligned.
func (f *Framebuffer) Window(r image.Rectangle) ([]byte, error) {
	ppb := 8 / f.depth
	if (f.width*f.depth)%8 != 0 {
		return nil, fmt.Errorf("%w: rows of %d pixels are not byte aligned at %d bpp", ErrInvalidDimensions, f.width, f.depth)
	}
	if r.Min.X%ppb != 0 || r.Max.X%ppb != 0 || !r.In(f.Bounds()) {
		return nil, fmt.Errorf("%w: window %v in %dx%d", ErrOutOfBounds, r, f.width, f.height)
	}
	stride := f.width * f.depth / 8
	x0, x1 := r.Min.X/ppb, r.Max.X/ppb
	out := make([]byte, 0, (x1-x0)*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		out = append(out, f.pix[y*stride+x0:y*stride+x1]...)
	}
	return out, nil
}

// ColorModel implements image.Image.
func (f *Framebuffer) ColorModel() color.Model {
	if f.depth == 1 {
		return image1bit.BitModel
	}
	return grayModel(f.depth)
}

// Bounds implements image.Image.
func (f *Framebuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.width, f.height)
}

// At implements image.Image.
func (f *Framebuffer) At(x, y int) color.Color {
	if f.checkBounds(x, y) != nil {
		return color.Gray{}
	}
	v := f.get(x, y)
	if f.depth == 1 {
		return image1bit.Bit(v != 0)
	}
	return color.Gray{Y: uint8(uint(v) * 255 / uint(f.maxValue()))}
}

// Set implements draw.Image. Out of bounds pixels are ignored, as the
// draw.Image contract requires; use SetPixel to have them reported.
func (f *Framebuffer) Set(x, y int, c color.Color) {
	if f.checkBounds(x, y) != nil {
		return
	}
	f.set(x, y, f.valueOf(c))
}

func (f *Framebuffer) valueOf(c color.Color) uint8 {
	if f.depth == 1 {
		if image1bit.BitModel.Convert(c).(image1bit.Bit) {
			return 1
		}
		return 0
	}
	g := color.GrayModel.Convert(c).(color.Gray)
	return uint8((uint(g.Y)*uint(f.maxValue()) + 127) / 255)
}

// grayModel returns a model quantizing to 1<<bpp gray levels.
func grayModel(bpp int) color.Model {
	levels := uint(1<<bpp - 1)
	return color.ModelFunc(func(c color.Color) color.Color {
		g := color.GrayModel.Convert(c).(color.Gray)
		v := (uint(g.Y)*levels + 127) / 255
		return color.Gray{Y: uint8(v * 255 / levels)}
	})
}
