// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package framebuffer

import (
	"bytes"
	"fmt"
	"image"
)

// Diff returns the smallest rectangle containing every pixel whose byte
// differs between base and next, with its horizontal bounds expanded
// outward to byte boundaries. It returns the empty rectangle when both
// buffers hold the same data. When rows are not byte aligned the region
// may extend past the buffer's width up to the next byte boundary.
//
// All changes are collapsed into a single region: each refresh has a large
// fixed cost on e-paper panels, so one refresh of a larger area beats
// several refreshes of smaller ones.
func Diff(base, next *Framebuffer) (image.Rectangle, error) {
	if !base.SameShape(next) {
		return image.Rectangle{}, fmt.Errorf("%w: %v vs %v", ErrDimensionMismatch, base, next)
	}

	var r image.Rectangle
	if (base.width*base.depth)%8 == 0 {
		r = diffRows(base, next)
	} else {
		r = diffBytes(base, next)
	}
	if r.Empty() {
		return image.Rectangle{}, nil
	}

	ppb := 8 / base.depth
	r.Min.X = r.Min.X / ppb * ppb
	r.Max.X = (r.Max.X + ppb - 1) / ppb * ppb
	return r, nil
}

// diffRows scans buffers whose rows start on byte boundaries.
func diffRows(base, next *Framebuffer) image.Rectangle {
	stride := base.width * base.depth / 8
	ppb := 8 / base.depth

	var r image.Rectangle
	for y := 0; y < base.height; y++ {
		a := base.pix[y*stride : (y+1)*stride]
		b := next.pix[y*stride : (y+1)*stride]
		if bytes.Equal(a, b) {
			continue
		}
		first := 0
		for a[first] == b[first] {
			first++
		}
		last := stride - 1
		for a[last] == b[last] {
			last--
		}
		r = r.Union(image.Rect(first*ppb, y, (last+1)*ppb, y+1))
	}
	return r.Intersect(base.Bounds())
}

// diffBytes maps each differing byte back to the pixels it covers. It is
// used when rows share bytes.
func diffBytes(base, next *Framebuffer) image.Rectangle {
	var r image.Rectangle
	for i := range base.pix {
		if base.pix[i] == next.pix[i] {
			continue
		}
		p0 := i * 8 / base.depth
		p1 := ((i+1)*8)/base.depth - 1
		if last := base.width*base.height - 1; p1 > last {
			p1 = last
		}
		y0, y1 := p0/base.width, p1/base.width
		if y0 == y1 {
			r = r.Union(image.Rect(p0%base.width, y0, p1%base.width+1, y0+1))
		} else {
			r = r.Union(image.Rect(0, y0, base.width, y1+1))
		}
	}
	return r
}
