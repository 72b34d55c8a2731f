// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"image"
	"image/draw"
	"log"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/GermanBionicSystems/epaper/epd"
	"github.com/GermanBionicSystems/epaper/framebuffer"
)

// panel is what the clock needs from a display driver.
type panel interface {
	epd.Resetter
	epd.DisplayPartial
	Bounds() image.Rectangle
}

type metrics struct {
	refreshes *prometheus.CounterVec
	failures  prometheus.Counter
	dirty     prometheus.Gauge
	duration  *prometheus.HistogramVec
	last      prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "epd_clock_refreshes_total",
			Help: "Panel refreshes, by refresh mode.",
		}, []string{"mode"}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Name: "epd_clock_refresh_failures_total",
			Help: "Refreshes that failed and required a panel reset.",
		}),
		dirty: f.NewGauge(prometheus.GaugeOpts{
			Name: "epd_clock_dirty_pixels",
			Help: "Pixels covered by the last refreshed region.",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "epd_clock_refresh_duration_seconds",
			Help:    "Time spent sending and refreshing a frame.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}, []string{"mode"}),
		last: f.NewGauge(prometheus.GaugeOpts{
			Name: "epd_clock_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful refresh.",
		}),
	}
}

type clock struct {
	dev   panel
	cfg   Config
	loc   *time.Location
	m     *metrics
	fb    *framebuffer.Framebuffer
	big   font.Face
	small font.Face

	// displayed is set once a full refresh succeeded since the last reset.
	displayed bool
	shown     string
}

func newClock(dev panel, cfg Config, m *metrics) (*clock, error) {
	loc, err := cfg.location()
	if err != nil {
		return nil, err
	}
	b := dev.Bounds()
	fb, err := framebuffer.New(b.Dx(), b.Dy(), 1)
	if err != nil {
		return nil, err
	}
	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return &clock{
		dev:   dev,
		cfg:   cfg,
		loc:   loc,
		m:     m,
		fb:    fb,
		big:   truetype.NewFace(ttf, &truetype.Options{Size: cfg.FontSize}),
		small: truetype.NewFace(ttf, &truetype.Options{Size: cfg.FontSize / 3}),
	}, nil
}

// render draws now in landscape orientation on the portrait panel.
func (c *clock) render(now time.Time) image.Image {
	b := c.fb.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.Translate(w, 0)
	dc.Rotate(gg.Radians(90))

	now = now.In(c.loc)
	y := w / 2
	if c.cfg.DateLayout != "" {
		y = w * 0.42
		dc.SetFontFace(c.small)
		dc.DrawStringAnchored(now.Format(c.cfg.DateLayout), h/2, w*0.85, 0.5, 0.5)
	}
	dc.SetFontFace(c.big)
	dc.DrawStringAnchored(now.Format(c.cfg.Layout), h/2, y, 0.5, 0.5)
	return dc.Image()
}

// text returns what the clock shows at now. Frames are only sent when it
// changes.
func (c *clock) text(now time.Time) string {
	now = now.In(c.loc)
	return now.Format(c.cfg.Layout) + "\n" + now.Format(c.cfg.DateLayout)
}

// update shows now on the panel. A full refresh is done when full is set,
// partial refreshes are disabled or nothing was displayed yet.
func (c *clock) update(now time.Time, full bool) error {
	text := c.text(now)
	if text == c.shown && !full {
		return nil
	}
	draw.Draw(c.fb, c.fb.Bounds(), c.render(now), image.Point{}, draw.Src)

	mode := "partial"
	if full || !c.cfg.PartialRefresh || !c.displayed {
		mode = "full"
	}
	start := time.Now()
	var err error
	r := c.fb.Bounds()
	if mode == "full" {
		err = c.dev.DisplayFull(c.fb)
	} else {
		r, err = c.dev.DisplayPartial(c.fb)
	}
	if err != nil {
		c.m.failures.Inc()
		c.displayed = false
		c.shown = ""
		// The driver refuses further work until it is reset.
		if rerr := c.dev.Reset(); rerr != nil {
			return fmt.Errorf("%s refresh: %w (reset: %v)", mode, err, rerr)
		}
		return fmt.Errorf("%s refresh: %w", mode, err)
	}
	c.m.duration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	c.m.dirty.Set(float64(r.Dx() * r.Dy()))
	c.m.refreshes.WithLabelValues(mode).Inc()
	c.m.last.SetToCurrentTime()
	c.displayed = true
	c.shown = text
	log.Printf("%s refresh: %q", mode, text)
	return nil
}

// run updates the clock every interval and does a full refresh on every
// request received from full, until stop fires.
func (c *clock) run(stop <-chan os.Signal, full <-chan struct{}) error {
	if err := c.update(time.Now(), true); err != nil {
		return err
	}
	t := time.NewTicker(c.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return nil
		case <-full:
			if err := c.update(time.Now(), true); err != nil {
				log.Printf("clock: %v", err)
			}
		case now := <-t.C:
			if err := c.update(now, false); err != nil {
				log.Printf("clock: %v", err)
			}
		}
	}
}
