// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Pins names the GPIO lines of a panel not wired as a Waveshare HAT.
type Pins struct {
	DC   string `yaml:"dc"`
	CS   string `yaml:"cs"`
	RST  string `yaml:"rst"`
	Busy string `yaml:"busy"`
}

func (p Pins) empty() bool {
	return p == Pins{}
}

// Config is the content of the configuration file.
type Config struct {
	// Model is the panel driver: "2in9" or "2in9v2".
	Model string `yaml:"model"`
	// SPI is the spireg name of the bus. Empty selects the first one.
	SPI string `yaml:"spi"`
	// Pins, if set, replace the HAT wiring.
	Pins Pins `yaml:"pins"`
	// BusyTimeout bounds every wait on the busy line.
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// PartialRefresh enables partial refreshes between full ones.
	PartialRefresh bool `yaml:"partial_refresh"`
	// Interval between clock updates.
	Interval time.Duration `yaml:"interval"`
	// FullRefresh is a cron spec for the full refreshes clearing ghosting.
	FullRefresh string `yaml:"full_refresh"`

	// Layout is the time.Format layout of the large line.
	Layout string `yaml:"layout"`
	// DateLayout is the layout of the small line. Empty hides it.
	DateLayout string `yaml:"date_layout"`
	// Timezone is an IANA name. Empty uses the local time zone.
	Timezone string `yaml:"timezone"`
	// FontSize of the large line, in points.
	FontSize float64 `yaml:"font_size"`

	// Metrics is the address serving /metrics. Empty disables it.
	Metrics string `yaml:"metrics"`
}

// defaultConfig returns the configuration used when no file is given.
func defaultConfig() Config {
	return Config{
		Model:          "2in9v2",
		BusyTimeout:    10 * time.Second,
		PartialRefresh: true,
		Interval:       time.Minute,
		FullRefresh:    "0 */6 * * *",
		Layout:         "15:04",
		DateLayout:     "Mon 2 Jan",
		FontSize:       48,
	}
}

// parseConfig reads filename over the defaults. Unknown keys are rejected.
func parseConfig(filename string) (Config, error) {
	cfg := defaultConfig()
	if filename == "" {
		return cfg, cfg.validate()
	}
	raw, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config from %s: %w", filename, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Model {
	case "2in9", "2in9v2":
	default:
		return fmt.Errorf("unknown model %q", c.Model)
	}
	if !c.Pins.empty() && (c.Pins.DC == "" || c.Pins.RST == "" || c.Pins.Busy == "") {
		return errors.New("pins: dc, rst and busy are required")
	}
	if c.Interval < time.Second {
		return fmt.Errorf("interval %s is shorter than 1s", c.Interval)
	}
	if c.FullRefresh != "" {
		if _, err := cron.ParseStandard(c.FullRefresh); err != nil {
			return fmt.Errorf("full_refresh: %w", err)
		}
	}
	if c.Layout == "" {
		return errors.New("layout is empty")
	}
	if c.FontSize <= 0 {
		return fmt.Errorf("font_size %g must be positive", c.FontSize)
	}
	if _, err := c.location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}
