// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(name, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestParseConfigDefaults(t *testing.T) {
	got, err := parseConfig("")
	if err != nil {
		t.Fatalf("parseConfig() failed: %v", err)
	}
	if diff := cmp.Diff(defaultConfig(), got); diff != "" {
		t.Errorf("config difference (-want +got):\n%s", diff)
	}
}

func TestParseConfig(t *testing.T) {
	name := writeConfig(t, `
model: 2in9
spi: SPI0.0
pins:
  dc: GPIO25
  rst: GPIO17
  busy: GPIO24
interval: 30s
full_refresh: "@hourly"
layout: "15:04:05"
date_layout: ""
timezone: UTC
metrics: ":9101"
`)
	got, err := parseConfig(name)
	if err != nil {
		t.Fatalf("parseConfig() failed: %v", err)
	}
	want := defaultConfig()
	want.Model = "2in9"
	want.SPI = "SPI0.0"
	want.Pins = Pins{DC: "GPIO25", RST: "GPIO17", Busy: "GPIO24"}
	want.Interval = 30 * time.Second
	want.FullRefresh = "@hourly"
	want.Layout = "15:04:05"
	want.DateLayout = ""
	want.Timezone = "UTC"
	want.Metrics = ":9101"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config difference (-want +got):\n%s", diff)
	}
}

func TestParseConfigEmptyFile(t *testing.T) {
	got, err := parseConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("parseConfig() failed: %v", err)
	}
	if diff := cmp.Diff(defaultConfig(), got); diff != "" {
		t.Errorf("config difference (-want +got):\n%s", diff)
	}
}

func TestParseConfigErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown field", content: "colour: red\n", want: "field colour not found"},
		{name: "unknown model", content: "model: 7in5\n", want: `unknown model "7in5"`},
		{name: "incomplete pins", content: "pins:\n  dc: GPIO25\n", want: "pins"},
		{name: "short interval", content: "interval: 100ms\n", want: "interval"},
		{name: "bad cron", content: "full_refresh: \"every day\"\n", want: "full_refresh"},
		{name: "empty layout", content: "layout: \"\"\n", want: "layout is empty"},
		{name: "font size", content: "font_size: 0\n", want: "font_size"},
		{name: "time zone", content: "timezone: Mars/Olympus\n", want: "timezone"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseConfig(writeConfig(t, tc.content))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("parseConfig() = %v, want an error containing %q", err, tc.want)
			}
		})
	}
}

func TestParseConfigMissingFile(t *testing.T) {
	if _, err := parseConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("parseConfig() = %v, want a not exist error", err)
	}
}
