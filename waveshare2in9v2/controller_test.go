// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in9v2

import (
	"bytes"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type record struct {
	cmd  byte
	data []byte
}

type fakeController []record

func (r *fakeController) sendCommand(cmd byte) {
	*r = append(*r, record{
		cmd: cmd,
	})
}

func (r *fakeController) sendData(data []byte) {
	cur := &(*r)[len(*r)-1]
	cur.data = append(cur.data, data...)
}

func (r *fakeController) sendByte(data byte) {
	r.sendData([]byte{data})
}

func (*fakeController) waitUntilIdle() {
}

func TestInitDisplay(t *testing.T) {
	var got fakeController

	initDisplay(&got, &EPD2in9v2)

	want := []record{
		{cmd: swReset},
		{cmd: driverOutputControl, data: []byte{0x27, 0x01, 0x00}},
		{cmd: dataEntryModeSetting, data: []byte{0x03}},
		{cmd: displayUpdateControl1, data: []byte{0x00, 0x80}},
	}
	if diff := cmp.Diff([]record(got), want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
		t.Errorf("initDisplay() difference (-got +want):\n%s", diff)
	}
}

func TestConfigRefreshMode(t *testing.T) {
	opts := Opts{
		FullUpdate:    bytes.Repeat([]byte{'F'}, lutSize),
		PartialUpdate: bytes.Repeat([]byte{'P'}, lutSize),
	}

	for _, tc := range []struct {
		name string
		mode RefreshMode
		want []record
	}{
		{
			name: "full",
			mode: Full,
			want: []record{
				{cmd: borderWaveformControl, data: []byte{0x05}},
				{cmd: writeLutRegister, data: bytes.Repeat([]byte{'F'}, lutSize)},
				{cmd: endOptionEOPT, data: []byte{0x22}},
				{cmd: gateDrivingVoltageControl, data: []byte{0x17}},
				{cmd: sourceDrivingVoltageControl, data: []byte{0x41, 0xae, 0x32}},
				{cmd: vcomRegisterWrite, data: []byte{0x38}},
			},
		},
		{
			name: "partial",
			mode: Partial,
			want: []record{
				{cmd: borderWaveformControl, data: []byte{0x80}},
				{cmd: writeLutRegister, data: bytes.Repeat([]byte{'P'}, lutSize)},
				{cmd: endOptionEOPT, data: []byte{0x22}},
				{cmd: gateDrivingVoltageControl, data: []byte{0x17}},
				{cmd: sourceDrivingVoltageControl, data: []byte{0x41, 0xb0, 0x32}},
				{cmd: vcomRegisterWrite, data: []byte{0x36}},
				{cmd: writeRegisterForDisplayOption, data: []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0x00, 0x00}},
				{cmd: displayUpdateControl2, data: []byte{0xc3}},
				{cmd: masterActivation},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var got fakeController

			configRefreshMode(&got, &opts, tc.mode)

			if diff := cmp.Diff([]record(got), tc.want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
				t.Errorf("configRefreshMode() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestWriteImage(t *testing.T) {
	var got fakeController

	writeImage(&got, writeRAMRed, image.Rect(120, 8, 128, 264), []byte{0xaa})

	want := []record{
		{cmd: setRAMXAddressStartEndPosition, data: []byte{0x0f, 0x0f}},
		{cmd: setRAMYAddressStartEndPosition, data: []byte{0x08, 0x00, 0x07, 0x01}},
		{cmd: setRAMXAddressCounter, data: []byte{0x0f}},
		{cmd: setRAMYAddressCounter, data: []byte{0x08, 0x00}},
		{cmd: writeRAMRed, data: []byte{0xaa}},
	}
	if diff := cmp.Diff([]record(got), want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
		t.Errorf("writeImage() difference (-got +want):\n%s", diff)
	}
}

func TestUpdateDisplay(t *testing.T) {
	for _, tc := range []struct {
		mode RefreshMode
		want byte
	}{
		{mode: Full, want: 0xc7},
		{mode: Partial, want: 0xcf},
	} {
		t.Run(tc.mode.String(), func(t *testing.T) {
			var got fakeController

			updateDisplay(&got, tc.mode)

			want := []record{
				{cmd: displayUpdateControl2, data: []byte{tc.want}},
				{cmd: masterActivation},
			}
			if diff := cmp.Diff([]record(got), want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
				t.Errorf("updateDisplay() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestDeepSleep(t *testing.T) {
	var got fakeController

	deepSleep(&got)

	want := []record{{cmd: deepSleepMode, data: []byte{0x01}}}
	if diff := cmp.Diff([]record(got), want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
		t.Errorf("deepSleep() difference (-got +want):\n%s", diff)
	}
}
