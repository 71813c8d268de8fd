// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gamepad writes stick positions as USB HID gamepad reports through
// the Linux gadget device (/dev/hidg0).
package gamepad

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/relabs-tech/joystick_link/internal/joystick"
)

// DefaultDevice is the HID gadget endpoint.
const DefaultDevice = "/dev/hidg0"

// ReportLen is the size of one report: buttons then four axes.
const ReportLen = 5

// AxisValue maps a normalized value in [0, NormalizedMax] to a signed HID
// axis in [-127, 127].
func AxisValue(v uint16) int8 {
	return int8((int32(v) - 5000) * 127 / 5000)
}

// Report is one gamepad state.
type Report struct {
	Buttons uint8
	Axes    [joystick.NumChannels]int8
}

// ReportFromSample builds a report with no buttons pressed. Axes follow
// logical channel order: thrust, direction, aileron, elevator.
func ReportFromSample(s joystick.NormalizedSample) Report {
	var r Report
	for _, c := range joystick.Channels() {
		r.Axes[c] = AxisValue(s[c])
	}
	return r
}

// Bytes encodes the report as sent to the host.
func (r Report) Bytes() [ReportLen]byte {
	var b [ReportLen]byte
	b[0] = r.Buttons
	for i, a := range r.Axes {
		b[i+1] = byte(a)
	}
	return b
}

// Receiver yields the newest normalized sample, blocking until one exists.
type Receiver interface {
	Latest() joystick.NormalizedSample
}

// Sink writes the newest normalized sample each time the host takes a
// report. Samples that arrive while a write is pending are skipped.
type Sink struct {
	w      io.Writer
	logger *log.Logger
}

// NewSink wraps an already open device.
func NewSink(w io.Writer, logger *log.Logger) *Sink {
	if logger == nil {
		logger = log.Default()
	}
	return &Sink{w: w, logger: logger}
}

// Open opens the gadget device for writing. The device must already exist.
func Open(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open hid device %s: %w", path, err)
	}
	return f, nil
}

// Write sends a single report.
func (s *Sink) Write(r Report) error {
	b := r.Bytes()
	n, err := s.w.Write(b[:])
	if err != nil {
		return fmt.Errorf("write hid report: %w", err)
	}
	if n != len(b) {
		return fmt.Errorf("write hid report: %d of %d bytes", n, len(b))
	}
	return nil
}

// Run reports the newest sample from rx until a write fails. Writes to the
// gadget block until the host polls, which paces the loop.
func (s *Sink) Run(rx Receiver) error {
	s.logger.Info("gamepad sink started")
	for {
		if err := s.Write(ReportFromSample(rx.Latest())); err != nil {
			s.logger.Error("gamepad write failed", "err", err)
			return err
		}
	}
}
