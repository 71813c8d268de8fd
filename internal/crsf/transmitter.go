// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package crsf

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/joystick_link/internal/joystick"
)

const (
	// DefaultBaudRate is the serial speed of the transmitter module link.
	DefaultBaudRate = 115200
	// DefaultInterval is the period between RC frames.
	DefaultInterval = 10 * time.Millisecond

	handshakeRepeats = 10
	handshakeGap     = 10 * time.Millisecond
)

// ErrShortWrite is returned when the port accepts only part of a frame.
var ErrShortWrite = errors.New("crsf: short write")

// LatestReceiver yields the newest normalized sample, blocking until one
// exists.
type LatestReceiver interface {
	Latest() joystick.NormalizedSample
}

// Transmitter owns the serial link to the transmitter module.
type Transmitter struct {
	w        io.Writer
	rx       LatestReceiver
	interval time.Duration
	logger   *log.Logger
	sleep    func(time.Duration)

	frames atomic.Uint64
}

// NewTransmitter creates a transmitter writing to w and sending the latest
// value of rx every interval. A zero interval means DefaultInterval.
func NewTransmitter(w io.Writer, rx LatestReceiver, interval time.Duration, logger *log.Logger) *Transmitter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Transmitter{
		w:        w,
		rx:       rx,
		interval: interval,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// Frames returns how many RC frames have been written.
func (t *Transmitter) Frames() uint64 { return t.frames.Load() }

func (t *Transmitter) write(b []byte) error {
	n, err := t.w.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(b))
	}
	return nil
}

// Handshake sends the magic packet repeatedly so the module enters external
// radio mode whatever state it was left in. Any write error aborts.
func (t *Transmitter) Handshake() error {
	magic := MagicPacket()
	for i := range handshakeRepeats {
		if err := t.write(magic[:]); err != nil {
			return fmt.Errorf("crsf handshake %d/%d: %w", i+1, handshakeRepeats, err)
		}
		t.sleep(handshakeGap)
	}
	t.logger.Info("transmitter handshake done", "packets", handshakeRepeats)
	return nil
}

// Run sends one RC frame per tick built from the newest sample. It only
// returns on a write error; the link is not retried.
func (t *Transmitter) Run() error {
	t.logger.Info("transmitter started", "interval", t.interval)
	for {
		sample := t.rx.Latest()
		frame := RCChannelsFrame(ChannelsFromSample(sample))
		if err := t.write(frame[:]); err != nil {
			t.logger.Error("transmitter write failed", "frames", t.frames.Load(), "err", err)
			return fmt.Errorf("crsf write: %w", err)
		}
		t.frames.Add(1)
		t.sleep(t.interval)
	}
}

// OpenSerial opens port at baud, 8N1 with no flow control.
func OpenSerial(port string, baud uint) (io.ReadWriteCloser, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	opts := serial.OpenOptions{
		PortName:              port,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	rwc, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", port, err)
	}
	return rwc, nil
}
