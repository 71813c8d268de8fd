// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/relabs-tech/joystick_link/internal/joystick"
	"github.com/relabs-tech/joystick_link/internal/stream"
)

// Fake waveform shape, in raw counts.
const (
	fakeCenter    = 1024
	fakeAmplitude = 900
	fakePeriod    = 400 // samples per triangle cycle on slot 0
)

// FakeSource emits deterministic triangle waves, one per slot with a
// different period, for bench use without hardware.
type FakeSource struct {
	interval time.Duration
	logger   *log.Logger
	sleep    func(time.Duration)
	n        int
	done     chan struct{}
}

// NewFakeSource creates a generator producing rate samples per second.
func NewFakeSource(rate int, logger *log.Logger) *FakeSource {
	if rate <= 0 {
		rate = 100
	}
	return &FakeSource{
		interval: time.Second / time.Duration(rate),
		logger:   logger,
		sleep:    time.Sleep,
		done:     make(chan struct{}),
	}
}

func triangle(n, period int) int16 {
	phase := n % period
	half := period / 2
	var v int
	if phase < half {
		v = phase * 2 * fakeAmplitude / half
	} else {
		v = (period - phase) * 2 * fakeAmplitude / half
	}
	return int16(fakeCenter - fakeAmplitude + v)
}

// Next returns the following sample of the waveform.
func (s *FakeSource) Next() joystick.RawSample {
	var sample joystick.RawSample
	for i := range sample {
		sample[i] = triangle(s.n, fakePeriod*(i+1))
	}
	s.n++
	return sample
}

// Run publishes one sample per interval until Close.
func (s *FakeSource) Run(out *stream.Stream[joystick.RawSample]) error {
	s.logger.Info("fake source started", "interval", s.interval)
	for {
		select {
		case <-s.done:
			return nil
		default:
		}
		out.Publish(s.Next())
		s.sleep(s.interval)
	}
}

// Close stops Run.
func (s *FakeSource) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}
