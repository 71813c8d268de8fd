// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"errors"
	"time"

	"github.com/relabs-tech/joystick_link/internal/joystick"
)

// ErrNoSamples is returned by statistics over an empty window.
var ErrNoSamples = errors.New("calibration: no samples captured")

// Receiver is the blocking raw-sample feed the engine reads from.
type Receiver interface {
	Recv() joystick.RawSample
}

// Clock abstracts wall time so sampling windows can be driven in tests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// SampleSet is one capture window of raw samples.
type SampleSet struct {
	samples []joystick.RawSample
	rx      Receiver
	clock   Clock
}

// NewSampleSet creates an empty window reading from rx.
func NewSampleSet(rx Receiver, clock Clock) *SampleSet {
	if clock == nil {
		clock = realClock{}
	}
	return &SampleSet{rx: rx, clock: clock}
}

// Len returns the number of samples captured so far.
func (s *SampleSet) Len() int { return len(s.samples) }

// Samples returns the captured samples in arrival order.
func (s *SampleSet) Samples() []joystick.RawSample { return s.samples }

// Add appends samples directly, bypassing the receiver.
func (s *SampleSet) Add(samples ...joystick.RawSample) {
	s.samples = append(s.samples, samples...)
}

// SampleInDuration receives samples until d has elapsed since the call
// started. At least one sample is always taken, and a stalled producer
// blocks this call indefinitely.
func (s *SampleSet) SampleInDuration(d time.Duration) {
	start := s.clock.Now()
	for {
		s.samples = append(s.samples, s.rx.Recv())
		if s.clock.Now().Sub(start) >= d {
			return
		}
	}
}

// SampleByCount receives samples until the window holds n in total.
func (s *SampleSet) SampleByCount(n int) {
	for len(s.samples) < n {
		s.samples = append(s.samples, s.rx.Recv())
	}
}

// Average returns the per-slot integer mean, truncated toward zero.
func (s *SampleSet) Average() (joystick.RawSample, error) {
	if len(s.samples) == 0 {
		return joystick.RawSample{}, ErrNoSamples
	}
	var sums [joystick.NumSlots]int64
	for _, sample := range s.samples {
		for i, v := range sample {
			sums[i] += int64(v)
		}
	}
	var avg joystick.RawSample
	for i, sum := range sums {
		avg[i] = int16(sum / int64(len(s.samples)))
	}
	return avg, nil
}

// LargestChangeSlot finds the raw slot that moved the most across the
// window. It compares the sample with the lowest cross-slot sum against the
// one with the highest, and returns the slot with the largest absolute
// difference between the two. Ties resolve to the lowest slot.
func (s *SampleSet) LargestChangeSlot() (uint8, error) {
	if len(s.samples) == 0 {
		return 0, ErrNoSamples
	}
	minSample, maxSample := s.samples[0], s.samples[0]
	minSum, maxSum := minSample.Sum(), maxSample.Sum()
	for _, sample := range s.samples[1:] {
		sum := sample.Sum()
		if sum < minSum {
			minSum, minSample = sum, sample
		}
		if sum > maxSum {
			maxSum, maxSample = sum, sample
		}
	}

	var best uint8
	var bestDiff int32 = -1
	for i := range joystick.NumSlots {
		diff := int32(maxSample[i]) - int32(minSample[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > bestDiff {
			best, bestDiff = uint8(i), diff
		}
	}
	return best, nil
}

// MinOfSlot returns the lowest value seen on slot.
func (s *SampleSet) MinOfSlot(slot uint8) (int16, error) {
	if len(s.samples) == 0 {
		return 0, ErrNoSamples
	}
	m := s.samples[0][slot]
	for _, sample := range s.samples[1:] {
		m = min(m, sample[slot])
	}
	return m, nil
}

// MaxOfSlot returns the highest value seen on slot.
func (s *SampleSet) MaxOfSlot(slot uint8) (int16, error) {
	if len(s.samples) == 0 {
		return 0, ErrNoSamples
	}
	m := s.samples[0][slot]
	for _, sample := range s.samples[1:] {
		m = max(m, sample[slot])
	}
	return m, nil
}
