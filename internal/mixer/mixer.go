// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mixer turns raw ADC counts into normalized stick positions using a
// calibration record.
package mixer

import (
	"github.com/relabs-tech/joystick_link/internal/joystick"
	"github.com/relabs-tech/joystick_link/internal/stream"
)

// MixChannel scales the raw value of info's slot into [0, NormalizedMax].
// A channel with max <= min always yields 0.
func MixChannel(raw joystick.RawSample, info joystick.ChannelInfo) uint16 {
	lo, hi := int32(info.Min), int32(info.Max)
	if hi <= lo {
		return 0
	}
	v := int32(raw[info.Index%joystick.NumSlots])
	v = min(max(v, lo), hi)

	ratio := (v - lo) * joystick.NormalizedMax / (hi - lo)
	if info.Reverse {
		ratio = joystick.NormalizedMax - ratio
	}
	return uint16(ratio)
}

// Mix applies MixChannel to every logical channel of rec.
func Mix(raw joystick.RawSample, rec joystick.CalibrationRecord) joystick.NormalizedSample {
	var out joystick.NormalizedSample
	for _, c := range joystick.Channels() {
		out[c] = MixChannel(raw, rec.Info(c))
	}
	return out
}

// Mixer holds a loaded calibration. It is read-only and safe to share.
type Mixer struct {
	rec joystick.CalibrationRecord
}

// New returns a mixer for rec. rec should already have passed validation.
func New(rec joystick.CalibrationRecord) *Mixer {
	return &Mixer{rec: rec}
}

// Mix normalizes one raw sample.
func (m *Mixer) Mix(raw joystick.RawSample) joystick.NormalizedSample {
	return Mix(raw, m.rec)
}

// Attach runs the mixer inline in raw's publish path, publishing one
// normalized sample to out for every raw sample, in order.
func (m *Mixer) Attach(raw *stream.Stream[joystick.RawSample], out *stream.Stream[joystick.NormalizedSample]) {
	raw.OnPublish(func(s joystick.RawSample) {
		out.Publish(m.Mix(s))
	})
}
