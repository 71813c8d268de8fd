// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package joystick

import (
	"fmt"
	"strings"
)

// NumSlots is the number of raw ADC inputs scanned per sample.
const NumSlots = 4

// NormalizedMax is the top of the mixer output range (percent of travel x100).
const NormalizedMax = 10000

// RawSample represents a single scan of the 4 ADC inputs, in raw counts.
type RawSample [NumSlots]int16

// Sum returns the cross-slot sum, widened so it cannot overflow.
func (s RawSample) Sum() int32 {
	var sum int32
	for _, v := range s {
		sum += int32(v)
	}
	return sum
}

// LogicalChannel is one of the named control axes. The declaration order is
// the canonical channel index used everywhere.
type LogicalChannel uint8

const (
	Thrust LogicalChannel = iota
	Direction
	Aileron
	Elevator

	NumChannels = 4
)

var channelNames = [NumChannels]string{"Thrust", "Direction", "Aileron", "Elevator"}

func (c LogicalChannel) String() string {
	if int(c) < NumChannels {
		return channelNames[c]
	}
	return fmt.Sprintf("LogicalChannel(%d)", uint8(c))
}

// Channels returns every logical channel in declaration order.
func Channels() []LogicalChannel {
	return []LogicalChannel{Thrust, Direction, Aileron, Elevator}
}

// ParseLogicalChannel resolves a channel name, ignoring case.
func ParseLogicalChannel(name string) (LogicalChannel, error) {
	name = strings.TrimSpace(name)
	for i, n := range channelNames {
		if strings.EqualFold(n, name) {
			return LogicalChannel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q (want one of %s)", name, strings.Join(channelNames[:], ", "))
}

// ChannelInfo is the calibration of one logical channel: which raw slot it
// reads and the travel observed on that slot.
type ChannelInfo struct {
	Name    string `yaml:"name" json:"name"`
	Index   uint8  `yaml:"index" json:"index"`
	Min     int16  `yaml:"min" json:"min"`
	Max     int16  `yaml:"max" json:"max"`
	Reverse bool   `yaml:"rev" json:"rev"`
}

// CalibrationRecord is the persisted result of a calibration run, indexed by
// LogicalChannel.
type CalibrationRecord struct {
	ChannelInfos   []ChannelInfo `yaml:"channel_infos" json:"channel_infos"`
	ChannelIndexes []uint8       `yaml:"channel_indexs,flow" json:"channel_indexs"`
}

// Info returns the calibration of channel c.
func (r CalibrationRecord) Info(c LogicalChannel) ChannelInfo {
	return r.ChannelInfos[c]
}

// NormalizedSample is the mixer output: one value per LogicalChannel in
// [0, NormalizedMax].
type NormalizedSample [NumChannels]uint16

func (s NormalizedSample) Thrust() uint16    { return s[Thrust] }
func (s NormalizedSample) Direction() uint16 { return s[Direction] }
func (s NormalizedSample) Aileron() uint16   { return s[Aileron] }
func (s NormalizedSample) Elevator() uint16  { return s[Elevator] }
