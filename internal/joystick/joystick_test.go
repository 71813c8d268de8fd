// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package joystick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawSampleSumDoesNotOverflow(t *testing.T) {
	s := RawSample{32767, 32767, 32767, 32767}
	assert.Equal(t, int32(4*32767), s.Sum())

	s = RawSample{-32768, -32768, 1, 2}
	assert.Equal(t, int32(-65533), s.Sum())
}

func TestChannelOrder(t *testing.T) {
	assert.Equal(t, []LogicalChannel{Thrust, Direction, Aileron, Elevator}, Channels())
	assert.Equal(t, "Aileron", Aileron.String())
	assert.Equal(t, "LogicalChannel(9)", LogicalChannel(9).String())
}

func TestParseLogicalChannel(t *testing.T) {
	c, err := ParseLogicalChannel(" elevator ")
	require.NoError(t, err)
	assert.Equal(t, Elevator, c)

	_, err = ParseLogicalChannel("rudder")
	assert.Error(t, err)
}

func TestNormalizedSampleAccessors(t *testing.T) {
	s := NormalizedSample{1, 2, 3, 4}
	assert.Equal(t, uint16(1), s.Thrust())
	assert.Equal(t, uint16(2), s.Direction())
	assert.Equal(t, uint16(3), s.Aileron())
	assert.Equal(t, uint16(4), s.Elevator())
}
