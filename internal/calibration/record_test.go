// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/joystick_link/internal/joystick"
)

func validRecord() joystick.CalibrationRecord {
	return joystick.CalibrationRecord{
		ChannelInfos: []joystick.ChannelInfo{
			{Name: "Thrust", Index: 2, Min: 120, Max: 3900},
			{Name: "Direction", Index: 0, Min: 80, Max: 4010},
			{Name: "Aileron", Index: 3, Min: 95, Max: 3950, Reverse: true},
			{Name: "Elevator", Index: 1, Min: 110, Max: 3990},
		},
		ChannelIndexes: []uint8{2, 0, 3, 1},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	rec := validRecord()

	require.NoError(t, Save(path, rec))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestSavedFileLayout(t *testing.T) {
	data, err := Marshal(validRecord())
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "channel_infos:")
	assert.Contains(t, text, "channel_indexs: [2, 0, 3, 1]")
	assert.Contains(t, text, "rev: true")
}

func TestSaveRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0o644))

	err := Save(path, validRecord())
	assert.ErrorIs(t, err, ErrRecordExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestLoadMissingIsNotCalibrated(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrNotCalibrated)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	rec := validRecord()
	rec.ChannelInfos[1].Max = rec.ChannelInfos[1].Min
	data, err := Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Load(path)
	assert.ErrorIs(t, err, ErrDegenerateRange)
}

func TestLoadRejectsHandEditedIndexList(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	data, err := Marshal(validRecord())
	require.NoError(t, err)
	edited := strings.Replace(string(data), "channel_indexs: [2, 0, 3, 1]", "channel_indexs: [0, 1, 2, 3]", 1)
	require.NotEqual(t, string(data), edited)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	_, err = Load(path)
	assert.ErrorIs(t, err, ErrSlotMismatch)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("channel_infos: [[[\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotCalibrated)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*joystick.CalibrationRecord)
		want   error
	}{
		{"valid", func(*joystick.CalibrationRecord) {}, nil},
		{"duplicate slot", func(r *joystick.CalibrationRecord) { r.ChannelInfos[3].Index = 2 }, ErrDuplicateSlot},
		{"index list disagrees", func(r *joystick.CalibrationRecord) { r.ChannelIndexes[1] = 3 }, ErrSlotMismatch},
		{"index list swapped", func(r *joystick.CalibrationRecord) { r.ChannelIndexes[0], r.ChannelIndexes[1] = 0, 2 }, ErrSlotMismatch},
		{"min equals max", func(r *joystick.CalibrationRecord) { r.ChannelInfos[0].Max = 120 }, ErrDegenerateRange},
		{"min above max", func(r *joystick.CalibrationRecord) { r.ChannelInfos[2].Min = 4000 }, ErrDegenerateRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)
			err := Validate(rec)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestValidateShape(t *testing.T) {
	rec := validRecord()
	rec.ChannelInfos = rec.ChannelInfos[:3]
	assert.Error(t, Validate(rec))

	rec = validRecord()
	rec.ChannelIndexes = nil
	assert.Error(t, Validate(rec))

	rec = validRecord()
	rec.ChannelInfos[0].Index = 4
	assert.Error(t, Validate(rec))
}
