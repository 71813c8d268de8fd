// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/joystick_link/internal/joystick"
)

// DefaultFile is where the calibration record lives unless configured.
const DefaultFile = "joystick.yaml"

var (
	// ErrNotCalibrated means no calibration record exists yet.
	ErrNotCalibrated = errors.New("please calibrate joysticks first")
	// ErrRecordExists is returned instead of overwriting a previous calibration.
	ErrRecordExists = errors.New("calibration record already exists")
	// ErrDuplicateSlot means two logical channels read the same raw slot.
	ErrDuplicateSlot = errors.New("raw slot assigned to more than one channel")
	// ErrDegenerateRange means a channel's max is not above its min.
	ErrDegenerateRange = errors.New("channel range is empty")
	// ErrSlotMismatch means channel_indexs disagrees with a channel's index.
	ErrSlotMismatch = errors.New("channel slot disagrees with channel index list")
)

// Validate checks that a record can drive the mixer: one info and one slot
// per logical channel, slots in range, unique and matching the index list,
// and max > min everywhere.
func Validate(rec joystick.CalibrationRecord) error {
	if len(rec.ChannelInfos) != joystick.NumChannels {
		return fmt.Errorf("calibration: %d channel infos, want %d", len(rec.ChannelInfos), joystick.NumChannels)
	}
	if len(rec.ChannelIndexes) != joystick.NumChannels {
		return fmt.Errorf("calibration: %d channel indexes, want %d", len(rec.ChannelIndexes), joystick.NumChannels)
	}

	var owner [joystick.NumSlots]int
	for i := range owner {
		owner[i] = -1
	}
	for i, info := range rec.ChannelInfos {
		ch := joystick.LogicalChannel(i)
		if int(info.Index) >= joystick.NumSlots {
			return fmt.Errorf("calibration: %s reads slot %d, only %d slots exist", ch, info.Index, joystick.NumSlots)
		}
		if prev := owner[info.Index]; prev >= 0 {
			return fmt.Errorf("%w: slot %d used by %s and %s", ErrDuplicateSlot, info.Index, joystick.LogicalChannel(prev), ch)
		}
		owner[info.Index] = i
		if rec.ChannelIndexes[i] != info.Index {
			return fmt.Errorf("%w: %s reads slot %d, channel_indexs[%d] is %d", ErrSlotMismatch, ch, info.Index, i, rec.ChannelIndexes[i])
		}
		if info.Max <= info.Min {
			return fmt.Errorf("%w: %s min=%d max=%d (stick not moved?)", ErrDegenerateRange, ch, info.Min, info.Max)
		}
	}
	return nil
}

// Marshal encodes a record as YAML.
func Marshal(rec joystick.CalibrationRecord) ([]byte, error) {
	return yaml.Marshal(rec)
}

// Unmarshal decodes a YAML record without validating it.
func Unmarshal(data []byte) (joystick.CalibrationRecord, error) {
	var rec joystick.CalibrationRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return joystick.CalibrationRecord{}, fmt.Errorf("parse calibration record: %w", err)
	}
	return rec, nil
}

// Save writes rec to path. The file appears atomically and an existing file
// is never replaced.
func Save(path string, rec joystick.CalibrationRecord) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrRecordExists, path)
	}

	data, err := Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode calibration record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".joystick-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp calibration file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write calibration record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync calibration record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close calibration record: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod calibration record: %w", err)
	}

	// Link fails if path exists, so a concurrent writer cannot be clobbered.
	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrRecordExists, path)
		}
		return fmt.Errorf("publish calibration record: %w", err)
	}
	return nil
}

// Load reads and validates the record at path. A missing file yields an
// error wrapping ErrNotCalibrated.
func Load(path string) (joystick.CalibrationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return joystick.CalibrationRecord{}, fmt.Errorf("%w (%s not found)", ErrNotCalibrated, path)
		}
		return joystick.CalibrationRecord{}, fmt.Errorf("read calibration record: %w", err)
	}
	rec, err := Unmarshal(data)
	if err != nil {
		return joystick.CalibrationRecord{}, err
	}
	if err := Validate(rec); err != nil {
		return joystick.CalibrationRecord{}, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}
