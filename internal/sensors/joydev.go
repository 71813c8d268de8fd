// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/relabs-tech/joystick_link/internal/joystick"
	"github.com/relabs-tech/joystick_link/internal/stream"
)

// Linux joystick API (linux/joystick.h) event types.
const (
	jsEventButton = 0x01
	jsEventAxis   = 0x02
	jsEventInit   = 0x80
)

// jsEvent mirrors struct js_event.
type jsEvent struct {
	Time   uint32 // ms, driver clock
	Value  int16
	Type   uint8
	Number uint8
}

// JoydevSource turns /dev/input/js* axis events into raw samples. Each
// mapped axis event updates its slot and publishes the whole sample.
type JoydevSource struct {
	r      io.ReadCloser
	slots  map[uint8]int
	logger *log.Logger

	current joystick.RawSample
}

// OpenJoydev opens a joystick device. axes[i] is the js axis number that
// feeds raw slot i.
func OpenJoydev(path string, axes [joystick.NumSlots]uint8, logger *log.Logger) (*JoydevSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open joystick %s: %w", path, err)
	}
	logger.Info("joystick opened", "device", path, "axes", axes)
	return NewJoydevSource(f, axes, logger), nil
}

// NewJoydevSource reads events from r.
func NewJoydevSource(r io.ReadCloser, axes [joystick.NumSlots]uint8, logger *log.Logger) *JoydevSource {
	slots := make(map[uint8]int, len(axes))
	for slot, axis := range axes {
		slots[axis] = slot
	}
	return &JoydevSource{r: r, slots: slots, logger: logger}
}

// apply folds one event into the current sample. It reports whether the
// event changed a mapped axis.
func (s *JoydevSource) apply(ev jsEvent) bool {
	if ev.Type&^jsEventInit != jsEventAxis {
		return false
	}
	slot, ok := s.slots[ev.Number]
	if !ok {
		return false
	}
	s.current[slot] = ev.Value
	return true
}

// Run publishes a sample for every mapped axis event, including the
// initial-state events the driver sends on open.
func (s *JoydevSource) Run(out *stream.Stream[joystick.RawSample]) error {
	for {
		var ev jsEvent
		if err := binary.Read(s.r, binary.LittleEndian, &ev); err != nil {
			s.logger.Error("joystick read failed", "err", err)
			return fmt.Errorf("joydev: %w", err)
		}
		if s.apply(ev) {
			out.Publish(s.current)
		} else if ev.Type&^jsEventInit == jsEventButton {
			s.logger.Debug("button", "number", ev.Number, "value", ev.Value)
		}
	}
}

// Close closes the device.
func (s *JoydevSource) Close() error {
	return s.r.Close()
}
