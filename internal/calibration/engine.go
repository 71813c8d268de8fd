// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration discovers which ADC slot each joystick axis is wired to
// and how far each axis travels, by guiding an operator through a fixed
// script of stick movements.
//
// Flow:
//
//	Idle -> LowestCheck(0) -> ... -> LowestCheck(N-1) -> MinMaxCheck -> Finish
//
// LowestCheck(i) asks for channel i's stick to be held at one extreme and
// records the slot that moved the most. MinMaxCheck asks for every stick to
// be swept through its full range and records per-slot extrema.
package calibration

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/relabs-tech/joystick_link/internal/joystick"
)

// State is one node of the calibration flow.
type State interface {
	fmt.Stringer
	state()
}

// Idle is the initial state. Nothing has been sampled.
type Idle struct{}

// LowestCheck identifies the slot for logical channel Step.
type LowestCheck struct {
	Step int
}

// MinMaxCheck captures the travel of every assigned slot.
type MinMaxCheck struct{}

// Finish is terminal.
type Finish struct{}

func (Idle) state()        {}
func (LowestCheck) state() {}
func (MinMaxCheck) state() {}
func (Finish) state()      {}

func (Idle) String() string          { return "Idle" }
func (s LowestCheck) String() string { return fmt.Sprintf("LowestCheck(%d)", s.Step) }
func (MinMaxCheck) String() string   { return "MinMaxCheck" }
func (Finish) String() string        { return "Finish" }

// Timing holds the settle delays and capture windows of each step.
type Timing struct {
	CenterSettle time.Duration
	StepSettle   time.Duration
	LowestWindow time.Duration
	MinMaxWindow time.Duration
}

// DefaultTiming returns the operator-paced durations.
func DefaultTiming() Timing {
	return Timing{
		CenterSettle: 5 * time.Second,
		StepSettle:   2 * time.Second,
		LowestWindow: 3 * time.Second,
		MinMaxWindow: 10 * time.Second,
	}
}

// Engine drives one calibration run.
type Engine struct {
	rx     Receiver
	clock  Clock
	timing Timing
	out    io.Writer
	logger *log.Logger

	state   State
	indexes []uint8
	infos   []joystick.ChannelInfo
	reverse [joystick.NumChannels]bool
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithTiming replaces DefaultTiming.
func WithTiming(t Timing) Option { return func(e *Engine) { e.timing = t } }

// WithLogger sets the diagnostics logger.
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// NewEngine creates an engine in the Idle state. Operator prompts are
// written to out.
func NewEngine(rx Receiver, out io.Writer, opts ...Option) *Engine {
	e := &Engine{
		rx:     rx,
		clock:  realClock{},
		timing: DefaultTiming(),
		out:    out,
		logger: log.Default(),
		state:  Idle{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// SetReverse marks channels whose output must be inverted. Polarity is never
// detected from the sampled data.
func (e *Engine) SetReverse(channels ...joystick.LogicalChannel) {
	for _, c := range channels {
		e.reverse[c] = true
	}
}

// Advance performs the current step and moves to the next state. Calling it
// in Finish does nothing.
func (e *Engine) Advance() error {
	switch s := e.state.(type) {
	case Idle:
		fmt.Fprintln(e.out, "start calibrate joysticks!")
		fmt.Fprintln(e.out, "step 0: push all joysticks to center.")
		e.clock.Sleep(e.timing.CenterSettle)
		e.state = LowestCheck{Step: 0}

	case LowestCheck:
		ch := joystick.LogicalChannel(s.Step)
		fmt.Fprintf(e.out, "step %d: push channel %s to lowest side or leftmost side.\n", s.Step+1, ch)
		e.clock.Sleep(e.timing.StepSettle)

		set := NewSampleSet(e.rx, e.clock)
		set.SampleInDuration(e.timing.LowestWindow)
		slot, err := set.LargestChangeSlot()
		if err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
		for prev, assigned := range e.indexes {
			if assigned == slot {
				e.logger.Warn("slot already assigned",
					"slot", slot, "channel", ch, "assigned_to", joystick.LogicalChannel(prev))
			}
		}
		e.indexes = append(e.indexes, slot)
		e.logger.Debug("slot detected", "channel", ch, "slot", slot, "samples", set.Len())

		if s.Step+1 < joystick.NumChannels {
			e.state = LowestCheck{Step: s.Step + 1}
		} else {
			e.state = MinMaxCheck{}
		}

	case MinMaxCheck:
		fmt.Fprintf(e.out, "step %d: move every joystick through its full range.\n", joystick.NumChannels+1)

		set := NewSampleSet(e.rx, e.clock)
		set.SampleInDuration(e.timing.MinMaxWindow)

		infos := make([]joystick.ChannelInfo, 0, joystick.NumChannels)
		for i, slot := range e.indexes {
			lo, err := set.MinOfSlot(slot)
			if err != nil {
				return fmt.Errorf("%s: %w", s, err)
			}
			hi, err := set.MaxOfSlot(slot)
			if err != nil {
				return fmt.Errorf("%s: %w", s, err)
			}
			infos = append(infos, joystick.ChannelInfo{
				Name:  joystick.LogicalChannel(i).String(),
				Index: slot,
				Min:   lo,
				Max:   hi,
			})
		}
		e.infos = infos
		e.state = Finish{}

	case Finish:
	}
	return nil
}

// Record returns the calibration built so far, with reverse flags applied.
func (e *Engine) Record() joystick.CalibrationRecord {
	rec := joystick.CalibrationRecord{
		ChannelInfos:   make([]joystick.ChannelInfo, len(e.infos)),
		ChannelIndexes: append([]uint8(nil), e.indexes...),
	}
	copy(rec.ChannelInfos, e.infos)
	for i := range rec.ChannelInfos {
		rec.ChannelInfos[i].Reverse = e.reverse[i]
	}
	return rec
}

// Run advances until Finish, prints the computed values for the operator to
// confirm, and returns the validated record.
func (e *Engine) Run() (joystick.CalibrationRecord, error) {
	for {
		if _, done := e.state.(Finish); done {
			break
		}
		from := e.state
		if err := e.Advance(); err != nil {
			return joystick.CalibrationRecord{}, err
		}
		e.logger.Debug("calibration step", "from", from, "to", e.state)
	}

	rec := e.Record()
	PrintRecord(e.out, rec)
	if err := Validate(rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// PrintRecord writes a per-channel table of the calibration.
func PrintRecord(w io.Writer, rec joystick.CalibrationRecord) {
	fmt.Fprintln(w, "calibration result:")
	fmt.Fprintf(w, "  %-10s %5s %7s %7s %5s\n", "channel", "slot", "min", "max", "rev")
	for _, info := range rec.ChannelInfos {
		fmt.Fprintf(w, "  %-10s %5d %7d %7d %5t\n", info.Name, info.Index, info.Min, info.Max, info.Reverse)
	}
}
