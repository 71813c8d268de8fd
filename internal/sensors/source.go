// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors produces raw joystick samples from an ADC, a Linux
// joystick device, or a synthetic generator.
package sensors

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/relabs-tech/joystick_link/internal/config"
	"github.com/relabs-tech/joystick_link/internal/joystick"
	"github.com/relabs-tech/joystick_link/internal/stream"
)

// Source publishes raw samples until its device fails.
type Source interface {
	// Run publishes to out in scan order. It returns only on a read error.
	Run(out *stream.Stream[joystick.RawSample]) error
	Close() error
}

// NewSource opens the source selected by cfg.Source.
func NewSource(cfg *config.Config, logger *log.Logger) (Source, error) {
	switch cfg.Source {
	case config.SourceADC:
		return NewADCSource(ADCOptions{
			Bus:          cfg.ADCI2CBus,
			Addr:         cfg.ADCI2CAddr,
			Chip:         cfg.ADCChip,
			SampleRate:   cfg.ADCSampleRate,
			MaxMillivolt: cfg.ADCMaxMillivolts,
		}, logger.WithPrefix("adc"))
	case config.SourceJoydev:
		return OpenJoydev(cfg.JoydevDevice, cfg.JoydevAxes, logger.WithPrefix("joydev"))
	case config.SourceFake:
		return NewFakeSource(cfg.FakeSampleRate, logger.WithPrefix("fake")), nil
	}
	return nil, fmt.Errorf("unknown sample source %q", cfg.Source)
}
