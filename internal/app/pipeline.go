// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/joystick_link/internal/calibration"
	"github.com/relabs-tech/joystick_link/internal/joystick"
	"github.com/relabs-tech/joystick_link/internal/mixer"
	"github.com/relabs-tech/joystick_link/internal/sensors"
	"github.com/relabs-tech/joystick_link/internal/stream"
)

// loadRecord reads the calibration. ok is false when there is none, in
// which case the operator has already been told.
func loadRecord(env *Env) (rec joystick.CalibrationRecord, ok bool, err error) {
	rec, err = calibration.Load(env.Config.CalibrationFile)
	if errors.Is(err, calibration.ErrNotCalibrated) {
		fmt.Fprintln(env.Out, calibration.ErrNotCalibrated.Error())
		env.Logger.Debug("no calibration record", "err", err)
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	return rec, true, nil
}

// pipeline is a source publishing to raw, optionally mixed into out.
type pipeline struct {
	env *Env
	src sensors.Source
	raw *stream.Stream[joystick.RawSample]
	out *stream.Stream[joystick.NormalizedSample]
}

func newPipeline(env *Env) (*pipeline, error) {
	src, err := sensors.NewSource(env.Config, env.Logger)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	return &pipeline{
		env: env,
		src: src,
		raw: stream.New[joystick.RawSample]("adc_raw", env.Config.StreamDepth),
	}, nil
}

// newMixedPipeline adds the mixer, run inline on every raw publish.
func newMixedPipeline(env *Env, rec joystick.CalibrationRecord) (*pipeline, error) {
	p, err := newPipeline(env)
	if err != nil {
		return nil, err
	}
	p.out = stream.New[joystick.NormalizedSample]("mixer_out", env.Config.StreamDepth)
	mixer.New(rec).Attach(p.raw, p.out)
	return p, nil
}

// run starts the source and every component in its own goroutine, then
// returns whatever the first one to finish returns. Subscribe before
// calling run so no sample is missed.
func (p *pipeline) run(components ...func() error) error {
	done := make(chan error, len(components)+1)
	go func() {
		err := p.src.Run(p.raw)
		if err != nil {
			err = fmt.Errorf("source: %w", err)
		}
		done <- err
	}()
	for _, c := range components {
		go func() { done <- c() }()
	}

	err := <-done
	if cerr := p.src.Close(); cerr != nil {
		p.env.Logger.Debug("source close", "err", cerr)
	}
	return err
}
