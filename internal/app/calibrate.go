// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/relabs-tech/joystick_link/internal/calibration"
	"github.com/relabs-tech/joystick_link/internal/joystick"
)

// RunCalibrate walks the operator through calibration and writes the record.
func RunCalibrate(env *Env, args []string) error {
	flags := newFlagSet(env, "calibrate")
	out := flags.String("out", env.Config.CalibrationFile, "record file to write")
	reverse := flags.StringSlice("reverse", nil, "channels to invert, e.g. thrust,elevator")
	if err := flags.Parse(args); err != nil {
		return err
	}

	var reversed []joystick.LogicalChannel
	for _, name := range *reverse {
		c, err := joystick.ParseLogicalChannel(name)
		if err != nil {
			return err
		}
		reversed = append(reversed, c)
	}

	if err := checkAbsent(*out); err != nil {
		return err
	}

	p, err := newPipeline(env)
	if err != nil {
		return err
	}
	rx := p.raw.Subscribe()

	logger := env.Logger.WithPrefix("calibration")
	engine := calibration.NewEngine(rx, env.Out, calibration.WithLogger(logger))
	engine.SetReverse(reversed...)

	return p.run(func() error {
		rec, err := engine.Run()
		if err != nil {
			return fmt.Errorf("calibration: %w", err)
		}
		if err := calibration.Save(*out, rec); err != nil {
			return err
		}
		logger.Info("calibration saved", "path", *out)
		fmt.Fprintf(env.Out, "saved to %s\n", *out)
		return nil
	})
}

// checkAbsent fails early so the operator does not calibrate for nothing.
func checkAbsent(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return fmt.Errorf("%w: %s", calibration.ErrRecordExists, path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
