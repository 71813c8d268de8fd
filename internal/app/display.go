// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"github.com/relabs-tech/joystick_link/internal/display"
)

// RunDisplay shows the mixed channels on the OLED.
func RunDisplay(env *Env, args []string) error {
	flags := newFlagSet(env, "display")
	bus := flags.String("bus", env.Config.DisplayI2CBus, "I2C bus of the display")
	if err := flags.Parse(args); err != nil {
		return err
	}

	rec, ok, err := loadRecord(env)
	if !ok || err != nil {
		return err
	}

	dev, closer, err := display.OpenPanel(*bus)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger := env.Logger.WithPrefix("display")
	logger.Info("display initialized")

	p, err := newMixedPipeline(env, rec)
	if err != nil {
		return err
	}
	d := display.New(dev, env.Config.DisplayEvery(), logger)
	rx := p.out.Subscribe()
	return p.run(func() error {
		d.Run(rx)
		return nil
	})
}
