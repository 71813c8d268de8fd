// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"github.com/relabs-tech/joystick_link/internal/gamepad"
)

// RunGamepad writes a HID report for every mixed sample.
func RunGamepad(env *Env, args []string) error {
	flags := newFlagSet(env, "gamepad")
	device := flags.String("device", env.Config.HIDDevice, "HID gadget device")
	if err := flags.Parse(args); err != nil {
		return err
	}

	rec, ok, err := loadRecord(env)
	if !ok || err != nil {
		return err
	}

	f, err := gamepad.Open(*device)
	if err != nil {
		return err
	}
	defer f.Close()

	p, err := newMixedPipeline(env, rec)
	if err != nil {
		return err
	}
	sink := gamepad.NewSink(f, env.Logger.WithPrefix("gamepad"))
	rx := p.out.Subscribe()
	return p.run(func() error { return sink.Run(rx) })
}
