// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"

	"github.com/relabs-tech/joystick_link/internal/joystick"
)

// cursorUp moves back over the lines printChannels wrote.
const cursorUp = "\x1b[4A"

type latestReceiver interface {
	Latest() joystick.NormalizedSample
}

// printChannels writes one line per channel then returns the cursor to the
// first line, so the next call overwrites in place.
func printChannels(w io.Writer, s joystick.NormalizedSample) error {
	for _, c := range joystick.Channels() {
		if _, err := fmt.Fprintf(w, "%-10s%6d\n", c.String()+":", s[c]); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, cursorUp)
	return err
}

// monitor prints the newest sample until the writer fails.
func monitor(w io.Writer, rx latestReceiver) error {
	for {
		if err := printChannels(w, rx.Latest()); err != nil {
			return fmt.Errorf("console: %w", err)
		}
	}
}

// RunJoysticksTest prints the mixed channels to the console.
func RunJoysticksTest(env *Env, args []string) error {
	flags := newFlagSet(env, "joysticks_test")
	if err := flags.Parse(args); err != nil {
		return err
	}

	rec, ok, err := loadRecord(env)
	if !ok || err != nil {
		return err
	}

	p, err := newMixedPipeline(env, rec)
	if err != nil {
		return err
	}
	rx := p.out.Subscribe()
	return p.run(func() error { return monitor(env.Out, rx) })
}
