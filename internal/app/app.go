// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package app wires sources, the mixer and sinks into the commands of the
// joystick_link tool.
package app

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/relabs-tech/joystick_link/internal/config"
)

// ErrUnknownCommand is returned by Dispatch for a name not in the table.
var ErrUnknownCommand = errors.New("unknown command")

// Env is what every command runs against.
type Env struct {
	Config *config.Config
	Logger *log.Logger
	Out    io.Writer // operator-facing output
}

// Command is one entry of the command table.
type Command struct {
	Name    string
	Summary string
	Run     func(env *Env, args []string) error
}

// Commands returns the command table.
func Commands() map[string]Command {
	cmds := map[string]Command{}
	add := func(c Command) { cmds[c.Name] = c }

	add(Command{"calibrate", "guided joystick calibration, writes the record file", RunCalibrate})
	add(Command{"elrs_tx", "send channels to an ExpressLRS transmitter over CRSF", RunElrsTx})
	add(Command{"gamepad", "expose the sticks as a USB HID gamepad", RunGamepad})
	add(Command{"joysticks_test", "print the mixed channel values", RunJoysticksTest})
	add(Command{"web", "serve a live channel monitor over HTTP", RunWeb})
	add(Command{"display", "draw the channels on the SSD1306 OLED", RunDisplay})
	add(Command{"mqtt_monitor", "print channels published to MQTT by another instance", RunMQTTMonitor})
	add(Command{"help", "list commands", func(env *Env, _ []string) error {
		printHelp(env.Out, cmds)
		return nil
	}})
	return cmds
}

func printHelp(w io.Writer, cmds map[string]Command) {
	fmt.Fprintln(w, "usage: joystick_link [--config FILE] [--log-level LEVEL] COMMAND [ARGS]")
	fmt.Fprintln(w, "commands:")
	for _, name := range slices.Sorted(maps.Keys(cmds)) {
		fmt.Fprintf(w, "  %-16s %s\n", name, cmds[name].Summary)
	}
}

// Dispatch runs the command named by argv[0] with the remaining arguments.
func Dispatch(cmds map[string]Command, env *Env, argv []string) error {
	if len(argv) == 0 {
		printHelp(env.Out, cmds)
		return fmt.Errorf("%w: none given", ErrUnknownCommand)
	}
	cmd, ok := cmds[argv[0]]
	if !ok {
		printHelp(env.Out, cmds)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, argv[0])
	}
	env.Logger.Debug("dispatch", "command", cmd.Name, "args", argv[1:])
	return cmd.Run(env, argv[1:])
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(env *Env, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(env.Out)
	return fs
}
