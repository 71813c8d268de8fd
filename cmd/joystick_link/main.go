// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/relabs-tech/joystick_link/internal/app"
	"github.com/relabs-tech/joystick_link/internal/config"
)

func main() {
	flags := pflag.NewFlagSet("joystick_link", pflag.ExitOnError)
	// Everything after the command name belongs to the command.
	flags.SetInterspersed(false)
	configPath := flags.String("config", config.DefaultPath, "configuration file, empty for built-in defaults")
	logLevel := flags.String("log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	_ = flags.Parse(os.Args[1:])

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "joystick_link",
	})

	path := *configPath
	if path == config.DefaultPath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	if err := config.InitGlobal(path); err != nil {
		logger.Fatal("failed to load config", "err", err)
	}
	cfg := config.Get()

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		logger.Fatal("bad log level", "level", level, "err", err)
	}
	logger.SetLevel(lvl)
	logger.Debug("configuration loaded", "path", path, "source", cfg.Source)

	env := &app.Env{Config: cfg, Logger: logger, Out: os.Stdout}
	if err := app.Dispatch(app.Commands(), env, flags.Args()); err != nil {
		logger.Fatal("fatal", "err", err)
	}
}
