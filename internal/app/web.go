// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"

	"github.com/relabs-tech/joystick_link/internal/web"
)

// RunWeb serves the live channel monitor.
func RunWeb(env *Env, args []string) error {
	flags := newFlagSet(env, "web")
	port := flags.IntP("port", "p", env.Config.WebServerPort, "HTTP port")
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
	srv := web.NewServer(env.Config.TelemetryEvery(), env.Logger.WithPrefix("web"))
	srv.SetRecord(rec)
	rx, rawRx := p.out.Subscribe(), p.raw.Subscribe()

	addr := fmt.Sprintf(":%d", *port)
	return p.run(
		func() error {
			srv.Track(rx)
			return nil
		},
		func() error {
			srv.TrackRaw(rawRx)
			return nil
		},
		func() error { return srv.ListenAndServe(addr) },
	)
}
