// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"

	"github.com/relabs-tech/joystick_link/internal/crsf"
	"github.com/relabs-tech/joystick_link/internal/telemetry"
)

// RunElrsTx streams the mixed channels to a CRSF transmitter module on
// DEVICE, mirroring them to MQTT when a broker is configured.
func RunElrsTx(env *Env, args []string) error {
	cfg := env.Config
	flags := newFlagSet(env, "elrs_tx")
	baud := flags.UintP("baudrate", "b", uint(cfg.CRSFBaudRate), "serial baud rate")
	if err := flags.Parse(args); err != nil {
		return err
	}
	device := cfg.CRSFSerialPort
	switch flags.NArg() {
	case 0:
	case 1:
		device = flags.Arg(0)
	default:
		return fmt.Errorf("elrs_tx: expected one DEVICE, got %v", flags.Args())
	}

	rec, ok, err := loadRecord(env)
	if !ok || err != nil {
		return err
	}

	port, err := crsf.OpenSerial(device, *baud)
	if err != nil {
		return err
	}
	defer port.Close()
	logger := env.Logger.WithPrefix("crsf")
	logger.Info("serial port open", "device", device, "baud", *baud)

	p, err := newMixedPipeline(env, rec)
	if err != nil {
		return err
	}
	tx := crsf.NewTransmitter(port, p.out.Subscribe(), cfg.CRSFTick(), logger)
	components := []func() error{tx.Run}

	if cfg.MQTTBroker != "" {
		pub, err := telemetry.Connect(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			return err
		}
		defer pub.Close()
		tlog := env.Logger.WithPrefix("telemetry")
		tlog.Info("connected to MQTT broker", "broker", cfg.MQTTBroker)

		reporter := telemetry.NewReporter(pub, cfg.TopicMixerOut, cfg.TopicADCRaw, cfg.TelemetryEvery(), tlog)
		nrx, rrx := p.out.Subscribe(), p.raw.Subscribe()
		components = append(components, reporterComponent(reporter, nrx, rrx))
	}

	if err := tx.Handshake(); err != nil {
		return err
	}
	return p.run(components...)
}

// reporterComponent runs r as a pipeline component that never finishes, so
// a broker outage cannot end the command.
func reporterComponent(r *telemetry.Reporter, nrx telemetry.NormalizedReceiver, rrx telemetry.RawReceiver) func() error {
	return func() error {
		r.Run(nrx, rrx)
		return nil
	}
}
