// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/relabs-tech/joystick_link/internal/telemetry"
)

// RunMQTTMonitor prints the channels another joystick_link publishes to
// MQTT, until interrupted.
func RunMQTTMonitor(env *Env, args []string) error {
	cfg := env.Config
	flags := newFlagSet(env, "mqtt_monitor")
	broker := flags.String("broker", cfg.MQTTBroker, "MQTT broker URL, e.g. tcp://localhost:1883")
	topic := flags.String("topic", cfg.TopicMixerOut, "channels topic")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *broker == "" {
		return errors.New("mqtt_monitor: no broker, set MQTT_BROKER or --broker")
	}

	logger := env.Logger.WithPrefix("mqtt")
	client, err := telemetry.Connect(*broker, cfg.MQTTClientID+"-monitor")
	if err != nil {
		return err
	}
	defer client.Close()
	logger.Info("connected to MQTT broker", "broker", *broker)

	var mu sync.Mutex
	var printErr error
	err = client.SubscribeChannels(*topic, logger, func(m telemetry.ChannelsMessage) {
		mu.Lock()
		defer mu.Unlock()
		if err := printChannels(env.Out, m.Sample()); err != nil && printErr == nil {
			printErr = err
			logger.Error("console write failed", "err", err)
		}
	})
	if err != nil {
		return err
	}
	logger.Info("subscribed", "topic", *topic)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	mu.Lock()
	defer mu.Unlock()
	return printErr
}
