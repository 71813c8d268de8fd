// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry mirrors the joystick streams to MQTT as JSON and reads
// them back for remote monitoring.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/joystick_link/internal/joystick"
)

// ChannelsMessage is the JSON form of a normalized sample.
type ChannelsMessage struct {
	Thrust    uint16    `json:"thrust"`
	Direction uint16    `json:"direction"`
	Aileron   uint16    `json:"aileron"`
	Elevator  uint16    `json:"elevator"`
	Time      time.Time `json:"time"`
}

// NewChannelsMessage stamps s with t.
func NewChannelsMessage(s joystick.NormalizedSample, t time.Time) ChannelsMessage {
	return ChannelsMessage{
		Thrust:    s.Thrust(),
		Direction: s.Direction(),
		Aileron:   s.Aileron(),
		Elevator:  s.Elevator(),
		Time:      t.UTC(),
	}
}

// RawMessage is the JSON form of a raw sample.
type RawMessage struct {
	Raw  [joystick.NumSlots]int16 `json:"raw"`
	Time time.Time                `json:"time"`
}

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Client is a connected paho client.
type Client struct {
	client mqtt.Client
}

// Connect dials broker and waits for the connection.
func Connect(broker, clientID string) (*Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return &Client{client: client}, nil
}

// Publish sends payload with QoS 0, not retained.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

// SubscribeChannels calls fn with every ChannelsMessage arriving on topic.
// Payloads that do not decode are logged and skipped.
func (c *Client) SubscribeChannels(topic string, logger *log.Logger, fn func(ChannelsMessage)) error {
	token := c.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		m, err := DecodeChannels(msg.Payload())
		if err != nil {
			logger.Warn("bad channels payload", "topic", msg.Topic(), "err", err)
			return
		}
		fn(m)
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Close disconnects, allowing 250ms for in-flight messages.
func (c *Client) Close() {
	c.client.Disconnect(250)
}

// DecodeChannels parses a payload published on the mixer topic. Values
// above the normalized range are rejected.
func DecodeChannels(payload []byte) (ChannelsMessage, error) {
	var m ChannelsMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return m, err
	}
	for _, v := range m.Sample() {
		if v > joystick.NormalizedMax {
			return m, fmt.Errorf("channel value %d out of range", v)
		}
	}
	return m, nil
}

// Sample returns the channel values.
func (m ChannelsMessage) Sample() joystick.NormalizedSample {
	return joystick.NormalizedSample{m.Thrust, m.Direction, m.Aileron, m.Elevator}
}

// NormalizedReceiver yields the newest normalized sample if one is queued.
type NormalizedReceiver interface {
	TryLatest() (joystick.NormalizedSample, bool)
}

// RawReceiver yields the newest raw sample if one is queued.
type RawReceiver interface {
	TryLatest() (joystick.RawSample, bool)
}

// Reporter samples the streams on a fixed period and publishes what changed
// since the previous period.
type Reporter struct {
	pub        Publisher
	mixerTopic string
	rawTopic   string
	interval   time.Duration
	logger     *log.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// NewReporter creates a reporter. An empty topic disables that stream.
func NewReporter(pub Publisher, mixerTopic, rawTopic string, interval time.Duration, logger *log.Logger) *Reporter {
	return &Reporter{
		pub:        pub,
		mixerTopic: mixerTopic,
		rawTopic:   rawTopic,
		interval:   interval,
		logger:     logger,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

func (r *Reporter) publishJSON(topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := r.pub.Publish(topic, b); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Tick publishes the newest queued value of each stream, if any. raw may
// be nil. Errors from both topics are joined.
func (r *Reporter) Tick(normalized NormalizedReceiver, raw RawReceiver) error {
	t := r.now()
	var errs []error
	if s, ok := normalized.TryLatest(); ok && r.mixerTopic != "" {
		errs = append(errs, r.publishJSON(r.mixerTopic, NewChannelsMessage(s, t)))
	}
	if raw != nil && r.rawTopic != "" {
		if s, ok := raw.TryLatest(); ok {
			errs = append(errs, r.publishJSON(r.rawTopic, RawMessage{Raw: s, Time: t.UTC()}))
		}
	}
	return errors.Join(errs...)
}

// Run calls Tick every interval and never returns. Publish errors are
// logged when publishing starts failing and again when it recovers.
func (r *Reporter) Run(normalized NormalizedReceiver, raw RawReceiver) {
	r.logger.Info("telemetry started", "mixer_topic", r.mixerTopic, "raw_topic", r.rawTopic, "interval", r.interval)
	failing := false
	for {
		r.sleep(r.interval)
		err := r.Tick(normalized, raw)
		switch {
		case err != nil && !failing:
			r.logger.Error("telemetry publish failed", "err", err)
		case err != nil:
			r.logger.Debug("telemetry publish failed", "err", err)
		case failing:
			r.logger.Info("telemetry publishing again")
		}
		failing = err != nil
	}
}
