// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/joystick_link/internal/calibration"
	"github.com/relabs-tech/joystick_link/internal/config"
	"github.com/relabs-tech/joystick_link/internal/crsf"
	"github.com/relabs-tech/joystick_link/internal/joystick"
	"github.com/relabs-tech/joystick_link/internal/stream"
	"github.com/relabs-tech/joystick_link/internal/telemetry"
)

func testEnv(t *testing.T) (*Env, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Source = config.SourceFake
	cfg.CalibrationFile = filepath.Join(t.TempDir(), "joystick.yaml")
	var out bytes.Buffer
	return &Env{Config: cfg, Logger: log.New(io.Discard), Out: &out}, &out
}

func validRecord() joystick.CalibrationRecord {
	infos := make([]joystick.ChannelInfo, joystick.NumChannels)
	for i, c := range joystick.Channels() {
		infos[i] = joystick.ChannelInfo{Name: c.String(), Index: uint8(i), Min: 100, Max: 1900}
	}
	return joystick.CalibrationRecord{ChannelInfos: infos, ChannelIndexes: []uint8{0, 1, 2, 3}}
}

func TestHelpListsCommandsSorted(t *testing.T) {
	env, out := testEnv(t)
	require.NoError(t, Dispatch(Commands(), env, []string{"help"}))

	text := out.String()
	names := []string{"calibrate", "display", "elrs_tx", "gamepad", "help", "joysticks_test", "mqtt_monitor", "web"}
	last := -1
	for _, n := range names {
		i := strings.Index(text, "  "+n+" ")
		require.GreaterOrEqual(t, i, 0, n)
		assert.Greater(t, i, last, "%s out of order", n)
		last = i
	}
}

func TestDispatchUnknown(t *testing.T) {
	env, out := testEnv(t)
	err := Dispatch(Commands(), env, []string{"fly"})
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Contains(t, out.String(), "usage:")

	assert.ErrorIs(t, Dispatch(Commands(), env, nil), ErrUnknownCommand)
}

func TestDispatchPassesArgs(t *testing.T) {
	env, _ := testEnv(t)
	var got []string
	cmds := map[string]Command{"echo": {Name: "echo", Run: func(_ *Env, args []string) error {
		got = args
		return nil
	}}}
	require.NoError(t, Dispatch(cmds, env, []string{"echo", "a", "--b"}))
	assert.Equal(t, []string{"a", "--b"}, got)
}

func TestMixerCommandsRequireCalibration(t *testing.T) {
	for _, name := range []string{"elrs_tx", "gamepad", "joysticks_test", "web", "display"} {
		t.Run(name, func(t *testing.T) {
			env, out := testEnv(t)
			require.NoError(t, Dispatch(Commands(), env, []string{name}))
			assert.Equal(t, "please calibrate joysticks first\n", out.String())
		})
	}
}

func TestGamepadMissingDevice(t *testing.T) {
	env, _ := testEnv(t)
	require.NoError(t, calibration.Save(env.Config.CalibrationFile, validRecord()))

	err := Dispatch(Commands(), env, []string{"gamepad", "--device", filepath.Join(t.TempDir(), "nope", "hidg0")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCalibrateRefusesExistingRecord(t *testing.T) {
	env, _ := testEnv(t)
	require.NoError(t, calibration.Save(env.Config.CalibrationFile, validRecord()))

	err := Dispatch(Commands(), env, []string{"calibrate"})
	assert.ErrorIs(t, err, calibration.ErrRecordExists)
}

func TestCalibrateRejectsUnknownReverseChannel(t *testing.T) {
	env, _ := testEnv(t)
	err := Dispatch(Commands(), env, []string{"calibrate", "--reverse", "thrust,yaw"})
	assert.Error(t, err)
	assert.NoFileExists(t, env.Config.CalibrationFile)
}

func TestMQTTMonitorNeedsBroker(t *testing.T) {
	env, _ := testEnv(t)
	err := Dispatch(Commands(), env, []string{"mqtt_monitor"})
	assert.ErrorContains(t, err, "no broker")
}

func TestBadFlag(t *testing.T) {
	env, _ := testEnv(t)
	assert.Error(t, Dispatch(Commands(), env, []string{"elrs_tx", "--bogus"}))
}

func TestPrintChannels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printChannels(&buf, joystick.NormalizedSample{10000, 0, 5000, 2307}))
	assert.Equal(t,
		"Thrust:    10000\n"+
			"Direction:     0\n"+
			"Aileron:    5000\n"+
			"Elevator:   2307\n"+
			"\x1b[4A",
		buf.String())
}

type brokenTerminal struct{ n int }

func (w *brokenTerminal) Write(p []byte) (int, error) {
	w.n++
	if w.n > 2 {
		return 0, errors.New("tty gone")
	}
	return len(p), nil
}

func TestMonitorStopsOnWriteError(t *testing.T) {
	out := stream.New[joystick.NormalizedSample]("mixer_out", 4)
	rx := out.Subscribe()
	out.Publish(joystick.NormalizedSample{1, 2, 3, 4})

	err := monitor(&brokenTerminal{}, rx)
	assert.ErrorContains(t, err, "tty gone")
}

func TestPipelineEndsOnFirstComponent(t *testing.T) {
	env, _ := testEnv(t)
	p, err := newMixedPipeline(env, validRecord())
	require.NoError(t, err)
	rx := p.out.Subscribe()

	seen := 0
	errDone := errors.New("done")
	err = p.run(func() error {
		for seen < 3 {
			v := rx.Recv()
			for _, x := range v {
				assert.LessOrEqual(t, x, uint16(joystick.NormalizedMax))
			}
			seen++
		}
		return errDone
	})
	assert.ErrorIs(t, err, errDone)
	assert.Equal(t, 3, seen)
}

// deadBroker fails every publish.
type deadBroker struct{ attempts atomic.Int64 }

func (b *deadBroker) Publish(string, []byte) error {
	b.attempts.Add(1)
	return errors.New("broker unreachable")
}

// serialPort accepts limit frames, then fails.
type serialPort struct {
	frames atomic.Int64
	limit  int64
}

var errPortUnplugged = errors.New("port unplugged")

func (p *serialPort) Write(b []byte) (int, error) {
	if p.frames.Load() >= p.limit {
		return 0, errPortUnplugged
	}
	p.frames.Add(1)
	return len(b), nil
}

func TestElrsTxSurvivesBrokerOutage(t *testing.T) {
	env, _ := testEnv(t)
	env.Config.FakeSampleRate = 1000
	p, err := newMixedPipeline(env, validRecord())
	require.NoError(t, err)

	port := &serialPort{limit: 20}
	tx := crsf.NewTransmitter(port, p.out.Subscribe(), time.Millisecond, env.Logger)
	broker := &deadBroker{}
	reporter := telemetry.NewReporter(broker, "joystick/mixer_out", "joystick/adc_raw", time.Millisecond, env.Logger)

	err = p.run(tx.Run, reporterComponent(reporter, p.out.Subscribe(), p.raw.Subscribe()))
	assert.ErrorIs(t, err, errPortUnplugged)
	assert.EqualValues(t, 20, port.frames.Load())
	assert.EqualValues(t, 20, tx.Frames())
	assert.Positive(t, broker.attempts.Load(), "reporter kept publishing")
}
