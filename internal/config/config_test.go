// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 115200, cfg.CRSFBaudRate)
	assert.Equal(t, 10*time.Millisecond, cfg.CRSFTick())
	assert.Equal(t, "/dev/hidg0", cfg.HIDDevice)
}

func TestParseOverridesDefaults(t *testing.T) {
	in := `
# bench setup
SOURCE = fake
ADC_CHIP=ADS1115
ADC_I2C_ADDR=0x49
ADC_SAMPLE_RATE=860
JOYDEV_AXES=2, 3, 0, 1
CRSF_SERIAL_PORT=/dev/ttyAMA0
CRSF_BAUD_RATE=420000
MQTT_BROKER=tcp://localhost:1883
TELEMETRY_INTERVAL=250
LOG_LEVEL=DEBUG
`
	cfg, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, SourceFake, cfg.Source)
	assert.Equal(t, ChipADS1115, cfg.ADCChip)
	assert.Equal(t, uint16(0x49), cfg.ADCI2CAddr)
	assert.Equal(t, 860, cfg.ADCSampleRate)
	assert.Equal(t, [4]uint8{2, 3, 0, 1}, cfg.JoydevAxes)
	assert.Equal(t, "/dev/ttyAMA0", cfg.CRSFSerialPort)
	assert.Equal(t, 420000, cfg.CRSFBaudRate)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, 250*time.Millisecond, cfg.TelemetryEvery())
	assert.Equal(t, "debug", cfg.LogLevel)
	// untouched keys keep their defaults
	assert.Equal(t, 4096, cfg.ADCMaxMillivolts)
	assert.Equal(t, "joystick.yaml", cfg.CalibrationFile)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unknown key", "NOPE=1", "unknown config key"},
		{"missing equals", "SOURCE", "invalid config line 1"},
		{"bad number", "CRSF_BAUD_RATE=fast", "invalid CRSF_BAUD_RATE"},
		{"not positive", "STREAM_DEPTH=0", "must be positive"},
		{"bad source", "SOURCE=usb", "SOURCE must be"},
		{"rate not for chip", "ADC_SAMPLE_RATE=860", "not supported by ads1015"},
		{"bad full scale", "ADC_MAX_MILLIVOLTS=5000", "ADC_MAX_MILLIVOLTS"},
		{"short axis list", "JOYDEV_AXES=0,1", "JOYDEV_AXES needs 4"},
		{"axis overflow", "JOYDEV_AXES=0,1,2,300", "invalid JOYDEV_AXES"},
		{"line number", "SOURCE=fake\n\nWEB_SERVER_PORT=x", "config line 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte("HID_DEVICE=/dev/hidg1\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/hidg1", cfg.HIDDevice)

	_, err = Load(filepath.Join(t.TempDir(), "missing.conf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
