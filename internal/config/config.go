// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultPath is the configuration file read when no --config flag is given.
const DefaultPath = "joystick_link.conf"

// Sample sources.
const (
	SourceADC    = "adc"
	SourceJoydev = "joydev"
	SourceFake   = "fake"
)

// ADC chips.
const (
	ChipADS1015 = "ads1015"
	ChipADS1115 = "ads1115"
)

// Config holds all application configuration values.
type Config struct {
	// Sample source
	Source string

	// ADC hardware
	ADCChip          string
	ADCI2CBus        string // periph bus name, "" = first bus
	ADCI2CAddr       uint16
	ADCSampleRate    int // samples per second, must be a rate the chip supports
	ADCMaxMillivolts int // full-scale range: 6144, 4096, 2048, 1024, 512 or 256

	// Linux joystick device
	JoydevDevice string
	JoydevAxes   [4]uint8 // js axis number feeding each raw slot

	// Fake source
	FakeSampleRate int

	// Streams
	StreamDepth int

	// Calibration
	CalibrationFile string

	// CRSF transmitter
	CRSFSerialPort   string
	CRSFBaudRate     int
	CRSFTickInterval int // milliseconds

	// HID gamepad
	HIDDevice string

	// MQTT telemetry, disabled when MQTTBroker is empty
	MQTTBroker        string
	MQTTClientID      string
	TopicMixerOut     string
	TopicADCRaw       string
	TelemetryInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds

	// Logging
	LogLevel string
}

// Default returns a configuration usable without any file.
func Default() *Config {
	return &Config{
		Source:                SourceADC,
		ADCChip:               ChipADS1015,
		ADCI2CBus:             "",
		ADCI2CAddr:            0x48,
		ADCSampleRate:         3300,
		ADCMaxMillivolts:      4096,
		JoydevDevice:          "/dev/input/js0",
		JoydevAxes:            [4]uint8{0, 1, 3, 4},
		FakeSampleRate:        100,
		StreamDepth:           64,
		CalibrationFile:       "joystick.yaml",
		CRSFSerialPort:        "/dev/ttyUSB0",
		CRSFBaudRate:          115200,
		CRSFTickInterval:      10,
		HIDDevice:             "/dev/hidg0",
		MQTTBroker:            "",
		MQTTClientID:          "joystick-link",
		TopicMixerOut:         "joystick/mixer_out",
		TopicADCRaw:           "joystick/adc_raw",
		TelemetryInterval:     100,
		WebServerPort:         8080,
		DisplayI2CBus:         "",
		DisplayUpdateInterval: 200,
		LogLevel:              "info",
	}
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file on top of Default().
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines from r on top of Default(). Blank lines and
// lines starting with # are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func atoi(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func positive(key, value string) (int, error) {
	n, err := atoi(key, value)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	case "SOURCE":
		c.Source = strings.ToLower(value)

	// ADC hardware
	case "ADC_CHIP":
		c.ADCChip = strings.ToLower(value)
	case "ADC_I2C_BUS":
		c.ADCI2CBus = value
	case "ADC_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid ADC_I2C_ADDR %q: %w", value, perr)
		}
		c.ADCI2CAddr = uint16(addr)
	case "ADC_SAMPLE_RATE":
		c.ADCSampleRate, err = positive(key, value)
	case "ADC_MAX_MILLIVOLTS":
		c.ADCMaxMillivolts, err = positive(key, value)

	// Linux joystick device
	case "JOYDEV_DEVICE":
		c.JoydevDevice = value
	case "JOYDEV_AXES":
		fields := strings.Split(value, ",")
		if len(fields) != len(c.JoydevAxes) {
			return fmt.Errorf("JOYDEV_AXES needs %d comma separated axis numbers, got %q", len(c.JoydevAxes), value)
		}
		for i, f := range fields {
			n, perr := strconv.ParseUint(strings.TrimSpace(f), 10, 8)
			if perr != nil {
				return fmt.Errorf("invalid JOYDEV_AXES entry %q: %w", f, perr)
			}
			c.JoydevAxes[i] = uint8(n)
		}

	case "FAKE_SAMPLE_RATE":
		c.FakeSampleRate, err = positive(key, value)
	case "STREAM_DEPTH":
		c.StreamDepth, err = positive(key, value)
	case "CALIBRATION_FILE":
		c.CalibrationFile = value

	// CRSF transmitter
	case "CRSF_SERIAL_PORT":
		c.CRSFSerialPort = value
	case "CRSF_BAUD_RATE":
		c.CRSFBaudRate, err = positive(key, value)
	case "CRSF_TICK_INTERVAL":
		c.CRSFTickInterval, err = positive(key, value)

	case "HID_DEVICE":
		c.HIDDevice = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_MIXER_OUT":
		c.TopicMixerOut = value
	case "TOPIC_ADC_RAW":
		c.TopicADCRaw = value
	case "TELEMETRY_INTERVAL":
		c.TelemetryInterval, err = positive(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = atoi(key, value)

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = positive(key, value)

	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

var (
	ads1015Rates = []int{128, 250, 490, 920, 1600, 2400, 3300}
	ads1115Rates = []int{8, 16, 32, 64, 128, 250, 475, 860}
	fullScales   = []int{6144, 4096, 2048, 1024, 512, 256}
)

// SampleRates returns the data rates supported by chip.
func SampleRates(chip string) []int {
	switch chip {
	case ChipADS1015:
		return ads1015Rates
	case ChipADS1115:
		return ads1115Rates
	}
	return nil
}

// FullScales returns the supported full-scale ranges in millivolts.
func FullScales() []int { return fullScales }

// Validate re-checks c after command-line overrides.
func (c *Config) Validate() error { return c.validate() }

// validate checks cross-field constraints.
func (c *Config) validate() error {
	switch c.Source {
	case SourceADC, SourceJoydev, SourceFake:
	default:
		return fmt.Errorf("SOURCE must be %s, %s or %s, got %q", SourceADC, SourceJoydev, SourceFake, c.Source)
	}
	rates := SampleRates(c.ADCChip)
	if rates == nil {
		return fmt.Errorf("ADC_CHIP must be %s or %s, got %q", ChipADS1015, ChipADS1115, c.ADCChip)
	}
	if !slices.Contains(rates, c.ADCSampleRate) {
		return fmt.Errorf("ADC_SAMPLE_RATE %d not supported by %s (want one of %v)", c.ADCSampleRate, c.ADCChip, rates)
	}
	if !slices.Contains(fullScales, c.ADCMaxMillivolts) {
		return fmt.Errorf("ADC_MAX_MILLIVOLTS must be one of %v, got %d", fullScales, c.ADCMaxMillivolts)
	}
	if c.CalibrationFile == "" {
		return errors.New("CALIBRATION_FILE is required")
	}
	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT out of range: %d", c.WebServerPort)
	}
	if c.MQTTBroker != "" && c.MQTTClientID == "" {
		return errors.New("MQTT_CLIENT_ID is required when MQTT_BROKER is set")
	}
	return nil
}

// CRSFTick returns CRSFTickInterval as a duration.
func (c *Config) CRSFTick() time.Duration {
	return time.Duration(c.CRSFTickInterval) * time.Millisecond
}

// TelemetryEvery returns TelemetryInterval as a duration.
func (c *Config) TelemetryEvery() time.Duration {
	return time.Duration(c.TelemetryInterval) * time.Millisecond
}

// DisplayEvery returns DisplayUpdateInterval as a duration.
func (c *Config) DisplayEvery() time.Duration {
	return time.Duration(c.DisplayUpdateInterval) * time.Millisecond
}

// InitGlobal initializes the global configuration. An empty path uses
// Default() without reading a file. Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		if configPath == "" {
			globalConfig = Default()
			return
		}
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
