// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/joystick_link/internal/config"
	"github.com/relabs-tech/joystick_link/internal/joystick"
	"github.com/relabs-tech/joystick_link/internal/stream"
)

// ADS1x15 register pointers.
const (
	regConversion = 0x00
	regConfig     = 0x01
)

// ADS1x15 config register fields.
const (
	cfgStartSingle  = 0x8000 // OS: begin a single conversion
	cfgMuxSingleA0  = 0x4    // MUX for AIN0 vs GND, +1 per input
	cfgModeSingle   = 0x0100 // power down after each conversion
	cfgCompDisabled = 0x0003
)

// ADCOptions selects and configures an ADS1015/ADS1115.
type ADCOptions struct {
	Bus          string
	Addr         uint16
	Chip         string
	SampleRate   int
	MaxMillivolt int
}

// ADCSource scans the four single-ended inputs of an ADS1x15 over I2C.
type ADCSource struct {
	bus    i2c.BusCloser
	dev    *i2c.Dev
	logger *log.Logger
	sleep  func(time.Duration)

	shift    uint // ADS1015 results are left-justified 12 bit
	cfgBase  uint16
	convWait time.Duration
}

// NewADCSource initializes periph and opens the ADC on its I2C bus.
func NewADCSource(opts ADCOptions, logger *log.Logger) (*ADCSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(opts.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", opts.Bus, err)
	}
	s, err := newADCSource(bus, opts, logger)
	if err != nil {
		bus.Close()
		return nil, err
	}
	logger.Info("adc ready", "chip", opts.Chip, "addr", fmt.Sprintf("0x%02X", opts.Addr),
		"rate", opts.SampleRate, "full_scale_mv", opts.MaxMillivolt)
	return s, nil
}

func newADCSource(bus i2c.BusCloser, opts ADCOptions, logger *log.Logger) (*ADCSource, error) {
	rates := config.SampleRates(opts.Chip)
	if rates == nil {
		return nil, fmt.Errorf("unsupported adc chip %q", opts.Chip)
	}
	dr := slices.Index(rates, opts.SampleRate)
	if dr < 0 {
		return nil, fmt.Errorf("%s does not support %d samples/s", opts.Chip, opts.SampleRate)
	}
	pga := slices.Index(config.FullScales(), opts.MaxMillivolt)
	if pga < 0 {
		return nil, fmt.Errorf("unsupported full-scale range %d mV", opts.MaxMillivolt)
	}

	var shift uint
	if opts.Chip == config.ChipADS1015 {
		shift = 4
	}
	return &ADCSource{
		bus:      bus,
		dev:      &i2c.Dev{Addr: opts.Addr, Bus: bus},
		logger:   logger,
		sleep:    time.Sleep,
		shift:    shift,
		cfgBase:  cfgStartSingle | uint16(pga)<<9 | cfgModeSingle | uint16(dr)<<5 | cfgCompDisabled,
		convWait: time.Second/time.Duration(opts.SampleRate) + 100*time.Microsecond,
	}, nil
}

// configWord returns the config register value that starts a single-ended
// conversion on input.
func (s *ADCSource) configWord(input int) uint16 {
	return s.cfgBase | uint16(cfgMuxSingleA0+input)<<12
}

func (s *ADCSource) readInput(input int) (int16, error) {
	word := s.configWord(input)
	if err := s.dev.Tx([]byte{regConfig, byte(word >> 8), byte(word)}, nil); err != nil {
		return 0, fmt.Errorf("write config A%d: %w", input, err)
	}
	s.sleep(s.convWait)
	buf := make([]byte, 2)
	if err := s.dev.Tx([]byte{regConversion}, buf); err != nil {
		return 0, fmt.Errorf("read conversion A%d: %w", input, err)
	}
	raw := int16(uint16(buf[0])<<8 | uint16(buf[1]))
	return raw >> s.shift, nil
}

// Scan converts A0..A3 once.
func (s *ADCSource) Scan() (joystick.RawSample, error) {
	var sample joystick.RawSample
	for i := range sample {
		v, err := s.readInput(i)
		if err != nil {
			return joystick.RawSample{}, err
		}
		sample[i] = v
	}
	return sample, nil
}

// Run publishes one sample per scan until the bus fails.
func (s *ADCSource) Run(out *stream.Stream[joystick.RawSample]) error {
	s.logger.Info("adc sampling started", "stream", out.Name())
	for {
		sample, err := s.Scan()
		if err != nil {
			s.logger.Error("adc scan failed", "err", err)
			return fmt.Errorf("adc: %w", err)
		}
		out.Publish(sample)
	}
}

// Close releases the I2C bus.
func (s *ADCSource) Close() error {
	return s.bus.Close()
}
