// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package crsf encodes stick positions into CRSF (Crossfire / ExpressLRS)
// frames and writes them to a transmitter module over a serial port.
package crsf

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/joystick_link/internal/joystick"
)

// Device addresses.
const (
	AddressFlightController = 0xC8
	AddressRadioTransmitter = 0xEA
	AddressTransmitter      = 0xEE
)

// Frame types.
const (
	FrameTypeRCChannels    = 0x16
	FrameTypeSettingsWrite = 0x2D
)

// RC channel values on the wire (11 bit, 988us..2012us).
const (
	ChannelValueMin = 172
	ChannelValueMid = 992
	ChannelValueMax = 1811
)

const (
	// NumChannels is the number of RC channels in one frame.
	NumChannels = 16
	// RCPayloadLen is the packed size of NumChannels 11-bit values.
	RCPayloadLen = NumChannels * 11 / 8
	// RCFrameLen is address + length + type + payload + crc.
	RCFrameLen = RCPayloadLen + 4
)

var (
	ErrFrameLength = errors.New("crsf: bad frame length")
	ErrFrameType   = errors.New("crsf: unexpected frame type")
	ErrFrameCRC    = errors.New("crsf: crc mismatch")
)

// MagicPacket returns the settings-write command that switches the
// transmitter module into external radio mode.
func MagicPacket() [8]byte {
	b := [8]byte{
		AddressTransmitter,
		6,
		FrameTypeSettingsWrite,
		AddressTransmitter,
		AddressRadioTransmitter,
		0x01,
		0x00,
	}
	b[7] = CRC8(b[2:7])
	return b
}

// ScaleToWire maps a normalized value in [0, NormalizedMax] onto
// [ChannelValueMin, ChannelValueMax].
func ScaleToWire(v uint16) uint16 {
	return uint16(uint32(v)*(ChannelValueMax-ChannelValueMin)/joystick.NormalizedMax + ChannelValueMin)
}

// ChannelsFromSample lays out a mixer sample in wire channel order: aileron,
// elevator, thrust, direction. The remaining channels are held at mid.
func ChannelsFromSample(s joystick.NormalizedSample) [NumChannels]uint16 {
	var ch [NumChannels]uint16
	for i := range ch {
		ch[i] = ChannelValueMid
	}
	ch[0] = ScaleToWire(s.Aileron())
	ch[1] = ScaleToWire(s.Elevator())
	ch[2] = ScaleToWire(s.Thrust())
	ch[3] = ScaleToWire(s.Direction())
	return ch
}

// PackChannels packs 11 bits per channel, least significant bit first, in
// ascending channel order. Values are masked to 11 bits.
func PackChannels(ch [NumChannels]uint16) [RCPayloadLen]byte {
	var out [RCPayloadLen]byte
	var acc uint32
	var bits uint
	n := 0
	for _, v := range ch {
		acc |= uint32(v&0x7FF) << bits
		bits += 11
		for bits >= 8 {
			out[n] = byte(acc)
			n++
			acc >>= 8
			bits -= 8
		}
	}
	return out
}

// UnpackChannels is the inverse of PackChannels.
func UnpackChannels(payload [RCPayloadLen]byte) [NumChannels]uint16 {
	var ch [NumChannels]uint16
	var acc uint32
	var bits uint
	n := 0
	for _, b := range payload {
		acc |= uint32(b) << bits
		bits += 8
		for bits >= 11 && n < NumChannels {
			ch[n] = uint16(acc & 0x7FF)
			n++
			acc >>= 11
			bits -= 11
		}
	}
	return ch
}

// RCChannelsFrame builds a complete RC-channels frame addressed to the
// transmitter module.
func RCChannelsFrame(ch [NumChannels]uint16) [RCFrameLen]byte {
	var f [RCFrameLen]byte
	f[0] = AddressTransmitter
	f[1] = RCFrameLen - 2 // type + payload + crc
	f[2] = FrameTypeRCChannels
	payload := PackChannels(ch)
	copy(f[3:], payload[:])
	f[RCFrameLen-1] = CRC8(f[2 : RCFrameLen-1])
	return f
}

// ParseRCChannelsFrame checks the header and CRC of an RC-channels frame and
// returns its channel values. The address byte is not checked.
func ParseRCChannelsFrame(frame []byte) ([NumChannels]uint16, error) {
	var ch [NumChannels]uint16
	if len(frame) != RCFrameLen || int(frame[1]) != RCFrameLen-2 {
		return ch, fmt.Errorf("%w: %d bytes", ErrFrameLength, len(frame))
	}
	if frame[2] != FrameTypeRCChannels {
		return ch, fmt.Errorf("%w: 0x%02X", ErrFrameType, frame[2])
	}
	if got, want := frame[RCFrameLen-1], CRC8(frame[2:RCFrameLen-1]); got != want {
		return ch, fmt.Errorf("%w: got 0x%02X want 0x%02X", ErrFrameCRC, got, want)
	}
	var payload [RCPayloadLen]byte
	copy(payload[:], frame[3:RCFrameLen-1])
	return UnpackChannels(payload), nil
}
