// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package crsf

// crcPoly is the CRC-8/DVB-S2 generator used by every CRSF frame.
const crcPoly = 0xD5

var crcTable = makeCRCTable(crcPoly)

func makeCRCTable(poly byte) [256]byte {
	var table [256]byte
	for i := range table {
		crc := byte(i)
		for range 8 {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}

// CRC8 returns the CRC-8/DVB-S2 of data (init 0, no reflection, no xorout).
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc = crcTable[crc^b]
	}
	return crc
}
