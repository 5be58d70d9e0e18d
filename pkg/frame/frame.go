// Tensile Core
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Tensile Core.
//
// Tensile Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Tensile Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Tensile Core.  If not, see <http://www.gnu.org/licenses/>.

// Package frame implements the measurement front-end wire protocol.
//
// Every frame is exactly Size bytes on the wire:
//
//	"$$" | ch1 int16 BE | ch2 int16 BE | ch3 int16 BE | "##"
//
// Decode also accepts longer payloads between the markers; bytes after the
// third channel are ignored so newer front-end firmware can append fields.
package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Size is the length of one frame as sent by the front-end.
	Size = len(startMarker) + PayloadSize + len(endMarker)
	// PayloadSize is the number of payload bytes carrying channel readings.
	PayloadSize = 6

	startMarker = "$$"
	endMarker   = "##"
)

var (
	// StartMarker opens every frame.
	StartMarker = []byte(startMarker)
	// EndMarker closes every frame.
	EndMarker = []byte(endMarker)

	// ErrFraming is returned when a chunk is not delimited by the frame markers
	// or carries too few payload bytes.
	ErrFraming = errors.New("frame: framing error")
)

// Raw holds the three signed ADC counts carried by one frame.
type Raw struct {
	Ch1 int16
	Ch2 int16
	Ch3 int16
}

// Decode validates the start and end markers of chunk and extracts the three
// big-endian signed channel readings from the payload.
func Decode(chunk []byte) (Raw, error) {
	if len(chunk) < len(startMarker)+len(endMarker) ||
		!bytes.HasPrefix(chunk, StartMarker) ||
		!bytes.HasSuffix(chunk, EndMarker) {
		return Raw{}, ErrFraming
	}

	payload := chunk[len(startMarker) : len(chunk)-len(endMarker)]
	if len(payload) < PayloadSize {
		return Raw{}, fmt.Errorf("%w: payload has %d bytes, need %d", ErrFraming, len(payload), PayloadSize)
	}

	return Raw{
		Ch1: int16(binary.BigEndian.Uint16(payload[0:2])), //nolint:gosec // two's complement reinterpretation
		Ch2: int16(binary.BigEndian.Uint16(payload[2:4])), //nolint:gosec // two's complement reinterpretation
		Ch3: int16(binary.BigEndian.Uint16(payload[4:6])), //nolint:gosec // two's complement reinterpretation
	}, nil
}

// Encode builds the wire representation of r.
func Encode(r Raw) []byte {
	buf := make([]byte, 0, Size)
	buf = append(buf, startMarker...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(r.Ch1)) //nolint:gosec // two's complement reinterpretation
	buf = binary.BigEndian.AppendUint16(buf, uint16(r.Ch2)) //nolint:gosec // two's complement reinterpretation
	buf = binary.BigEndian.AppendUint16(buf, uint16(r.Ch3)) //nolint:gosec // two's complement reinterpretation
	buf = append(buf, endMarker...)
	return buf
}
