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

// Package link owns the serial connection to the measurement front-end: the
// line transport, the reconnect supervisor and the frame reader loop.
package link

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

const (
	DefaultBaudRate    = 115200
	DefaultDataBits    = 8
	DefaultReadTimeout = time.Second
	DefaultNewline     = "\r\n"
)

// SerialPort is the subset of serial.Port used by the transport.
type SerialPort interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// PortFactory opens a serial port connection.
type PortFactory func(path string, mode *serial.Mode) (SerialPort, error)

// DefaultPortFactory opens real serial ports.
func DefaultPortFactory(path string, mode *serial.Mode) (SerialPort, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Settings are the connection parameters of a Transport.
type Settings struct {
	Port        string
	Newline     string
	Parity      serial.Parity
	StopBits    serial.StopBits
	BaudRate    int
	DataBits    int
	ReadTimeout time.Duration
}

// DefaultSettings returns 115200 8N1 with a one second read timeout.
func DefaultSettings(port string) Settings {
	return Settings{
		Port:        port,
		BaudRate:    DefaultBaudRate,
		Parity:      serial.NoParity,
		DataBits:    DefaultDataBits,
		StopBits:    serial.OneStopBit,
		ReadTimeout: DefaultReadTimeout,
		Newline:     DefaultNewline,
	}
}

func (s *Settings) withDefaults() Settings {
	out := *s
	if out.BaudRate <= 0 {
		out.BaudRate = DefaultBaudRate
	}
	if out.DataBits <= 0 {
		out.DataBits = DefaultDataBits
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = DefaultReadTimeout
	}
	if out.Newline == "" {
		out.Newline = DefaultNewline
	}
	return out
}

func (s *Settings) mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
		Parity:   s.Parity,
		StopBits: s.StopBits,
	}
}

// ParseParity maps "none", "odd", "even", "mark" and "space" (or their first
// letter) to a serial.Parity.
func ParseParity(s string) (serial.Parity, error) {
	switch s {
	case "", "none", "N", "n":
		return serial.NoParity, nil
	case "odd", "O", "o":
		return serial.OddParity, nil
	case "even", "E", "e":
		return serial.EvenParity, nil
	case "mark", "M", "m":
		return serial.MarkParity, nil
	case "space", "S", "s":
		return serial.SpaceParity, nil
	default:
		return serial.NoParity, fmt.Errorf("invalid parity: %q", s)
	}
}

// ParseStopBits maps 1, 1.5 and 2 to serial.StopBits.
func ParseStopBits(f float64) (serial.StopBits, error) {
	switch f {
	case 0, 1:
		return serial.OneStopBit, nil
	case 1.5:
		return serial.OnePointFiveStopBits, nil
	case 2:
		return serial.TwoStopBits, nil
	default:
		return serial.OneStopBit, fmt.Errorf("invalid stop bits: %v", f)
	}
}
