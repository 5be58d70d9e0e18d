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

package config

import "time"

const (
	DefaultBaudRate      = 115200
	DefaultDataBits      = 8
	DefaultReadTimeoutMs = 1000
	DefaultSimulateRate  = 50
)

type Serial struct {
	Port           string  `toml:"port,omitempty"`
	Parity         string  `toml:"parity,omitempty"`
	BaudRate       int     `toml:"baud_rate,omitempty"`
	DataBits       int     `toml:"data_bits,omitempty"`
	StopBits       float64 `toml:"stop_bits,omitempty"`
	ReadTimeoutMs  int     `toml:"read_timeout_ms,omitempty"`
	ChunkSize      int     `toml:"chunk_size,omitempty"`
	SimulateRateHz int     `toml:"simulate_rate_hz,omitempty"`
	Simulate       bool    `toml:"simulate"`
}

// Serial returns a copy of the serial link settings.
func (c *Instance) Serial() Serial {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial
}

// SerialPort returns the configured device path, or an empty string to use
// the platform default.
func (c *Instance) SerialPort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial.Port
}

func (c *Instance) SetSerialPort(port string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Serial.Port = port
}

func (c *Instance) ReadTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Serial.ReadTimeoutMs <= 0 {
		return DefaultReadTimeoutMs * time.Millisecond
	}
	return time.Duration(c.vals.Serial.ReadTimeoutMs) * time.Millisecond
}

func (c *Instance) Simulate() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial.Simulate
}

func (c *Instance) SetSimulate(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Serial.Simulate = enabled
}

func (c *Instance) SimulateRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Serial.SimulateRateHz <= 0 {
		return DefaultSimulateRate
	}
	return c.vals.Serial.SimulateRateHz
}
