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

const DefaultCalibrationSeconds = 5

type Channels struct {
	Labels             map[string]string `toml:"labels,omitempty"`
	CalibrationSeconds int               `toml:"calibration_seconds,omitempty"`
}

// CalibrationDuration is how long a zero or span capture averages readings.
func (c *Instance) CalibrationDuration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Channels.CalibrationSeconds <= 0 {
		return DefaultCalibrationSeconds * time.Second
	}
	return time.Duration(c.vals.Channels.CalibrationSeconds) * time.Second
}

// ChannelLabel returns the display name of a channel, falling back to its id.
func (c *Instance) ChannelLabel(channel string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if label, ok := c.vals.Channels.Labels[channel]; ok && label != "" {
		return label
	}
	return channel
}

func (c *Instance) SetCalibrationSeconds(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Channels.CalibrationSeconds = seconds
}
