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

// Package samples defines the decoded sample set produced for every frame
// and the ordered subscriber registry that fans it out to consumers.
package samples

import (
	"time"
)

// Channel identifiers as stored in the calibration table.
const (
	Ch1 = "ch1" // load cell
	Ch2 = "ch2" // extensometer
	Ch3 = "ch3" // displacement encoder
)

// Channels lists the channel identifiers in wire order.
var Channels = []string{Ch1, Ch2, Ch3}

// Frame is one decoded sample set. It is passed by value to every subscriber
// and never modified after publication.
type Frame struct {
	Time     time.Time `json:"time"`
	RawCh1   int16     `json:"ch1_adc"`
	RawCh2   int16     `json:"ch2_adc"`
	RawCh3   int16     `json:"ch3_adc"`
	ValueCh1 float64   `json:"ch1"`
	ValueCh2 float64   `json:"ch2"`
	ValueCh3 float64   `json:"ch3"`
}

// Raw returns the raw ADC count of the given channel.
func (f Frame) Raw(channel string) (int16, bool) {
	switch channel {
	case Ch1:
		return f.RawCh1, true
	case Ch2:
		return f.RawCh2, true
	case Ch3:
		return f.RawCh3, true
	default:
		return 0, false
	}
}

// Value returns the engineering-unit value of the given channel.
func (f Frame) Value(channel string) (float64, bool) {
	switch channel {
	case Ch1:
		return f.ValueCh1, true
	case Ch2:
		return f.ValueCh2, true
	case Ch3:
		return f.ValueCh3, true
	default:
		return 0, false
	}
}
