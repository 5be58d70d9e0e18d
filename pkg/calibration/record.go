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

// Package calibration converts raw ADC counts into engineering units using
// per-channel calibration data, and runs the zero/span capture procedure.
package calibration

import (
	"context"
	"errors"
)

// Column names of the calibration table, also accepted as sparse update keys.
const (
	FieldDecimalPoint = "decimal_point"
	FieldResolution   = "resolution"
	FieldMaxCapacity  = "max_capacity"
	FieldCalCapacity  = "cal_capacity"
	FieldCalZero      = "cal_zero"
	FieldCalSpan      = "cal_span"
)

// Fields lists every updatable calibration column.
var Fields = []string{
	FieldDecimalPoint,
	FieldResolution,
	FieldMaxCapacity,
	FieldCalCapacity,
	FieldCalZero,
	FieldCalSpan,
}

var ErrUnknownChannel = errors.New("unknown channel")

// Record is the persisted calibration of one channel.
type Record struct {
	Channel      string  `json:"channel" csv:"channel"`
	DecimalPoint int     `json:"decimal_point" csv:"decimal_point"`
	Resolution   float64 `json:"resolution" csv:"resolution"`
	MaxCapacity  float64 `json:"max_capacity" csv:"max_capacity"`
	CalCapacity  float64 `json:"cal_capacity" csv:"cal_capacity"`
	CalZero      float64 `json:"cal_zero" csv:"cal_zero"`
	CalSpan      float64 `json:"cal_span" csv:"cal_span"`
}

// DefaultRecord is used for channels that were never calibrated:
// a unity mapping over a 0-100 span.
func DefaultRecord(channel string) Record {
	return Record{
		Channel:      channel,
		DecimalPoint: 0,
		Resolution:   1,
		MaxCapacity:  100,
		CalCapacity:  100,
		CalZero:      0,
		CalSpan:      100,
	}
}

// Store persists calibration records. Unknown keys passed to
// UpdateCalibration are ignored.
type Store interface {
	FetchCalibration(ctx context.Context, channel string) (Record, error)
	UpdateCalibration(ctx context.Context, channel string, fields map[string]any) error
}
