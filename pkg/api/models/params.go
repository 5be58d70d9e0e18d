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

package models

import "github.com/ZaparooProject/tensile-core/pkg/calibration"

// UpdateCalibrationParams is a sparse calibration edit. Unset fields are
// left as stored.
type UpdateCalibrationParams struct {
	DecimalPoint *int     `json:"decimal_point" validate:"omitempty,gte=0,lte=6"`
	Resolution   *float64 `json:"resolution" validate:"omitempty,gt=0"`
	MaxCapacity  *float64 `json:"max_capacity" validate:"omitempty,gt=0"`
	CalCapacity  *float64 `json:"cal_capacity" validate:"omitempty,gt=0"`
	CalZero      *float64 `json:"cal_zero"`
	CalSpan      *float64 `json:"cal_span"`
}

// Fields returns the set fields keyed by calibration column name.
func (p *UpdateCalibrationParams) Fields() map[string]any {
	fields := make(map[string]any)
	if p.DecimalPoint != nil {
		fields[calibration.FieldDecimalPoint] = *p.DecimalPoint
	}
	if p.Resolution != nil {
		fields[calibration.FieldResolution] = *p.Resolution
	}
	if p.MaxCapacity != nil {
		fields[calibration.FieldMaxCapacity] = *p.MaxCapacity
	}
	if p.CalCapacity != nil {
		fields[calibration.FieldCalCapacity] = *p.CalCapacity
	}
	if p.CalZero != nil {
		fields[calibration.FieldCalZero] = *p.CalZero
	}
	if p.CalSpan != nil {
		fields[calibration.FieldCalSpan] = *p.CalSpan
	}
	return fields
}

type CalibrateParams struct {
	Process string `json:"process" validate:"required,oneof=zero span"`
	Seconds int    `json:"seconds" validate:"omitempty,min=1,max=120"`
}

type LinkWriteParams struct {
	Terminate  *bool  `json:"terminate"`
	Payload    string `json:"payload" validate:"required,max=256"`
	ReplyBytes int    `json:"replyBytes" validate:"min=0,max=256"`
}

type LinkConnectParams struct {
	Port string `json:"port" validate:"omitempty,devicepath"`
}

type GPIOParams struct {
	Level string `json:"level" validate:"required,oneof=high low"`
}

type UpdateSettingsParams struct {
	DebugLogging       *bool `json:"debugLogging"`
	CalibrationSeconds *int  `json:"calibrationSeconds" validate:"omitempty,min=1,max=120"`
}
