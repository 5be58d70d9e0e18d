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

import (
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/calibration"
)

type VersionResponse struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
}

type LinkStatus struct {
	State     string `json:"state"`
	Port      string `json:"port"`
	LastError string `json:"lastError,omitempty"`
	Attempts  int64  `json:"attempts"`
	Simulated bool   `json:"simulated"`
}

type ChannelResponse struct {
	Calibration    calibration.Record `json:"calibration"`
	ID             string             `json:"id"`
	Label          string             `json:"label"`
	Formatted      string             `json:"formatted"`
	Value          float64            `json:"value"`
	Tare           float64            `json:"tare"`
	Multiplication float64            `json:"multiplicationFactor"`
	Raw            int16              `json:"raw"`
}

type CaptureStatus struct {
	Active bool `json:"active"`
}

type StatusResponse struct {
	LastSample    *time.Time        `json:"lastSample,omitempty"`
	Version       VersionResponse   `json:"version"`
	Link          LinkStatus        `json:"link"`
	Channels      []ChannelResponse `json:"channels"`
	Frames        int64             `json:"frames"`
	FramingErrors int64             `json:"framingErrors"`
	Capture       CaptureStatus     `json:"capture"`
}

type CalibrationResult struct {
	Channel  string `json:"channel"`
	Process  string `json:"process"`
	Error    string `json:"error,omitempty"`
	Average  int64  `json:"average"`
	Readings int    `json:"readings"`
}

type CalibrationsResponse struct {
	Calibrations []calibration.Record `json:"calibrations"`
}

type LinkWriteResponse struct {
	Reply   *string `json:"reply,omitempty"`
	Written bool    `json:"written"`
}

type GPIOResponse struct {
	Line  string `json:"line"`
	Level string `json:"level"`
}

type GPIOStateResponse struct {
	Lines map[string]string `json:"lines"`
}

type SerialPortsResponse struct {
	Default string   `json:"default"`
	Current string   `json:"current"`
	Ports   []string `json:"ports"`
}

type SettingsResponse struct {
	DeviceID           string `json:"deviceId"`
	SerialPort         string `json:"serialPort"`
	CalibrationSeconds int    `json:"calibrationSeconds"`
	DebugLogging       bool   `json:"debugLogging"`
	Simulate           bool   `json:"simulate"`
}

type LogDownloadResponse struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Size     int    `json:"size"`
}
