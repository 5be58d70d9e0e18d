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

// Package notifications builds and queues the API event notifications.
package notifications

import (
	"encoding/json"

	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/samples"
	"github.com/rs/zerolog/log"
)

// sendNotification never blocks; a full queue drops the notification.
func sendNotification(ns chan<- models.Notification, method string, payload any) {
	var params json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("failed to marshal notification")
			return
		}
		params = data
	}

	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification queue full, dropping notification")
	}
}

func LinkStateChanged(ns chan<- models.Notification, payload models.LinkStatus) {
	sendNotification(ns, models.NotificationLinkState, payload)
}

func CalibrationFinished(ns chan<- models.Notification, payload models.CalibrationResult) {
	sendNotification(ns, models.NotificationCalibration, payload)
}

func TareApplied(ns chan<- models.Notification, payload models.ChannelResponse) {
	sendNotification(ns, models.NotificationTare, payload)
}

func GPIOChanged(ns chan<- models.Notification, payload models.GPIOResponse) {
	sendNotification(ns, models.NotificationGPIO, payload)
}

// Sample wraps a frame as a notification for WebSocket delivery. It is not
// queued; samples travel on their own broker.
func Sample(f samples.Frame) (models.Notification, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return models.Notification{}, err //nolint:wrapcheck // marshal error is self-describing
	}
	return models.Notification{Method: models.NotificationSample, Params: data}, nil
}
