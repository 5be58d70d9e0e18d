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

package methods

import (
	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/api/models/requests"
	"github.com/ZaparooProject/tensile-core/pkg/calibration"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/samples"
)

// channelResponse describes one channel using the newest frame, if any.
//
//nolint:gocritic // frame is small and passed by value everywhere
func channelResponse(
	cfg *config.Instance,
	calc *calibration.Calculator,
	last samples.Frame,
	hasFrame bool,
) models.ChannelResponse {
	ch := calc.Channel()
	resp := models.ChannelResponse{
		ID:             ch,
		Label:          cfg.ChannelLabel(ch),
		Calibration:    calc.Record(),
		Tare:           calc.Tare(),
		Multiplication: calc.MultiplicationFactor(),
		Value:          calc.LastOutput(),
	}
	if hasFrame {
		if raw, ok := last.Raw(ch); ok {
			resp.Raw = raw
		}
		if v, ok := last.Value(ch); ok {
			resp.Value = v
		}
	}
	resp.Formatted = calc.Format(resp.Value)
	return resp
}

func channels(env *requests.RequestEnv) []models.ChannelResponse {
	last, hasFrame := env.State.LastFrame()
	out := make([]models.ChannelResponse, 0, len(env.Bank.Channels()))
	for _, ch := range env.Bank.Channels() {
		calc, err := env.Bank.Get(ch)
		if err != nil {
			continue
		}
		out = append(out, channelResponse(env.Config, calc, last, hasFrame))
	}
	return out
}

//nolint:gocritic // single-use parameter in API handler
func HandleStatus(env requests.RequestEnv) (any, error) {
	resp := models.StatusResponse{
		Version: models.VersionResponse{
			Version:  config.AppVersion,
			Platform: env.Platform.ID(),
		},
		Link:     env.State.LinkStatus(),
		Channels: channels(&env),
	}
	if last, ok := env.State.LastFrame(); ok {
		t := last.Time
		resp.LastSample = &t
	}
	if env.Pipeline != nil {
		resp.Frames = env.Pipeline.Frames()
		resp.FramingErrors = env.Pipeline.FramingErrors()
	}
	if env.Routine != nil {
		resp.Capture.Active = env.Routine.Active()
	}
	return resp, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleChannels(env requests.RequestEnv) (any, error) {
	return channels(&env), nil
}
