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
	"github.com/ZaparooProject/tensile-core/pkg/api/notifications"
)

func channelByVar(env *requests.RequestEnv) (models.ChannelResponse, error) {
	calc, err := env.Bank.Get(env.Var("channel"))
	if err != nil {
		return models.ChannelResponse{}, err
	}
	last, hasFrame := env.State.LastFrame()
	return channelResponse(env.Config, calc, last, hasFrame), nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleChannel(env requests.RequestEnv) (any, error) {
	return channelByVar(&env)
}

// HandleTare zeroes the channel at its current output. Repeated tares
// accumulate.
//
//nolint:gocritic // single-use parameter in API handler
func HandleTare(env requests.RequestEnv) (any, error) {
	calc, err := env.Bank.Get(env.Var("channel"))
	if err != nil {
		return nil, err
	}
	calc.ApplyTare()

	resp, err := channelByVar(&env)
	if err != nil {
		return nil, err
	}
	notifications.TareApplied(env.State.Notifications, resp)
	return resp, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleResetTare(env requests.RequestEnv) (any, error) {
	calc, err := env.Bank.Get(env.Var("channel"))
	if err != nil {
		return nil, err
	}
	calc.ResetTare()

	resp, err := channelByVar(&env)
	if err != nil {
		return nil, err
	}
	notifications.TareApplied(env.State.Notifications, resp)
	return resp, nil
}
