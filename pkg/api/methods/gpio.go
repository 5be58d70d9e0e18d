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
	"fmt"

	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/api/models/requests"
	"github.com/ZaparooProject/tensile-core/pkg/api/notifications"
	"github.com/ZaparooProject/tensile-core/pkg/api/validation"
	"github.com/ZaparooProject/tensile-core/pkg/gpio"
	"github.com/rs/zerolog/log"
)

func linesReady(env *requests.RequestEnv) error {
	if env.Lines == nil {
		return fmt.Errorf("%w: gpio disabled", ErrUnavailable)
	}
	return nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleGPIO(env requests.RequestEnv) (any, error) {
	if err := linesReady(&env); err != nil {
		return nil, err
	}
	state := env.Lines.State()
	resp := models.GPIOStateResponse{Lines: make(map[string]string, len(state))}
	for name, level := range state {
		resp.Lines[name] = level.String()
	}
	return resp, nil
}

// HandleGPIOWrite drives an operate output. The pin route parameter is a
// configured line name or a pin number.
//
//nolint:gocritic // single-use parameter in API handler
func HandleGPIOWrite(env requests.RequestEnv) (any, error) {
	if err := linesReady(&env); err != nil {
		return nil, err
	}

	var params models.GPIOParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	level := gpio.Low
	if params.Level == "high" {
		level = gpio.High
	}

	ref := env.Var("pin")
	if err := env.Lines.Write(ref, level); err != nil {
		return nil, err
	}
	log.Info().Str("line", ref).Stringer("level", level).Msg("gpio output set")

	resp := models.GPIOResponse{Line: ref, Level: level.String()}
	notifications.GPIOChanged(env.State.Notifications, resp)
	return resp, nil
}
