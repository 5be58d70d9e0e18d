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

package requests

import (
	"context"
	"encoding/json"

	"github.com/ZaparooProject/tensile-core/pkg/calibration"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/database"
	"github.com/ZaparooProject/tensile-core/pkg/gpio"
	"github.com/ZaparooProject/tensile-core/pkg/link"
	"github.com/ZaparooProject/tensile-core/pkg/platforms"
	"github.com/ZaparooProject/tensile-core/pkg/service/acquisition"
	"github.com/ZaparooProject/tensile-core/pkg/service/state"
	"github.com/google/uuid"
)

// RequestEnv is everything an API handler may touch. The server fills in
// Context, Vars, Params, ID and IsLocal per request.
type RequestEnv struct {
	Context    context.Context
	Platform   platforms.Platform
	Config     *config.Instance
	State      *state.State
	Database   *database.Database
	Bank       *calibration.Bank
	Routine    *calibration.Routine
	Supervisor *link.Supervisor
	Transport  *link.Transport
	Pipeline   *acquisition.Pipeline
	Lines      *gpio.Lines
	Vars       map[string]string
	Params     json.RawMessage
	ID         uuid.UUID
	IsLocal    bool
}

// Var returns the route parameter name, or "" if unset.
func (env *RequestEnv) Var(name string) string {
	if env.Vars == nil {
		return ""
	}
	return env.Vars[name]
}
