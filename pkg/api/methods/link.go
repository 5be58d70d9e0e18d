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
	"github.com/ZaparooProject/tensile-core/pkg/api/validation"
	"github.com/ZaparooProject/tensile-core/pkg/helpers"
	"github.com/rs/zerolog/log"
)

func linkReady(env *requests.RequestEnv) error {
	if env.Supervisor == nil || env.Transport == nil {
		return fmt.Errorf("%w: serial link", ErrUnavailable)
	}
	return nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleLinkStatus(env requests.RequestEnv) (any, error) {
	return env.State.LinkStatus(), nil
}

// HandleLinkConnect (re)starts the connect loop, optionally switching to a
// new port first. A new port is saved to the config file.
//
//nolint:gocritic // single-use parameter in API handler
func HandleLinkConnect(env requests.RequestEnv) (any, error) {
	if err := linkReady(&env); err != nil {
		return nil, err
	}

	var params models.LinkConnectParams
	if len(env.Params) > 0 {
		if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
			return nil, err
		}
	}

	if params.Port != "" {
		settings := env.Transport.Settings()
		if settings.Port != params.Port {
			log.Info().Str("port", params.Port).Str("previous", settings.Port).Msg("switching serial port")
			settings.Port = params.Port
			env.Transport.Configure(settings)
			env.Config.SetSerialPort(params.Port)
			if err := env.Config.Save(); err != nil {
				log.Error().Err(err).Msg("failed to save serial port to config")
			}
		}
	}

	env.Supervisor.RequestConnect()
	return env.State.LinkStatus(), nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleLinkHalt(env requests.RequestEnv) (any, error) {
	if err := linkReady(&env); err != nil {
		return nil, err
	}
	log.Info().Msg("received link halt request")
	env.Supervisor.Halt()
	return env.State.LinkStatus(), nil
}

// HandleLinkWrite sends a command line to the front-end. Written is false
// when no port is open. With replyBytes set, up to that many bytes are read
// back within the configured read timeout; the reader loop may take some of
// them first.
//
//nolint:gocritic // single-use parameter in API handler
func HandleLinkWrite(env requests.RequestEnv) (any, error) {
	if err := linkReady(&env); err != nil {
		return nil, err
	}

	var params models.LinkWriteParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	terminate := params.Terminate == nil || *params.Terminate

	written, err := env.Transport.Write([]byte(params.Payload), terminate)
	if err != nil {
		env.Supervisor.ReportFailure(err)
		return nil, fmt.Errorf("failed to write to serial port: %w", err)
	}
	if !written || params.ReplyBytes == 0 {
		return models.LinkWriteResponse{Written: written}, nil
	}

	buf := make([]byte, params.ReplyBytes)
	n, err := env.Transport.Read(buf)
	if err != nil {
		env.Supervisor.ReportFailure(err)
		return nil, fmt.Errorf("failed to read reply: %w", err)
	}
	reply := string(buf[:n])
	return models.LinkWriteResponse{Written: true, Reply: &reply}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleLinkPorts(env requests.RequestEnv) (any, error) {
	ports, err := helpers.GetSerialDeviceList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	if ports == nil {
		ports = []string{}
	}
	return models.SerialPortsResponse{
		Ports:   ports,
		Default: env.Platform.DefaultSerialPort(),
		Current: env.Config.SerialPort(),
	}, nil
}
