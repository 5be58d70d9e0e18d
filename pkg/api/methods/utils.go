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
	"errors"
	"net/http"

	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/api/models/requests"
	"github.com/ZaparooProject/tensile-core/pkg/api/validation"
	"github.com/ZaparooProject/tensile-core/pkg/calibration"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/database/caldb"
	"github.com/ZaparooProject/tensile-core/pkg/gpio"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingParams = validation.ErrMissingParams
	ErrInvalidParams = validation.ErrInvalidParams
	ErrUnavailable   = errors.New("component not available")
	ErrForbidden     = errors.New("forbidden")
)

// NoContent is returned by handlers that have no response body.
type NoContent struct{}

// Accepted wraps the body of a request that continues in the background.
type Accepted struct {
	Body any
}

// StatusCode maps a handler error onto the HTTP status sent to the client.
func StatusCode(err error) int {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr),
		errors.Is(err, ErrMissingParams),
		errors.Is(err, ErrInvalidParams),
		errors.Is(err, caldb.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, calibration.ErrUnknownChannel),
		errors.Is(err, gpio.ErrUnknownLine),
		errors.Is(err, gpio.ErrPinNotConfigured):
		return http.StatusNotFound
	case errors.Is(err, calibration.ErrCaptureInProgress),
		errors.Is(err, gpio.ErrNotOutput),
		errors.Is(err, gpio.ErrNoScheme):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody builds the response body for err. Internal errors are not
// echoed to clients.
func ErrorBody(err error) models.ErrorResponse {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		return models.ErrorResponse{Error: http.StatusText(code)}
	}
	resp := models.ErrorResponse{Error: err.Error()}
	var verr *validation.Error
	if errors.As(err, &verr) {
		resp.Fields = verr.FieldNames()
	}
	return resp
}

func HandleVersion(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Debug().Msg("received version request")
	return models.VersionResponse{
		Version:  config.AppVersion,
		Platform: env.Platform.ID(),
	}, nil
}
