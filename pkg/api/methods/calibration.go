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
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/api/models/requests"
	"github.com/ZaparooProject/tensile-core/pkg/api/validation"
	"github.com/ZaparooProject/tensile-core/pkg/calibration"
	"github.com/rs/zerolog/log"
)

func calibrationDB(env *requests.RequestEnv) error {
	if env.Database == nil || env.Database.CalibrationDB == nil {
		return fmt.Errorf("%w: calibration database", ErrUnavailable)
	}
	return nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleCalibrations(env requests.RequestEnv) (any, error) {
	if err := calibrationDB(&env); err != nil {
		return nil, err
	}
	recs, err := env.Database.CalibrationDB.ListCalibrations(env.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to list calibrations: %w", err)
	}
	// channels never written still have a calibration: the default one
	stored := make(map[string]calibration.Record, len(recs))
	for _, r := range recs {
		stored[r.Channel] = r
	}
	resp := models.CalibrationsResponse{Calibrations: make([]calibration.Record, 0, len(recs))}
	for _, ch := range env.Bank.Channels() {
		if r, ok := stored[ch]; ok {
			resp.Calibrations = append(resp.Calibrations, r)
			delete(stored, ch)
		} else {
			resp.Calibrations = append(resp.Calibrations, calibration.DefaultRecord(ch))
		}
	}
	for _, r := range recs {
		if _, ok := stored[r.Channel]; ok {
			resp.Calibrations = append(resp.Calibrations, r)
		}
	}
	return resp, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleCalibration(env requests.RequestEnv) (any, error) {
	if err := calibrationDB(&env); err != nil {
		return nil, err
	}
	ch := env.Var("channel")
	if _, err := env.Bank.Get(ch); err != nil {
		return nil, err
	}
	rec, err := env.Database.CalibrationDB.FetchCalibration(env.Context, ch)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calibration: %w", err)
	}
	return rec, nil
}

// HandleUpdateCalibration stores a sparse calibration edit and reloads the
// channel's calculator so the next sample uses it.
//
//nolint:gocritic // single-use parameter in API handler
func HandleUpdateCalibration(env requests.RequestEnv) (any, error) {
	if err := calibrationDB(&env); err != nil {
		return nil, err
	}
	ch := env.Var("channel")
	if _, err := env.Bank.Get(ch); err != nil {
		return nil, err
	}

	var params models.UpdateCalibrationParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	fields := params.Fields()
	log.Info().Str("channel", ch).Interface("fields", fields).Msg("received calibration update")

	db := env.Database.CalibrationDB
	if len(fields) > 0 {
		if err := db.UpdateCalibration(env.Context, ch, fields); err != nil {
			return nil, fmt.Errorf("failed to update calibration: %w", err)
		}
	}
	if err := env.Bank.Reload(env.Context, db, ch); err != nil {
		return nil, err
	}

	calc, err := env.Bank.Get(ch)
	if err != nil {
		return nil, err
	}
	return calc.Record(), nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleResetCalibration(env requests.RequestEnv) (any, error) {
	if err := calibrationDB(&env); err != nil {
		return nil, err
	}
	ch := env.Var("channel")
	if _, err := env.Bank.Get(ch); err != nil {
		return nil, err
	}

	log.Info().Str("channel", ch).Msg("resetting calibration to defaults")
	db := env.Database.CalibrationDB
	if err := db.ResetCalibration(env.Context, ch); err != nil {
		return nil, fmt.Errorf("failed to reset calibration: %w", err)
	}
	if err := env.Bank.Reload(env.Context, db, ch); err != nil {
		return nil, err
	}
	return NoContent{}, nil
}

// HandleCalibrate starts a zero or span capture. The result is delivered as
// a calibration.finished notification.
//
//nolint:gocritic // single-use parameter in API handler
func HandleCalibrate(env requests.RequestEnv) (any, error) {
	if env.Routine == nil {
		return nil, fmt.Errorf("%w: calibration routine", ErrUnavailable)
	}
	ch := env.Var("channel")

	var params models.CalibrateParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	process, err := calibration.ParseProcess(params.Process)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	d := env.Config.CalibrationDuration()
	if params.Seconds > 0 {
		d = time.Duration(params.Seconds) * time.Second
	}

	if err := env.Routine.Start(ch, process, d); err != nil {
		return nil, err
	}
	return Accepted{Body: models.CaptureStatus{Active: true}}, nil
}
