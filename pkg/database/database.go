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

package database

import (
	"context"
	"database/sql"

	"github.com/ZaparooProject/tensile-core/pkg/calibration"
)

/*
 * Interfaces live at this level so consumers don't import the concrete
 * sqlite packages. Implementations are found in caldb.
 */

// Database is a portable handle passed to the service and API.
type Database struct {
	CalibrationDB CalibrationDBI
}

/*
 * Interfaces for external deps
 */

type GenericDBI interface {
	Open() error
	UnsafeGetSQLDb() *sql.DB
	Truncate() error
	Allocate() error
	MigrateUp() error
	Vacuum() error
	Close() error
	GetDBPath() string
}

// CalibrationDBI stores one calibration record per channel. It satisfies
// calibration.Store.
type CalibrationDBI interface {
	GenericDBI
	calibration.Store
	ListCalibrations(ctx context.Context) ([]calibration.Record, error)
	ResetCalibration(ctx context.Context, channel string) error
}
