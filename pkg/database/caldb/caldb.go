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

// Package caldb persists per-channel calibration records in sqlite.
package caldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/tensile-core/pkg/calibration"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/helpers"
	"github.com/ZaparooProject/tensile-core/pkg/platforms"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNullSQL = errors.New("CalibrationDB is not connected")

const sqliteConnParams = "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"

type CalibrationDB struct {
	sql *sql.DB
	pl  platforms.Platform
	ctx context.Context
}

func OpenCalibrationDB(ctx context.Context, pl platforms.Platform) (*CalibrationDB, error) {
	db := &CalibrationDB{sql: nil, pl: pl, ctx: ctx}
	err := db.Open()
	return db, err
}

func (db *CalibrationDB) Open() error {
	dbPath := db.GetDBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for database: %w", err)
	}
	sqlInstance, err := sql.Open("sqlite3", dbPath+sqliteConnParams)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.sql = sqlInstance
	// migrations are idempotent, so existing files are brought up to date
	return db.Allocate()
}

func (db *CalibrationDB) GetDBPath() string {
	return filepath.Join(helpers.DataDir(db.pl), config.CalibrationDbFile)
}

func (db *CalibrationDB) UnsafeGetSQLDb() *sql.DB {
	return db.sql
}

func (db *CalibrationDB) Truncate() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlTruncate(db.ctx, db.sql)
}

func (db *CalibrationDB) Allocate() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMigrateUp(db.sql)
}

func (db *CalibrationDB) MigrateUp() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMigrateUp(db.sql)
}

func (db *CalibrationDB) Vacuum() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlVacuum(db.ctx, db.sql)
}

func (db *CalibrationDB) Close() error {
	if db.sql == nil {
		return nil
	}
	err := db.sql.Close()
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// SetSQLForTesting allows injection of a sql.DB instance for testing purposes.
// This method should only be used in tests to set up in-memory databases.
func (db *CalibrationDB) SetSQLForTesting(ctx context.Context, sqlDB *sql.DB, platform platforms.Platform) error {
	db.sql = sqlDB
	db.pl = platform
	db.ctx = ctx

	return db.Allocate()
}

// FetchCalibration returns the stored record of channel, or the default
// record when the channel was never calibrated.
func (db *CalibrationDB) FetchCalibration(ctx context.Context, channel string) (calibration.Record, error) {
	if db.sql == nil {
		return calibration.Record{}, ErrNullSQL
	}
	return sqlFetchCalibration(ctx, db.sql, channel)
}

// UpdateCalibration writes a sparse set of fields for channel, creating the
// default row first if needed. Unknown field names are ignored.
func (db *CalibrationDB) UpdateCalibration(ctx context.Context, channel string, fields map[string]any) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlUpdateCalibration(ctx, db.sql, channel, fields)
}

func (db *CalibrationDB) ListCalibrations(ctx context.Context) ([]calibration.Record, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlListCalibrations(ctx, db.sql)
}

// ResetCalibration removes the stored row so the channel falls back to the
// default record.
func (db *CalibrationDB) ResetCalibration(ctx context.Context, channel string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlResetCalibration(ctx, db.sql, channel)
}
