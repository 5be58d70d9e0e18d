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

package caldb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/ZaparooProject/tensile-core/pkg/calibration"
	"github.com/ZaparooProject/tensile-core/pkg/database"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var ErrInvalidValue = errors.New("invalid calibration value")

// columns maps update keys to their table column. Keys missing here are
// dropped by sqlUpdateCalibration.
var columns = map[string]string{
	calibration.FieldDecimalPoint: "DecimalPoint",
	calibration.FieldResolution:   "Resolution",
	calibration.FieldMaxCapacity:  "MaxCapacity",
	calibration.FieldCalCapacity:  "CalCapacity",
	calibration.FieldCalZero:      "CalZero",
	calibration.FieldCalSpan:      "CalSpan",
}

func sqlMigrateUp(db *sql.DB) error {
	if err := database.MigrateUp(db, migrationFiles, "migrations"); err != nil {
		return fmt.Errorf("failed to run calibration database migrations: %w", err)
	}
	return nil
}

//goland:noinspection SqlWithoutWhere
func sqlTruncate(ctx context.Context, db *sql.DB) error {
	sqlStmt := `
	delete from Calibration;
	vacuum;
	`
	_, err := db.ExecContext(ctx, sqlStmt)
	if err != nil {
		return fmt.Errorf("failed to truncate database: %w", err)
	}
	return nil
}

func sqlVacuum(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `vacuum;`)
	if err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

func sqlFetchCalibration(ctx context.Context, db *sql.DB, channel string) (calibration.Record, error) {
	rec := calibration.Record{Channel: channel}
	err := db.QueryRowContext(ctx, `
		select DecimalPoint, Resolution, MaxCapacity, CalCapacity, CalZero, CalSpan
		from Calibration
		where Channel = ?;
	`, channel).Scan(
		&rec.DecimalPoint,
		&rec.Resolution,
		&rec.MaxCapacity,
		&rec.CalCapacity,
		&rec.CalZero,
		&rec.CalSpan,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return calibration.DefaultRecord(channel), nil
	} else if err != nil {
		return calibration.Record{}, fmt.Errorf("failed to fetch calibration: %w", err)
	}
	return rec, nil
}

func sqlListCalibrations(ctx context.Context, db *sql.DB) ([]calibration.Record, error) {
	rows, err := db.QueryContext(ctx, `
		select Channel, DecimalPoint, Resolution, MaxCapacity, CalCapacity, CalZero, CalSpan
		from Calibration
		order by Channel;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list calibrations: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	list := make([]calibration.Record, 0, 3)
	for rows.Next() {
		var rec calibration.Record
		if err := rows.Scan(
			&rec.Channel,
			&rec.DecimalPoint,
			&rec.Resolution,
			&rec.MaxCapacity,
			&rec.CalCapacity,
			&rec.CalZero,
			&rec.CalSpan,
		); err != nil {
			return nil, fmt.Errorf("failed to scan calibration row: %w", err)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calibration rows: %w", err)
	}
	return list, nil
}

func sqlUpdateCalibration(
	ctx context.Context,
	db *sql.DB,
	channel string,
	fields map[string]any,
) (err error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if _, ok := columns[k]; ok {
			keys = append(keys, k)
		} else {
			log.Debug().Str("channel", channel).Str("field", k).Msg("ignoring unknown calibration field")
		}
	}
	slices.Sort(keys)

	values := make([]any, len(keys))
	for i, k := range keys {
		values[i], err = coerce(k, fields[k])
		if err != nil {
			return err
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Warn().Err(rbErr).Msg("failed to rollback calibration update")
			}
		}
	}()

	def := calibration.DefaultRecord(channel)
	_, err = tx.ExecContext(ctx, `
		insert or ignore into Calibration
		(Channel, DecimalPoint, Resolution, MaxCapacity, CalCapacity, CalZero, CalSpan)
		values (?, ?, ?, ?, ?, ?, ?);
	`, def.Channel, def.DecimalPoint, def.Resolution, def.MaxCapacity,
		def.CalCapacity, def.CalZero, def.CalSpan)
	if err != nil {
		return fmt.Errorf("failed to insert default calibration: %w", err)
	}

	for i, k := range keys {
		// column names come from the whitelist above, never from input
		stmt := "update Calibration set " + columns[k] + " = ? where Channel = ?;"
		if _, err = tx.ExecContext(ctx, stmt, values[i], channel); err != nil {
			return fmt.Errorf("failed to update %s: %w", k, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit calibration update: %w", err)
	}
	return nil
}

func sqlResetCalibration(ctx context.Context, db *sql.DB, channel string) error {
	_, err := db.ExecContext(ctx, `delete from Calibration where Channel = ?;`, channel)
	if err != nil {
		return fmt.Errorf("failed to reset calibration: %w", err)
	}
	return nil
}

// coerce converts v to the storage type of field: decimal_point is an
// integer, the rest are reals.
func coerce(field string, v any) (any, error) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidValue, field, n)
		}
		f = parsed
	default:
		return nil, fmt.Errorf("%w: %s has type %T", ErrInvalidValue, field, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %s is not finite", ErrInvalidValue, field)
	}
	if field == calibration.FieldDecimalPoint {
		return int64(math.Round(f)), nil
	}
	return f, nil
}
