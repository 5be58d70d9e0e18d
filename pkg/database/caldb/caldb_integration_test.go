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
	"testing"

	"github.com/ZaparooProject/tensile-core/pkg/calibration"
	"github.com/ZaparooProject/tensile-core/pkg/database"
	"github.com/ZaparooProject/tensile-core/pkg/platforms"
	"github.com/ZaparooProject/tensile-core/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ database.CalibrationDBI = (*CalibrationDB)(nil)

func setupTempCalibrationDB(t *testing.T) *CalibrationDB {
	t.Helper()

	pl := &mocks.MockPlatform{}
	pl.On("Settings").Return(platforms.Settings{DataDir: t.TempDir()})

	db, err := OpenCalibrationDB(context.Background(), pl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCalibrationDB_RoundTrip_Integration(t *testing.T) {
	db := setupTempCalibrationDB(t)
	ctx := context.Background()

	rec, err := db.FetchCalibration(ctx, "ch1")
	require.NoError(t, err)
	assert.Equal(t, calibration.DefaultRecord("ch1"), rec)

	require.NoError(t, db.UpdateCalibration(ctx, "ch1", map[string]any{
		calibration.FieldCalZero: 200,
		calibration.FieldCalSpan: 2200.0,
		"unknown":                "ignored",
	}))

	rec, err = db.FetchCalibration(ctx, "ch1")
	require.NoError(t, err)
	want := calibration.DefaultRecord("ch1")
	want.CalZero = 200
	want.CalSpan = 2200
	assert.Equal(t, want, rec)

	require.NoError(t, db.UpdateCalibration(ctx, "ch1", map[string]any{
		calibration.FieldDecimalPoint: 2,
	}))
	rec, err = db.FetchCalibration(ctx, "ch1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.DecimalPoint)
	assert.InDelta(t, 200.0, rec.CalZero, 0)
}

func TestCalibrationDB_ListAndReset_Integration(t *testing.T) {
	db := setupTempCalibrationDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpdateCalibration(ctx, "ch2", map[string]any{calibration.FieldCalZero: 5}))
	require.NoError(t, db.UpdateCalibration(ctx, "ch1", map[string]any{calibration.FieldCalZero: 3}))

	list, err := db.ListCalibrations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ch1", list[0].Channel)
	assert.Equal(t, "ch2", list[1].Channel)

	require.NoError(t, db.ResetCalibration(ctx, "ch2"))
	rec, err := db.FetchCalibration(ctx, "ch2")
	require.NoError(t, err)
	assert.Equal(t, calibration.DefaultRecord("ch2"), rec)

	require.NoError(t, db.Truncate())
	list, err = db.ListCalibrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCalibrationDB_ReopenKeepsData_Integration(t *testing.T) {
	pl := &mocks.MockPlatform{}
	pl.On("Settings").Return(platforms.Settings{DataDir: t.TempDir()})
	ctx := context.Background()

	db, err := OpenCalibrationDB(ctx, pl)
	require.NoError(t, err)
	require.NoError(t, db.UpdateCalibration(ctx, "ch1", map[string]any{calibration.FieldCalSpan: 900}))
	require.NoError(t, db.Close())

	db, err = OpenCalibrationDB(ctx, pl)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rec, err := db.FetchCalibration(ctx, "ch1")
	require.NoError(t, err)
	assert.InDelta(t, 900.0, rec.CalSpan, 0)

	v, err := database.SchemaVersion(db.UnsafeGetSQLDb(), migrationFiles)
	require.NoError(t, err)
	assert.Positive(t, v)
}

func TestCalibrationDB_BankReload_Integration(t *testing.T) {
	db := setupTempCalibrationDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpdateCalibration(ctx, "ch1", map[string]any{
		calibration.FieldCalCapacity: 1000,
		calibration.FieldCalZero:     200,
		calibration.FieldCalSpan:     2200,
	}))

	bank := calibration.NewBank([]string{"ch1", "ch2", "ch3"})
	require.NoError(t, bank.ReloadAll(ctx, db))

	c, err := bank.Get("ch1")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, c.MultiplicationFactor(), 1e-9)

	c, err = bank.Get("ch2")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.MultiplicationFactor(), 1e-9)
}
