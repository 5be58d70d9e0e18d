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

// Package helpers provides testing utilities for the calibration store.
//
// It includes a testify mock of database.CalibrationDBI and helpers that
// open a real sqlite calibration database in a temp dir.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//		calDB := helpers.NewMockCalibrationDBI()
//		calDB.On("FetchCalibration", mock.Anything, "ch1").
//			Return(calibration.DefaultRecord("ch1"), nil)
//
//		err := MyFunction(calDB)
//
//		require.NoError(t, err)
//		calDB.AssertExpectations(t)
//	}
package helpers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ZaparooProject/tensile-core/pkg/calibration"
	"github.com/ZaparooProject/tensile-core/pkg/database"
	"github.com/stretchr/testify/mock"
)

// MockCalibrationDBI is a mock implementation of the CalibrationDBI
// interface using testify/mock.
type MockCalibrationDBI struct {
	mock.Mock
}

// NewMockCalibrationDBI returns a mock with the lifecycle calls stubbed.
func NewMockCalibrationDBI() *MockCalibrationDBI {
	m := &MockCalibrationDBI{}
	m.On("Close").Return(nil).Maybe()
	m.On("GetDBPath").Return("").Maybe()
	return m
}

var _ database.CalibrationDBI = (*MockCalibrationDBI)(nil)

// GenericDBI methods
func (m *MockCalibrationDBI) Open() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CalibrationDBI open failed: %w", err)
	}
	return nil
}

func (m *MockCalibrationDBI) UnsafeGetSQLDb() *sql.DB {
	args := m.Called()
	if db, ok := args.Get(0).(*sql.DB); ok {
		return db
	}
	return nil
}

func (m *MockCalibrationDBI) Truncate() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CalibrationDBI truncate failed: %w", err)
	}
	return nil
}

func (m *MockCalibrationDBI) Allocate() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CalibrationDBI allocate failed: %w", err)
	}
	return nil
}

func (m *MockCalibrationDBI) MigrateUp() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CalibrationDBI migrate up failed: %w", err)
	}
	return nil
}

func (m *MockCalibrationDBI) Vacuum() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CalibrationDBI vacuum failed: %w", err)
	}
	return nil
}

func (m *MockCalibrationDBI) Close() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CalibrationDBI close failed: %w", err)
	}
	return nil
}

func (m *MockCalibrationDBI) GetDBPath() string {
	args := m.Called()
	return args.String(0)
}

// CalibrationDBI methods
func (m *MockCalibrationDBI) FetchCalibration(ctx context.Context, channel string) (calibration.Record, error) {
	args := m.Called(ctx, channel)
	rec, _ := args.Get(0).(calibration.Record)
	if err := args.Error(1); err != nil {
		return rec, fmt.Errorf("mock CalibrationDBI fetch failed: %w", err)
	}
	return rec, nil
}

func (m *MockCalibrationDBI) UpdateCalibration(ctx context.Context, channel string, fields map[string]any) error {
	args := m.Called(ctx, channel, fields)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CalibrationDBI update failed: %w", err)
	}
	return nil
}

func (m *MockCalibrationDBI) ListCalibrations(ctx context.Context) ([]calibration.Record, error) {
	args := m.Called(ctx)
	recs, _ := args.Get(0).([]calibration.Record)
	if err := args.Error(1); err != nil {
		return nil, fmt.Errorf("mock CalibrationDBI list failed: %w", err)
	}
	return recs, nil
}

func (m *MockCalibrationDBI) ResetCalibration(ctx context.Context, channel string) error {
	args := m.Called(ctx, channel)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CalibrationDBI reset failed: %w", err)
	}
	return nil
}
