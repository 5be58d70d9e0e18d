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

package helpers

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/ZaparooProject/tensile-core/pkg/database"
	"github.com/ZaparooProject/tensile-core/pkg/database/caldb"
	"github.com/ZaparooProject/tensile-core/pkg/testing/mocks"
	_ "github.com/mattn/go-sqlite3"
)

// NewInMemoryCalibrationDB opens a migrated calibration database in a temp
// dir. The file persists across close and reopen within the test.
func NewInMemoryCalibrationDB(t *testing.T) (db *caldb.CalibrationDB, cleanup func()) {
	t.Helper()

	ctx := context.Background()
	tempDir := t.TempDir()
	mockPlatform := mocks.NewMockPlatform(tempDir)

	sqlDB, err := sql.Open("sqlite3", filepath.Join(tempDir, "calibration_test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	db = &caldb.CalibrationDB{}
	err = db.SetSQLForTesting(ctx, sqlDB, mockPlatform)
	if err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			t.Errorf("Failed to close SQL database after setup error: %v", closeErr)
		}
		t.Fatalf("Failed to set up CalibrationDB for testing: %v", err)
	}

	cleanup = func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close CalibrationDB: %v", err)
		}
	}

	return db, cleanup
}

// NewTestDatabase wraps NewInMemoryCalibrationDB in a database.Database.
func NewTestDatabase(t *testing.T) (db *database.Database, cleanup func()) {
	t.Helper()

	calDB, calCleanup := NewInMemoryCalibrationDB(t)
	return &database.Database{CalibrationDB: calDB}, calCleanup
}
