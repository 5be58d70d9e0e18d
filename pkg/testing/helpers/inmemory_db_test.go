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
	"testing"

	"github.com/ZaparooProject/tensile-core/pkg/calibration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestDatabase(t *testing.T) {
	t.Parallel()

	db, cleanup := NewTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, db.CalibrationDB.UpdateCalibration(ctx, "ch2", map[string]any{
		calibration.FieldCalSpan: 900,
	}))

	rec, err := db.CalibrationDB.FetchCalibration(ctx, "ch2")
	require.NoError(t, err)
	assert.InDelta(t, 900.0, rec.CalSpan, 0)

	recs, err := db.CalibrationDB.ListCalibrations(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
