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


package calibration

import (
	"errors"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

var ErrEmptyChannel = errors.New("calibration row has no channel")

// WriteCSV writes recs as a CSV sheet with a header row of column names.
func WriteCSV(w io.Writer, recs []Record) error {
	if err := gocsv.Marshal(recs, w); err != nil {
		return fmt.Errorf("failed to marshal calibration CSV: %w", err)
	}
	return nil
}

// ReadCSV parses a sheet written by WriteCSV. Columns may appear in any
// order; missing columns read as zero.
func ReadCSV(r io.Reader) ([]Record, error) {
	recs := make([]Record, 0)
	if err := gocsv.Unmarshal(r, &recs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal calibration CSV: %w", err)
	}
	for i, rec := range recs {
		if rec.Channel == "" {
			return nil, fmt.Errorf("%w: row %d", ErrEmptyChannel, i+1)
		}
	}
	return recs, nil
}
