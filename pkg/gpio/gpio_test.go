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

package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScheme(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Scheme
		wantErr bool
	}{
		{in: "bcm", want: SchemeBCM},
		{in: "BOARD", want: SchemeBoard},
		{in: "wiring", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseScheme(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPinName(t *testing.T) {
	t.Parallel()

	name, err := PinName(SchemeBCM, 17)
	require.NoError(t, err)
	assert.Equal(t, "GPIO17", name)

	name, err = PinName(SchemeBoard, 11)
	require.NoError(t, err)
	assert.Equal(t, "P1_11", name)

	_, err = PinName(0, 11)
	require.ErrorIs(t, err, ErrNoScheme)
}

func TestLevelAndDirectionString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "high", High.String())
	assert.Equal(t, "low", Low.String())
	assert.Equal(t, "out", Out.String())
	assert.Equal(t, "in", In.String())
	assert.Equal(t, "bcm", SchemeBCM.String())
	assert.Equal(t, "unset", Scheme(0).String())
}
