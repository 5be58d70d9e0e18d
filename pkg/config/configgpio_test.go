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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPIO_Defaults(t *testing.T) {
	t.Parallel()

	cfg := &Instance{vals: BaseDefaults}

	assert.True(t, cfg.GPIOEnabled())
	assert.Equal(t, GPIOSchemeBCM, cfg.GPIOScheme())
	assert.Empty(t, cfg.GPIOOutputs())
	assert.Empty(t, cfg.GPIOInputs())
}

func TestGPIO_Load(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, fmt.Sprintf(`config_schema = %d

[gpio]
enabled = false
scheme = "BOARD"

[gpio.outputs]
up = 11
down = 13

[gpio.inputs]
estop = 15
`, SchemaVersion))

	assert.False(t, cfg.GPIOEnabled())
	assert.Equal(t, GPIOSchemeBoard, cfg.GPIOScheme())
	assert.Equal(t, map[string]int{"up": 11, "down": 13}, cfg.GPIOOutputs())
	assert.Equal(t, map[string]int{"estop": 15}, cfg.GPIOInputs())
}

func TestGPIO_OutputsAreCopies(t *testing.T) {
	t.Parallel()

	cfg := &Instance{vals: Values{GPIO: GPIO{Outputs: map[string]int{"up": 17}}}}
	out := cfg.GPIOOutputs()
	out["up"] = 4

	assert.Equal(t, 17, cfg.GPIOOutputs()["up"])
}

func TestGPIO_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown scheme",
			content: "[gpio]\nscheme = \"wiringpi\"\n",
			wantErr: "invalid gpio scheme",
		},
		{
			name:    "negative output",
			content: "[gpio.outputs]\nup = -1\n",
			wantErr: "invalid gpio output pin",
		},
		{
			name:    "negative input",
			content: "[gpio.inputs]\nestop = -3\n",
			wantErr: "invalid gpio input pin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfgPath := filepath.Join(t.TempDir(), CfgFile)
			content := fmt.Sprintf("config_schema = %d\n%s", SchemaVersion, tt.content)
			require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

			cfg := &Instance{cfgPath: cfgPath, vals: BaseDefaults, defaults: BaseDefaults}
			require.ErrorContains(t, cfg.Load(), tt.wantErr)
		})
	}
}
