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
	"maps"
	"strings"
)

const (
	GPIOSchemeBCM   = "bcm"
	GPIOSchemeBoard = "board"
)

// GPIO configures the actuation lines. Outputs and Inputs map a function
// name such as "up" or "estop" to a pin number in the configured scheme.
type GPIO struct {
	Enabled *bool          `toml:"enabled,omitempty"`
	Outputs map[string]int `toml:"outputs,omitempty"`
	Inputs  map[string]int `toml:"inputs,omitempty"`
	Scheme  string         `toml:"scheme,omitempty"`
}

func (g *GPIO) validate() error {
	switch strings.ToLower(g.Scheme) {
	case "", GPIOSchemeBCM, GPIOSchemeBoard:
	default:
		return fmt.Errorf("invalid gpio scheme: %q", g.Scheme)
	}
	for name, pin := range g.Outputs {
		if pin < 0 {
			return fmt.Errorf("invalid gpio output pin for %s: %d", name, pin)
		}
	}
	for name, pin := range g.Inputs {
		if pin < 0 {
			return fmt.Errorf("invalid gpio input pin for %s: %d", name, pin)
		}
	}
	return nil
}

func (c *Instance) GPIOEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.GPIO.Enabled == nil || *c.vals.GPIO.Enabled
}

// GPIOScheme returns the pin numbering scheme, "bcm" or "board".
func (c *Instance) GPIOScheme() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.GPIO.Scheme == "" {
		return GPIOSchemeBCM
	}
	return strings.ToLower(c.vals.GPIO.Scheme)
}

func (c *Instance) GPIOOutputs() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.vals.GPIO.Outputs)
}

func (c *Instance) GPIOInputs() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.vals.GPIO.Inputs)
}
