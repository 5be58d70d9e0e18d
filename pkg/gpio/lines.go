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
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Lines binds named operate lines (up, down, fast, slow...) to pins on a
// Controller.
type Lines struct {
	ctrl    Controller
	outputs map[string]int
	inputs  map[string]int
}

func NewLines(ctrl Controller, outputs, inputs map[string]int) *Lines {
	return &Lines{
		ctrl:    ctrl,
		outputs: maps.Clone(outputs),
		inputs:  maps.Clone(inputs),
	}
}

// Setup selects the numbering scheme and configures every named line.
// Outputs start low.
func (l *Lines) Setup(scheme Scheme) error {
	if err := l.ctrl.SetMode(scheme); err != nil {
		return fmt.Errorf("failed to set gpio mode: %w", err)
	}
	for _, name := range slices.Sorted(maps.Keys(l.outputs)) {
		if err := l.ctrl.ConfigurePin(l.outputs[name], Out); err != nil {
			return fmt.Errorf("failed to configure output %s: %w", name, err)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(l.inputs)) {
		if err := l.ctrl.ConfigurePin(l.inputs[name], In); err != nil {
			return fmt.Errorf("failed to configure input %s: %w", name, err)
		}
	}
	log.Info().
		Stringer("scheme", scheme).
		Int("outputs", len(l.outputs)).
		Int("inputs", len(l.inputs)).
		Msg("gpio lines configured")
	return nil
}

// Resolve maps a line name or a numeric pin to a pin number.
func (l *Lines) Resolve(ref string) (int, error) {
	if pin, ok := l.outputs[ref]; ok {
		return pin, nil
	}
	if pin, ok := l.inputs[ref]; ok {
		return pin, nil
	}
	pin, err := strconv.Atoi(ref)
	if err != nil || pin < 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownLine, ref)
	}
	return pin, nil
}

func (l *Lines) Write(ref string, level Level) error {
	pin, err := l.Resolve(ref)
	if err != nil {
		return err
	}
	return l.ctrl.WritePin(pin, level)
}

func (l *Lines) Read(ref string) (Level, error) {
	pin, err := l.Resolve(ref)
	if err != nil {
		return Low, err
	}
	return l.ctrl.ReadPin(pin)
}

// State reads every named line. Lines that fail to read are omitted.
func (l *Lines) State() map[string]Level {
	out := make(map[string]Level, len(l.outputs)+len(l.inputs))
	for _, m := range []map[string]int{l.outputs, l.inputs} {
		for name, pin := range m {
			lvl, err := l.ctrl.ReadPin(pin)
			if err != nil {
				continue
			}
			out[name] = lvl
		}
	}
	return out
}

// Release drops every output low and frees the pins.
func (l *Lines) Release() error {
	var errs []error
	for name, pin := range l.outputs {
		if err := l.ctrl.WritePin(pin, Low); err != nil && !errors.Is(err, ErrPinNotConfigured) {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if err := l.ctrl.ReleaseAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
