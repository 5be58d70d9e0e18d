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

// Package gpio drives the discrete actuation lines of the machine. The
// acquisition core does not depend on it; the same process simply owns both.
package gpio

import (
	"errors"
	"fmt"
	"strings"
)

// Scheme selects how pin numbers are interpreted.
type Scheme int

const (
	// SchemeBCM uses Broadcom SoC channel numbers.
	SchemeBCM Scheme = iota + 1
	// SchemeBoard uses physical header pin numbers.
	SchemeBoard
)

func (s Scheme) String() string {
	switch s {
	case SchemeBCM:
		return "bcm"
	case SchemeBoard:
		return "board"
	default:
		return "unset"
	}
}

// ParseScheme maps "bcm" and "board" to a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(s) {
	case "bcm":
		return SchemeBCM, nil
	case "board":
		return SchemeBoard, nil
	default:
		return 0, fmt.Errorf("invalid gpio scheme: %q", s)
	}
}

type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "out"
	}
	return "in"
}

type Level int

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

var (
	ErrNoScheme         = errors.New("gpio mode not set")
	ErrPinNotConfigured = errors.New("pin not configured")
	ErrNotOutput        = errors.New("pin not configured as output")
	ErrUnknownLine      = errors.New("unknown gpio line")
)

// Controller is the actuation boundary: pin numbering, direction, and
// reading or writing discrete levels.
type Controller interface {
	SetMode(scheme Scheme) error
	ConfigurePin(pin int, dir Direction) error
	ReadPin(pin int) (Level, error)
	WritePin(pin int, level Level) error
	ReleaseAll() error
}
