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
	"strconv"

	"github.com/ZaparooProject/tensile-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Calculator applies the linear transform of one channel:
//
//	output = (raw - cal_zero) * mf - tare
//	mf     = cal_capacity / (cal_span - cal_zero)
//
// A zero span substitutes 1 for the denominator instead of failing.
type Calculator struct {
	channel    string
	rec        Record
	mf         float64
	tare       float64
	lastOutput float64
	mu         syncutil.RWMutex
}

//nolint:gocritic // record copied so later edits by the caller don't leak in
func NewCalculator(rec Record) *Calculator {
	c := &Calculator{channel: rec.Channel}
	c.ReloadFrom(rec)
	return c
}

func (c *Calculator) Channel() string {
	return c.channel
}

// Calculate converts raw to engineering units and remembers the result for
// ApplyTare.
func (c *Calculator) Calculate(raw int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastOutput = (float64(raw)-c.rec.CalZero)*c.mf - c.tare
	return c.lastOutput
}

// ApplyTare adds the last output to the running tare so the next reading of
// the same physical state is zero. Repeated tares accumulate.
func (c *Calculator) ApplyTare() {
	c.mu.Lock()
	c.tare += c.lastOutput
	tare := c.tare
	c.mu.Unlock()

	log.Info().Str("channel", c.channel).Float64("tare", tare).Msg("tare applied")
}

// ResetTare clears the running tare.
func (c *Calculator) ResetTare() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tare = 0
}

// SetCalibrationZero overwrites cal_zero without recomputing the
// multiplication factor; call ReloadFrom to apply a full calibration.
func (c *Calculator) SetCalibrationZero(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec.CalZero = v
}

// ReloadFrom replaces the calibration values and recomputes the
// multiplication factor. The channel identity and tare are kept.
//
//nolint:gocritic // record copied by value on purpose
func (c *Calculator) ReloadFrom(rec Record) {
	if rec.Channel != "" && rec.Channel != c.channel {
		log.Warn().
			Str("channel", c.channel).
			Str("record_channel", rec.Channel).
			Msg("calibration record belongs to another channel, keeping calculator identity")
	}

	c.mu.Lock()
	rec.Channel = c.channel
	c.rec = rec
	c.mf = multiplicationFactor(rec)
	mf := c.mf
	c.mu.Unlock()

	log.Debug().Str("channel", c.channel).Float64("mf", mf).Msg("calibration loaded")
}

func (c *Calculator) MultiplicationFactor() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mf
}

func (c *Calculator) Tare() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tare
}

func (c *Calculator) LastOutput() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastOutput
}

// Record returns a copy of the active calibration.
func (c *Calculator) Record() Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rec
}

// Format renders v with the channel's configured number of decimals.
func (c *Calculator) Format(v float64) string {
	c.mu.RLock()
	decimals := c.rec.DecimalPoint
	c.mu.RUnlock()
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

//nolint:gocritic // small value type
func multiplicationFactor(rec Record) float64 {
	den := rec.CalSpan - rec.CalZero
	if den == 0 {
		den = 1
	}
	return rec.CalCapacity / den
}
