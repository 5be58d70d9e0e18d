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
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Bank owns one Calculator per channel for the lifetime of the process.
// The set of channels is fixed at construction so lookups need no locking.
type Bank struct {
	calcs map[string]*Calculator
	order []string
}

// NewBank creates calculators for channels, initialized with DefaultRecord.
func NewBank(channels []string) *Bank {
	b := &Bank{
		calcs: make(map[string]*Calculator, len(channels)),
		order: make([]string, 0, len(channels)),
	}
	for _, ch := range channels {
		if _, ok := b.calcs[ch]; ok {
			continue
		}
		b.calcs[ch] = NewCalculator(DefaultRecord(ch))
		b.order = append(b.order, ch)
	}
	return b
}

// Get returns the calculator of channel.
func (b *Bank) Get(channel string) (*Calculator, error) {
	c, ok := b.calcs[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}
	return c, nil
}

// Channels returns the channel ids in construction order.
func (b *Bank) Channels() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Reload fetches the calibration of channel from store and applies it.
func (b *Bank) Reload(ctx context.Context, store Store, channel string) error {
	c, err := b.Get(channel)
	if err != nil {
		return err
	}
	rec, err := store.FetchCalibration(ctx, channel)
	if err != nil {
		return fmt.Errorf("failed to fetch calibration for %s: %w", channel, err)
	}
	c.ReloadFrom(rec)
	return nil
}

// ReloadAll reloads every channel. Channels that fail keep their current
// calibration; the first error is returned after all channels were tried.
func (b *Bank) ReloadAll(ctx context.Context, store Store) error {
	var firstErr error
	for _, ch := range b.order {
		if err := b.Reload(ctx, store, ch); err != nil {
			log.Error().Err(err).Str("channel", ch).Msg("failed to reload calibration")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
