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

// Package acquisition turns candidate frames from the serial link into
// calibrated sample sets and publishes them to subscribers.
package acquisition

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ZaparooProject/tensile-core/pkg/calibration"
	"github.com/ZaparooProject/tensile-core/pkg/frame"
	"github.com/ZaparooProject/tensile-core/pkg/link"
	"github.com/ZaparooProject/tensile-core/pkg/samples"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Pipeline is the link.Handler of the frame reader: it decodes a candidate,
// runs each channel through its calculator and publishes the result.
type Pipeline struct {
	clock    clockwork.Clock
	registry *samples.Registry
	calcs    [3]*calibration.Calculator
	framing  atomic.Int64
	frames   atomic.Int64
}

// NewPipeline binds the calculators of ch1, ch2 and ch3 from bank. A nil
// clock uses the real clock.
func NewPipeline(bank *calibration.Bank, registry *samples.Registry, clock clockwork.Clock) (*Pipeline, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	p := &Pipeline{
		clock:    clock,
		registry: registry,
	}
	for i, ch := range samples.Channels {
		c, err := bank.Get(ch)
		if err != nil {
			return nil, fmt.Errorf("pipeline needs a calculator for %s: %w", ch, err)
		}
		p.calcs[i] = c
	}
	return p, nil
}

// HandleFrame implements link.Handler. Framing errors reject the candidate
// so the reader shifts its boundary by one byte.
func (p *Pipeline) HandleFrame(chunk []byte) link.Verdict {
	raw, err := frame.Decode(chunk)
	if err != nil {
		n := p.framing.Add(1)
		ev := log.Debug()
		if errors.Is(err, frame.ErrFraming) && n%100 == 1 {
			ev = log.Warn().Int64("total", n)
		}
		ev.Err(err).Hex("chunk", chunk).Msg("framing error, resynchronizing")
		return link.VerdictReject
	}

	p.frames.Add(1)
	p.registry.Publish(p.Process(raw))
	return link.VerdictAccept
}

// Process converts a decoded frame to a sample set.
func (p *Pipeline) Process(raw frame.Raw) samples.Frame {
	return samples.Frame{
		Time:     p.clock.Now(),
		RawCh1:   raw.Ch1,
		RawCh2:   raw.Ch2,
		RawCh3:   raw.Ch3,
		ValueCh1: p.calcs[0].Calculate(int(raw.Ch1)),
		ValueCh2: p.calcs[1].Calculate(int(raw.Ch2)),
		ValueCh3: p.calcs[2].Calculate(int(raw.Ch3)),
	}
}

// FramingErrors returns the number of rejected candidates.
func (p *Pipeline) FramingErrors() int64 {
	return p.framing.Load()
}

// Frames returns the number of published sample sets.
func (p *Pipeline) Frames() int64 {
	return p.frames.Load()
}
