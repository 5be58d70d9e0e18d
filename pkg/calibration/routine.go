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
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/helpers/syncutil"
	"github.com/ZaparooProject/tensile-core/pkg/samples"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultCaptureDuration is how long raw counts are averaged for a zero or
// span point.
const DefaultCaptureDuration = 5 * time.Second

var (
	ErrCaptureInProgress = errors.New("calibration capture already in progress")
	ErrNoReadings        = errors.New("calibration capture received no readings")
)

// Process selects which calibration anchor a capture writes.
type Process int

const (
	ProcessZero Process = iota
	ProcessSpan
)

// Field returns the calibration column written by p.
func (p Process) Field() string {
	if p == ProcessSpan {
		return FieldCalSpan
	}
	return FieldCalZero
}

func (p Process) String() string {
	if p == ProcessSpan {
		return "span"
	}
	return "zero"
}

// ParseProcess maps "zero" and "span" to a Process.
func ParseProcess(s string) (Process, error) {
	switch s {
	case "zero":
		return ProcessZero, nil
	case "span":
		return ProcessSpan, nil
	default:
		return ProcessZero, fmt.Errorf("invalid calibration process: %q", s)
	}
}

// Result describes a finished capture.
type Result struct {
	Err      error
	Channel  string
	Process  Process
	Average  int64
	Readings int
}

// Routine captures raw counts of one channel for a fixed duration, stores
// their rounded average as cal_zero or cal_span and reloads the channel's
// calculator. It is registered as a sample subscriber.
type Routine struct {
	ctx     context.Context
	store   Store
	clock   clockwork.Clock
	bank    *Bank
	results chan Result
	channel string
	sum     int64
	count   int
	process Process
	mu      syncutil.Mutex
	active  bool
}

// NewRoutine creates a capture routine. A nil clock uses the real clock.
func NewRoutine(ctx context.Context, bank *Bank, store Store, clock clockwork.Clock) *Routine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Routine{
		ctx:     ctx,
		bank:    bank,
		store:   store,
		clock:   clock,
		results: make(chan Result, 4),
	}
}

// Results delivers one Result per finished capture. Results are dropped if
// nobody reads them.
func (r *Routine) Results() <-chan Result {
	return r.results
}

// Active reports whether a capture is running.
func (r *Routine) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Start begins capturing channel for d. Only one capture may run at a time.
func (r *Routine) Start(channel string, p Process, d time.Duration) error {
	if _, err := r.bank.Get(channel); err != nil {
		return err
	}
	if d <= 0 {
		d = DefaultCaptureDuration
	}

	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return ErrCaptureInProgress
	}
	r.active = true
	r.channel = channel
	r.process = p
	r.sum = 0
	r.count = 0
	r.mu.Unlock()

	log.Info().
		Str("channel", channel).
		Stringer("process", p).
		Dur("duration", d).
		Msg("starting calibration capture")

	timer := r.clock.After(d)
	go func() {
		select {
		case <-timer:
			r.finish()
		case <-r.ctx.Done():
			r.mu.Lock()
			r.active = false
			r.mu.Unlock()
			log.Debug().Str("channel", channel).Msg("calibration capture cancelled")
		}
	}()

	return nil
}

// HandleFrame collects the raw count of the channel being captured.
func (r *Routine) HandleFrame(f samples.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return nil
	}
	raw, ok := f.Raw(r.channel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, r.channel)
	}
	r.sum += int64(raw)
	r.count++
	return nil
}

func (r *Routine) finish() {
	r.mu.Lock()
	res := Result{
		Channel:  r.channel,
		Process:  r.process,
		Readings: r.count,
	}
	res.Average = int64(math.Round(float64(r.sum) / float64(max(r.count, 1))))
	r.active = false
	r.mu.Unlock()

	if res.Readings == 0 {
		res.Err = ErrNoReadings
	} else {
		log.Info().
			Str("channel", res.Channel).
			Stringer("process", res.Process).
			Int64("average", res.Average).
			Int("readings", res.Readings).
			Msg("calibration capture complete")
		res.Err = r.apply(res)
	}
	if res.Err != nil {
		log.Error().Err(res.Err).Str("channel", res.Channel).Msg("failed to apply calibration capture")
	}

	select {
	case r.results <- res:
	default:
		log.Warn().Str("channel", res.Channel).Msg("calibration result dropped, nobody listening")
	}
}

//nolint:gocritic // result is small and copied once
func (r *Routine) apply(res Result) error {
	err := r.store.UpdateCalibration(r.ctx, res.Channel, map[string]any{
		res.Process.Field(): res.Average,
	})
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", res.Process.Field(), err)
	}
	return r.bank.Reload(r.ctx, r.store, res.Channel)
}
