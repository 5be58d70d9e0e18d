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

package link

import (
	"math"
	"os"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/frame"
	"github.com/ZaparooProject/tensile-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// DefaultSimulateRate is the frame rate of a SimulatedPort in Hz.
const DefaultSimulateRate = 50

// SimulatedPort stands in for the measurement front-end when no hardware is
// attached. It emits well-formed frames at a fixed rate carrying a slowly
// varying load, extension and displacement signal.
type SimulatedPort struct {
	clock    clockwork.Clock
	next     time.Time
	pending  []byte
	interval time.Duration
	timeout  time.Duration
	seq      int64
	written  int64
	mu       syncutil.Mutex
	closed   bool
}

// NewSimulatedPort returns a simulator emitting rateHz frames per second. A
// nil clock uses the real clock.
func NewSimulatedPort(rateHz int, clock clockwork.Clock) *SimulatedPort {
	if rateHz <= 0 {
		rateHz = DefaultSimulateRate
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := time.Second / time.Duration(rateHz)
	return &SimulatedPort{
		clock:    clock,
		interval: interval,
		timeout:  serial.NoTimeout,
		next:     clock.Now().Add(interval),
	}
}

// SimulatedPortFactory returns a PortFactory that ignores the path and mode
// and opens a new SimulatedPort.
func SimulatedPortFactory(rateHz int) PortFactory {
	return func(path string, _ *serial.Mode) (SerialPort, error) {
		log.Info().Str("port", path).Int("rate", rateHz).Msg("using simulated front-end")
		return NewSimulatedPort(rateHz, nil), nil
	}
}

func (s *SimulatedPort) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, os.ErrClosed
	}

	if len(s.pending) == 0 {
		wait := s.next.Sub(s.clock.Now())
		if wait > 0 {
			timeout := s.timeout
			s.mu.Unlock()
			if timeout >= 0 && wait > timeout {
				s.clock.Sleep(timeout)
				return 0, nil
			}
			s.clock.Sleep(wait)
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return 0, os.ErrClosed
			}
		}
		if len(s.pending) == 0 {
			s.pending = frame.Encode(s.sample(s.seq))
			s.seq++
			s.next = s.next.Add(s.interval)
			if now := s.clock.Now(); s.next.Before(now) {
				s.next = now.Add(s.interval)
			}
		}
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	s.mu.Unlock()
	return n, nil
}

func (s *SimulatedPort) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, os.ErrClosed
	}
	s.written += int64(len(p))
	log.Debug().Int("bytes", len(p)).Msg("simulated front-end received command")
	return len(p), nil
}

func (s *SimulatedPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *SimulatedPort) SetReadTimeout(t time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = t
	return nil
}

func (s *SimulatedPort) ResetInputBuffer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	return nil
}

// Written returns the number of bytes written to the simulator.
func (s *SimulatedPort) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// sample computes the readings of frame seq: a 20 s sine on the load cell,
// a 30 s triangle on the extensometer and a wrapping ramp on the encoder.
func (s *SimulatedPort) sample(seq int64) frame.Raw {
	t := float64(seq) * s.interval.Seconds()

	load := 12000 * math.Sin(2*math.Pi*t/20)

	phase := math.Mod(t, 30) / 30
	ext := 8000 * (1 - math.Abs(2*phase-1))

	disp := (seq * 7) % 30000

	return frame.Raw{
		Ch1: int16(load),
		Ch2: int16(ext),
		Ch3: int16(disp), //nolint:gosec // bounded by the modulus
	}
}
