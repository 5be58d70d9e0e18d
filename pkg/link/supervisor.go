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
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBackoff is the wait between failed open attempts.
	DefaultBackoff = 2 * time.Second
	// DefaultGracePeriod is how long RequestConnect waits for a cancelled
	// attempt to exit. It must exceed the backoff.
	DefaultGracePeriod = DefaultBackoff + 100*time.Millisecond
)

// State is the connection state tracked by a Supervisor.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

type SupervisorOptions struct {
	Clock           clockwork.Clock
	OnStateChange   func(State)
	// OnAttemptFailed runs after every failed open, once Attempts and
	// LastError reflect it.
	OnAttemptFailed func()
	Backoff         time.Duration
	GracePeriod     time.Duration
}

// Supervisor keeps retrying to open a Transport until it succeeds or is
// halted. At most one attempt runs at a time; a new request replaces the
// attempt in flight.
type Supervisor struct {
	transport   *Transport
	clock       clockwork.Clock
	onState     func(State)
	onFailed    func()
	cancel      context.CancelFunc
	done        chan struct{}
	backoff     time.Duration
	grace       time.Duration
	attempts    atomic.Int64
	state       atomic.Int32
	mu          syncutil.Mutex
	halted      atomic.Bool
	lastFailure atomic.Pointer[string]
}

//nolint:gocritic // options copied by value
func NewSupervisor(transport *Transport, opts SupervisorOptions) *Supervisor {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = opts.Backoff + 100*time.Millisecond
	}
	return &Supervisor{
		transport: transport,
		clock:     opts.Clock,
		onState:   opts.OnStateChange,
		onFailed:  opts.OnAttemptFailed,
		backoff:   opts.Backoff,
		grace:     opts.GracePeriod,
	}
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Attempts returns the number of open attempts made so far.
func (s *Supervisor) Attempts() int64 {
	return s.attempts.Load()
}

// LastError returns the diagnostic of the most recent failed open, or an
// empty string.
func (s *Supervisor) LastError() string {
	if p := s.lastFailure.Load(); p != nil {
		return *p
	}
	return ""
}

// RequestConnect starts a new connect attempt in the background. An attempt
// already in flight is cancelled first; RequestConnect waits at most the
// grace period for it to exit.
func (s *Supervisor) RequestConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestConnectLocked()
}

// must hold s.mu
func (s *Supervisor) requestConnectLocked() {
	s.stopAttempt()
	s.halted.Store(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.setState(StateConnecting)

	go s.attempt(ctx, done)
}

// Halt cancels any attempt in flight and closes the transport. A halted
// supervisor ignores reported failures until the next RequestConnect.
func (s *Supervisor) Halt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.halted.Store(true)
	s.stopAttempt()
	if err := s.transport.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing serial port on halt")
	}
	s.setState(StateIdle)
}

// ReportFailure is called when an I/O error is detected on the open
// transport. The transport is closed and a new connect attempt started.
func (s *Supervisor) ReportFailure(err error) {
	log.Warn().Err(err).Msg("serial link failure reported")

	if err := s.transport.Close(); err != nil {
		log.Debug().Err(err).Msg("error closing failed serial port")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted.Load() {
		s.setState(StateIdle)
		return
	}
	if s.State() == StateConnecting {
		return
	}
	s.requestConnectLocked()
}

// must hold s.mu
func (s *Supervisor) stopAttempt() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	timer := s.clock.NewTimer(s.grace)
	select {
	case <-s.done:
		timer.Stop()
	case <-timer.Chan():
		log.Warn().Msg("previous connect attempt did not exit within grace period")
	}
	s.cancel = nil
	s.done = nil
}

func (s *Supervisor) attempt(ctx context.Context, done chan struct{}) {
	defer close(done)

	if s.transport.IsOpen() {
		if err := s.transport.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing serial port before reconnect")
		}
	}

	port := s.transport.Settings().Port
	for {
		if ctx.Err() != nil {
			return
		}

		s.attempts.Add(1)
		err := s.transport.Open()
		if err == nil {
			if ctx.Err() != nil {
				// cancelled while opening, leave the handle to the next owner
				return
			}
			s.lastFailure.Store(nil)
			s.setState(StateOpen)
			return
		}

		var msg string
		switch {
		case errors.Is(err, ErrPermissionDenied):
			msg = "permission denied opening serial port, check the user is in the dialout group"
			log.Error().Err(err).Str("port", port).Msg(msg)
		case errors.Is(err, ErrPortNotFound):
			msg = "serial port not found, is the front-end connected?"
			log.Warn().Err(err).Str("port", port).Msg(msg)
		default:
			msg = err.Error()
			log.Error().Err(err).Str("port", port).Msg("failed to open serial port")
		}
		s.lastFailure.Store(&msg)
		if s.onFailed != nil {
			s.onFailed()
		}

		if !sleep(ctx, s.clock, s.backoff) {
			return
		}
	}
}

func (s *Supervisor) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev == st {
		return
	}
	log.Debug().Stringer("from", prev).Stringer("to", st).Msg("serial link state changed")
	if s.onState != nil {
		s.onState(st)
	}
}

// sleep waits for d or until ctx is done, returning false in the latter case.
func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	timer := clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
