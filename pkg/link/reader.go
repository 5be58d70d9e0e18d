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

	"github.com/ZaparooProject/tensile-core/pkg/frame"
	"github.com/ZaparooProject/tensile-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DefaultChunkSize    = frame.Size
	DefaultIdleInterval = 2 * time.Second
	DefaultPollTimeout  = 100 * time.Millisecond
	DefaultThrottle     = 5 * time.Millisecond
)

// Verdict is a handler's opinion on a candidate frame.
type Verdict int

const (
	// VerdictNone expresses no framing opinion; the candidate is consumed.
	VerdictNone Verdict = iota
	// VerdictAccept consumes the candidate.
	VerdictAccept
	// VerdictReject drops one byte so the next candidate starts at a
	// shifted boundary.
	VerdictReject
)

// Handler receives every candidate frame read from the line. It runs on the
// reader goroutine.
type Handler interface {
	HandleFrame(chunk []byte) Verdict
}

type HandlerFunc func(chunk []byte) Verdict

func (f HandlerFunc) HandleFrame(chunk []byte) Verdict {
	return f(chunk)
}

// FailureSink is told about I/O errors on an open transport.
type FailureSink interface {
	ReportFailure(err error)
}

type ReaderOptions struct {
	Clock        clockwork.Clock
	Failures     FailureSink
	ChunkSize    int
	MaxBuffered  int
	IdleInterval time.Duration
	PollTimeout  time.Duration
	Throttle     time.Duration
}

// Reader pulls bytes from a Transport, reassembles frames and hands them to
// a Handler. It never opens the transport itself; while the transport is
// closed it waits IdleInterval between checks.
type Reader struct {
	transport *Transport
	handler   Handler
	scanner   *frame.Scanner
	cancel    context.CancelFunc
	done      chan struct{}
	opts      ReaderOptions
	frames    atomic.Int64
	rejected  atomic.Int64
	mu        syncutil.Mutex
	running   atomic.Bool
}

//nolint:gocritic // options copied by value
func NewReader(transport *Transport, handler Handler, opts ReaderOptions) *Reader {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = DefaultIdleInterval
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	// a negative throttle disables the pause between reads
	if opts.Throttle == 0 {
		opts.Throttle = DefaultThrottle
	}
	done := make(chan struct{})
	close(done)
	return &Reader{
		transport: transport,
		handler:   handler,
		scanner:   frame.NewScanner(opts.MaxBuffered),
		opts:      opts,
		done:      done,
	}
}

// Start launches the read loop. It returns false if the loop is already
// running.
func (r *Reader) Start(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running.CompareAndSwap(false, true) {
		log.Debug().Msg("frame reader already running")
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
	return true
}

// Stop cancels the loop and waits for it to exit. Latency is bounded by the
// poll timeout.
func (r *Reader) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-done
}

// Done is closed when the loop exits.
func (r *Reader) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *Reader) Running() bool {
	return r.running.Load()
}

// Frames returns the number of candidates that were not rejected.
func (r *Reader) Frames() int64 {
	return r.frames.Load()
}

// Rejected returns the number of rejected candidates.
func (r *Reader) Rejected() int64 {
	return r.rejected.Load()
}

func (r *Reader) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer r.running.Store(false)

	log.Info().Msg("frame reader started")
	defer log.Info().Msg("frame reader stopped")

	wasOpen := false
	for ctx.Err() == nil {
		if !r.transport.IsOpen() {
			if wasOpen {
				r.scanner.Reset()
				wasOpen = false
			}
			sleep(ctx, r.opts.Clock, r.opts.IdleInterval)
			continue
		}
		wasOpen = true

		chunk, err := r.transport.ReadChunk(r.opts.ChunkSize, r.opts.PollTimeout)
		if err != nil {
			if errors.Is(err, ErrNotOpen) {
				continue
			}
			log.Error().Err(err).Msg("failed to read from serial link")
			if r.opts.Failures != nil {
				r.opts.Failures.ReportFailure(err)
			}
			r.throttle(ctx)
			continue
		}
		if len(chunk) == 0 {
			continue
		}

		r.scanner.Write(chunk)
		r.drain()
		r.throttle(ctx)
	}
}

func (r *Reader) drain() {
	before := r.scanner.Dropped()
	for {
		candidate, ok := r.scanner.Next()
		if !ok {
			break
		}
		switch r.handler.HandleFrame(candidate) {
		case VerdictReject:
			r.rejected.Add(1)
			r.scanner.Skip(1)
		default:
			r.frames.Add(1)
			r.scanner.Consume()
		}
	}
	if dropped := r.scanner.Dropped() - before; dropped > 0 {
		log.Debug().Int("bytes", dropped).Msg("discarded bytes while resynchronizing")
	}
}

func (r *Reader) throttle(ctx context.Context) {
	if r.opts.Throttle > 0 {
		sleep(ctx, r.opts.Clock, r.opts.Throttle)
	}
}
