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

package frame

import "bytes"

// DefaultMaxBuffered bounds how many bytes a Scanner holds while waiting for
// a complete frame.
const DefaultMaxBuffered = 4096

// Scanner accumulates bytes read from the line and yields candidate frames
// aligned on the start marker. It does not validate the end marker; that is
// left to Decode so the caller can decide how to resynchronize.
//
// Scanner is not safe for concurrent use.
type Scanner struct {
	buf         []byte
	maxBuffered int
	dropped     int
}

// NewScanner returns a Scanner holding at most maxBuffered bytes. Values
// smaller than Size fall back to DefaultMaxBuffered.
func NewScanner(maxBuffered int) *Scanner {
	if maxBuffered < Size {
		maxBuffered = DefaultMaxBuffered
	}
	return &Scanner{
		buf:         make([]byte, 0, Size*4),
		maxBuffered: maxBuffered,
	}
}

// Write appends p to the buffer. When the buffer would exceed its limit the
// oldest bytes are discarded.
func (s *Scanner) Write(p []byte) {
	s.buf = append(s.buf, p...)
	if over := len(s.buf) - s.maxBuffered; over > 0 {
		s.drop(over)
	}
}

// Next returns a copy of the next Size bytes starting at a start marker.
// Bytes preceding the marker are discarded. ok is false until a full
// candidate is buffered. Next does not consume the candidate: call Consume
// once it has been handled, or Skip to shift the frame boundary.
func (s *Scanner) Next() (candidate []byte, ok bool) {
	idx := bytes.Index(s.buf, StartMarker)
	if idx < 0 {
		// a trailing '$' may be the first half of the next marker
		keep := 0
		if n := len(s.buf); n > 0 && s.buf[n-1] == startMarker[0] {
			keep = 1
		}
		s.drop(len(s.buf) - keep)
		return nil, false
	}
	if idx > 0 {
		s.drop(idx)
	}
	if len(s.buf) < Size {
		return nil, false
	}

	candidate = make([]byte, Size)
	copy(candidate, s.buf[:Size])
	return candidate, true
}

// Consume removes the candidate last returned by Next.
func (s *Scanner) Consume() {
	s.shift(min(Size, len(s.buf)))
}

// Skip discards n bytes from the front of the buffer.
func (s *Scanner) Skip(n int) {
	s.drop(min(n, len(s.buf)))
}

// Buffered returns the number of bytes waiting in the buffer.
func (s *Scanner) Buffered() int {
	return len(s.buf)
}

// Dropped returns the number of bytes discarded so far without forming part
// of a consumed frame.
func (s *Scanner) Dropped() int {
	return s.dropped
}

// Reset empties the buffer, e.g. after the line was reopened.
func (s *Scanner) Reset() {
	s.buf = s.buf[:0]
}

func (s *Scanner) drop(n int) {
	if n <= 0 {
		return
	}
	s.dropped += n
	s.shift(n)
}

func (s *Scanner) shift(n int) {
	s.buf = append(s.buf[:0], s.buf[n:]...)
}
