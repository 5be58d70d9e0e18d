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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner_AlignedFrame(t *testing.T) {
	t.Parallel()

	s := NewScanner(0)
	s.Write(Encode(Raw{Ch1: 1, Ch2: 2, Ch3: 3}))

	candidate, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, Encode(Raw{Ch1: 1, Ch2: 2, Ch3: 3}), candidate)
	assert.Equal(t, Size, s.Buffered(), "Next must not consume")

	s.Consume()
	assert.Equal(t, 0, s.Buffered())
	assert.Equal(t, 0, s.Dropped())
}

func TestScanner_DropsGarbageBeforeMarker(t *testing.T) {
	t.Parallel()

	s := NewScanner(0)
	s.Write([]byte{0x01, 0x02, '#'})
	s.Write(Encode(Raw{Ch1: 7}))

	candidate, ok := s.Next()
	require.True(t, ok)

	raw, err := Decode(candidate)
	require.NoError(t, err)
	assert.Equal(t, int16(7), raw.Ch1)
	assert.Equal(t, 3, s.Dropped())
}

func TestScanner_FrameSplitAcrossWrites(t *testing.T) {
	t.Parallel()

	s := NewScanner(0)
	encoded := Encode(Raw{Ch1: -5, Ch2: 6, Ch3: 7})

	s.Write(encoded[:4])
	_, ok := s.Next()
	assert.False(t, ok)

	s.Write(encoded[4:])
	candidate, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, encoded, candidate)
}

func TestScanner_KeepsTrailingHalfMarker(t *testing.T) {
	t.Parallel()

	s := NewScanner(0)
	s.Write([]byte{0x10, 0x20, '$'})

	_, ok := s.Next()
	assert.False(t, ok)
	assert.Equal(t, 1, s.Buffered())

	encoded := Encode(Raw{Ch2: 99})
	s.Write(encoded[1:])

	candidate, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, encoded, candidate)
}

func TestScanner_SkipShiftsBoundary(t *testing.T) {
	t.Parallel()

	s := NewScanner(0)
	// stray '$' makes the first candidate misaligned by one byte
	s.Write([]byte{'$'})
	s.Write(Encode(Raw{Ch1: 42}))

	first, ok := s.Next()
	require.True(t, ok)
	_, err := Decode(first)
	require.ErrorIs(t, err, ErrFraming)

	s.Skip(1)

	second, ok := s.Next()
	require.True(t, ok)
	raw, err := Decode(second)
	require.NoError(t, err)
	assert.Equal(t, int16(42), raw.Ch1)
}

func TestScanner_BoundedBuffer(t *testing.T) {
	t.Parallel()

	s := NewScanner(Size * 2)
	for range 10 {
		s.Write(Encode(Raw{Ch1: 1}))
	}

	assert.Equal(t, Size*2, s.Buffered())
	assert.Equal(t, Size*8, s.Dropped())
}

func TestScanner_Reset(t *testing.T) {
	t.Parallel()

	s := NewScanner(0)
	s.Write(Encode(Raw{}))
	s.Reset()

	assert.Equal(t, 0, s.Buffered())
	_, ok := s.Next()
	assert.False(t, ok)
}
