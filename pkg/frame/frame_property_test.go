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
	"bytes"
	"errors"
	"testing"

	"pgregory.net/rapid"
)

// TestPropertyDecodeEncodedFrame verifies every valid frame decodes bit-exactly.
func TestPropertyDecodeEncodedFrame(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		want := Raw{
			Ch1: rapid.Int16().Draw(t, "ch1"),
			Ch2: rapid.Int16().Draw(t, "ch2"),
			Ch3: rapid.Int16().Draw(t, "ch3"),
		}

		got, err := Decode(Encode(want))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Fatalf("decoded %+v, want %+v", got, want)
		}
	})
}

// TestPropertyDecodeIgnoresTrailingPayload verifies additional payload bytes
// do not change the extracted readings.
func TestPropertyDecodeIgnoresTrailingPayload(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		want := Raw{
			Ch1: rapid.Int16().Draw(t, "ch1"),
			Ch2: rapid.Int16().Draw(t, "ch2"),
			Ch3: rapid.Int16().Draw(t, "ch3"),
		}
		extra := rapid.SliceOfN(rapid.Byte(), 0, 16).Draw(t, "extra")

		encoded := Encode(want)
		chunk := make([]byte, 0, len(encoded)+len(extra))
		chunk = append(chunk, encoded[:Size-len(EndMarker)]...)
		chunk = append(chunk, extra...)
		chunk = append(chunk, EndMarker...)

		got, err := Decode(chunk)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Fatalf("decoded %+v, want %+v", got, want)
		}
	})
}

// TestPropertyDecodeRejectsUnmarkedChunks verifies chunks without both
// markers are always rejected.
func TestPropertyDecodeRejectsUnmarkedChunks(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		chunk := rapid.SliceOfN(rapid.Byte(), 0, 32).Draw(t, "chunk")
		if bytes.HasPrefix(chunk, StartMarker) && bytes.HasSuffix(chunk, EndMarker) {
			return
		}

		_, err := Decode(chunk)
		if !errors.Is(err, ErrFraming) {
			t.Fatalf("expected framing error for %x, got %v", chunk, err)
		}
	})
}
