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

package samples

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DeliversInRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var order []string
	for _, name := range []string{"home", "testing", "calibration"} {
		r.Subscribe(name, func(Frame) error {
			order = append(order, name)
			return nil
		})
	}

	r.Publish(Frame{RawCh1: 1})

	assert.Equal(t, []string{"home", "testing", "calibration"}, order)
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_LateSubscriberGetsOnlyNewFrames(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var early, late []int16
	r.Subscribe("early", func(f Frame) error {
		early = append(early, f.RawCh1)
		return nil
	})

	r.Publish(Frame{RawCh1: 1})
	r.Publish(Frame{RawCh1: 2})

	r.Subscribe("late", func(f Frame) error {
		late = append(late, f.RawCh1)
		return nil
	})

	r.Publish(Frame{RawCh1: 3})

	assert.Equal(t, []int16{1, 2, 3}, early)
	assert.Equal(t, []int16{3}, late)
}

func TestRegistry_IsolatesFailingSubscribers(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var got []string
	r.Subscribe("errors", func(Frame) error {
		got = append(got, "errors")
		return errors.New("display gone")
	})
	r.Subscribe("panics", func(Frame) error {
		got = append(got, "panics")
		panic("boom")
	})
	r.Subscribe("healthy", func(Frame) error {
		got = append(got, "healthy")
		return nil
	})

	require.NotPanics(t, func() { r.Publish(Frame{}) })
	assert.Equal(t, []string{"errors", "panics", "healthy"}, got)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	calls := 0
	fn := func(Frame) error {
		calls++
		return nil
	}
	r.Subscribe("a", fn)
	r.Subscribe("a", fn)

	r.Publish(Frame{})

	assert.Equal(t, 2, calls)
}

func TestRegistry_NilSubscriberIgnored(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Subscribe("nil", nil)

	assert.Equal(t, 0, r.Len())
	assert.NotPanics(t, func() { r.Publish(Frame{}) })
}

func TestRegistry_ConcurrentSubscribeAndPublish(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 100 {
			r.Subscribe("x", func(Frame) error { return nil })
		}
	}()
	go func() {
		defer wg.Done()
		for range 100 {
			r.Publish(Frame{Time: time.Now()})
		}
	}()
	wg.Wait()

	assert.Equal(t, 100, r.Len())
}

func TestFrame_Accessors(t *testing.T) {
	t.Parallel()

	f := Frame{RawCh1: 1, RawCh2: 2, RawCh3: 3, ValueCh1: 1.5, ValueCh2: 2.5, ValueCh3: 3.5}

	for i, ch := range Channels {
		raw, ok := f.Raw(ch)
		require.True(t, ok)
		assert.Equal(t, int16(i+1), raw)

		val, ok := f.Value(ch)
		require.True(t, ok)
		assert.InDelta(t, float64(i+1)+0.5, val, 1e-9)
	}

	_, ok := f.Raw("ch9")
	assert.False(t, ok)
	_, ok = f.Value("ch9")
	assert.False(t, ok)
}
