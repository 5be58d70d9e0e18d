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
	"fmt"

	"github.com/ZaparooProject/tensile-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Subscriber receives every published frame. It runs on the reader goroutine,
// so it must return quickly or hand the frame off to another goroutine.
type Subscriber func(Frame) error

type registration struct {
	fn   Subscriber
	name string
}

// Registry is an append-only, insertion-ordered list of subscribers.
type Registry struct {
	subs []registration
	mu   syncutil.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe appends fn to the registry. The same function may be registered
// more than once and is then called once per registration. A subscriber only
// receives frames published after it was registered.
func (r *Registry) Subscribe(name string, fn Subscriber) {
	if fn == nil {
		return
	}

	r.mu.Lock()
	r.subs = append(r.subs, registration{name: name, fn: fn})
	count := len(r.subs)
	r.mu.Unlock()

	log.Debug().Str("subscriber", name).Int("count", count).Msg("sample subscriber registered")
}

// Publish calls every subscriber in registration order on the calling
// goroutine. A subscriber that fails or panics is logged and skipped; the
// remaining subscribers still receive the frame.
func (r *Registry) Publish(f Frame) {
	r.mu.RLock()
	subs := r.subs
	r.mu.RUnlock()

	// subs is append-only, so the snapshot stays valid without the lock
	for i := range subs {
		if err := deliver(subs[i], f); err != nil {
			log.Error().Err(err).Str("subscriber", subs[i].name).Msg("sample subscriber failed")
		}
	}
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func deliver(sub registration, f Frame) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("subscriber panicked: %v", rec)
		}
	}()
	return sub.fn(f)
}
