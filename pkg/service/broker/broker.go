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

// Package broker hands messages off the goroutine that produced them to any
// number of consumers without ever blocking the producer.
package broker

import (
	"context"

	"github.com/ZaparooProject/tensile-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// dropLogEvery limits drop warnings for a subscriber that stays full.
const dropLogEvery = 100

type subscriber[T any] struct {
	ch      chan T
	dropped int
}

// Broker broadcasts values read from a source channel to subscribers. A
// subscriber whose buffer is full misses the value; the broker never waits.
type Broker[T any] struct {
	ctx         context.Context
	source      <-chan T
	subscribers map[int]*subscriber[T]
	done        chan struct{}
	name        string
	mu          syncutil.RWMutex
	nextID      int
}

func NewBroker[T any](ctx context.Context, name string, source <-chan T) *Broker[T] {
	return &Broker[T]{
		ctx:         ctx,
		name:        name,
		source:      source,
		subscribers: make(map[int]*subscriber[T]),
		done:        make(chan struct{}),
	}
}

// Offer is a non-blocking send into a broker source channel. It reports
// false when the channel is full.
func Offer[T any](source chan<- T, v T) bool {
	select {
	case source <- v:
		return true
	default:
		return false
	}
}

// Start runs the broadcast loop until the source closes or the context is
// cancelled, then closes every subscriber channel.
func (b *Broker[T]) Start() {
	go func() {
		defer close(b.done)
		for {
			select {
			case v, ok := <-b.source:
				if !ok {
					log.Debug().Str("broker", b.name).Msg("broker: source channel closed")
					b.closeAllSubscribers()
					return
				}
				b.broadcast(v)
			case <-b.ctx.Done():
				log.Debug().Str("broker", b.name).Msg("broker: context cancelled, shutting down")
				b.closeAllSubscribers()
				return
			}
		}
	}()
}

// Done is closed once the broadcast loop has exited.
func (b *Broker[T]) Done() <-chan struct{} {
	return b.done
}

func (b *Broker[T]) broadcast(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		select {
		case sub.ch <- v:
		default:
			if sub.dropped%dropLogEvery == 0 {
				log.Warn().
					Str("broker", b.name).
					Int("subscriber_id", id).
					Int("dropped", sub.dropped+1).
					Msg("subscriber channel full, dropping message")
			}
			sub.dropped++
		}
	}
}

// Subscribe registers a consumer with a buffer of bufferSize messages.
func (b *Broker[T]) Subscribe(bufferSize int) (ch <-chan T, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++

	sub := &subscriber[T]{ch: make(chan T, bufferSize)}
	b.subscribers[id] = sub

	log.Debug().
		Str("broker", b.name).
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Msg("new subscriber registered")

	return sub.ch, id
}

// Unsubscribe removes a subscription and closes its channel. Unknown ids
// are ignored.
func (b *Broker[T]) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
		log.Debug().Str("broker", b.name).Int("subscriber_id", id).Msg("subscriber unsubscribed")
	}
}

// Dropped returns how many messages subscriber id has missed.
func (b *Broker[T]) Dropped(id int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if sub, ok := b.subscribers[id]; ok {
		return sub.dropped
	}
	return 0
}

func (b *Broker[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broker[T]) Stop() {
	b.closeAllSubscribers()
}

func (b *Broker[T]) closeAllSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		close(sub.ch)
		log.Debug().Str("broker", b.name).Int("subscriber_id", id).Msg("closed subscriber channel on shutdown")
	}
	b.subscribers = make(map[int]*subscriber[T])
}
