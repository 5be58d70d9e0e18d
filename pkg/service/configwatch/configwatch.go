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


// Package configwatch reloads the config file when it changes on disk.
package configwatch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce coalesces the burst of events an editor produces when
// saving a file.
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc applies the new config. Errors are logged and the watcher keeps
// running.
type ReloadFunc func(ctx context.Context) error

type Watcher struct {
	fw       *fsnotify.Watcher
	clock    clockwork.Clock
	reload   ReloadFunc
	path     string
	debounce time.Duration
}

// New watches the directory holding path, so files replaced by rename are
// still seen. A nil clock uses the real clock.
func New(path string, reload ReloadFunc, clock clockwork.Clock) (*Watcher, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch config dir (%s): %w", dir, err)
	}

	return &Watcher{
		fw:       fw,
		clock:    clock,
		reload:   reload,
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
	}, nil
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// Run blocks until ctx is done, reloading once per burst of changes. The
// underlying watcher is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.fw.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close config watcher")
		}
	}()

	log.Info().Str("path", w.path).Msg("watching config file")

	var timer clockwork.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			log.Debug().Str("op", ev.Op.String()).Msg("config file changed")
			if timer == nil {
				timer = w.clock.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.Chan()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("error in config watcher")
		case <-fire:
			fire = nil
			log.Info().Str("path", w.path).Msg("reloading changed config file")
			if err := w.reload(ctx); err != nil {
				log.Error().Err(err).Msg("failed to apply changed config, keeping previous values")
			}
		}
	}
}
