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

// Package state holds the runtime state shared between the acquisition
// service and the API.
package state

import (
	"context"

	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/api/notifications"
	"github.com/ZaparooProject/tensile-core/pkg/helpers/syncutil"
	"github.com/ZaparooProject/tensile-core/pkg/samples"
)

// State holds the runtime state of the service.
//
// LOCKING RULES: never send notifications while holding mu. Pattern:
// lock, modify, copy the payload, unlock, then notify.
type State struct {
	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	Notifications chan<- models.Notification
	link          models.LinkStatus
	lastFrame     samples.Frame
	mu            syncutil.RWMutex
	hasFrame      bool
	stopService   bool
}

func NewState() (state *State, notificationCh <-chan models.Notification) {
	ns := make(chan models.Notification, 100)
	ctx, ctxCancelFunc := context.WithCancel(context.Background())
	return &State{
		Notifications: ns,
		ctx:           ctx,
		ctxCancelFunc: ctxCancelFunc,
		link:          models.LinkStatus{State: "idle"},
	}, ns
}

// SetLinkStatus records the link status and notifies clients when the
// connection state or its diagnostic changed.
func (s *State) SetLinkStatus(status models.LinkStatus) {
	s.mu.Lock()
	changed := s.link.State != status.State || s.link.LastError != status.LastError
	s.link = status
	s.mu.Unlock()

	if changed {
		notifications.LinkStateChanged(s.Notifications, status)
	}
}

func (s *State) LinkStatus() models.LinkStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.link
}

// SetLastFrame is called from the reader goroutine for every sample.
func (s *State) SetLastFrame(f samples.Frame) {
	s.mu.Lock()
	s.lastFrame = f
	s.hasFrame = true
	s.mu.Unlock()
}

// LastFrame returns the newest sample, if any arrived yet.
func (s *State) LastFrame() (samples.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFrame, s.hasFrame
}

func (s *State) StopService() {
	s.mu.Lock()
	s.stopService = true
	s.mu.Unlock()
	s.ctxCancelFunc()
}

func (s *State) ShouldStopService() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopService
}

func (s *State) GetContext() context.Context {
	return s.ctx
}
