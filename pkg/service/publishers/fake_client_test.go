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
package publishers

import (
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/helpers/syncutil"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// fakeClient records what the publisher sends. Only the calls the publisher
// makes are implemented; anything else panics on the nil embedded interface.
type fakeClient struct {
	mqtt.Client
	connectError error
	publishError error
	sent         []sentMessage
	disconnectN  int
	connected    bool
	mu           syncutil.Mutex
}

type sentMessage struct {
	payload any
	topic   string
}

func newFakeClient() *fakeClient {
	return &fakeClient{}
}

func (c *fakeClient) published() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMessage(nil), c.sent...)
}

func (c *fakeClient) disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectN
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectError != nil {
		return doneToken{err: c.connectError}
	}
	c.connected = true
	return doneToken{}
}

func (c *fakeClient) Disconnect(_ uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnectN++
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload any) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishError != nil {
		return doneToken{err: c.publishError}
	}
	c.sent = append(c.sent, sentMessage{topic: topic, payload: payload})
	return doneToken{}
}

// doneToken is a token that has already completed.
type doneToken struct {
	mqtt.Token
	err error
}

func (doneToken) WaitTimeout(time.Duration) bool { return true }

func (t doneToken) Error() error { return t.err }
