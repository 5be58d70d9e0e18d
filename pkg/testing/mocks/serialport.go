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

package mocks

import (
	"errors"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/helpers/syncutil"
)

var ErrPortClosed = errors.New("port closed")

// MockSerialPort is an in-memory serial port. Data queued with Feed is
// returned by Read one queued chunk at a time; with nothing queued Read
// waits for the read timeout (capped at 10ms) and returns no data.
type MockSerialPort struct {
	ReadError  error
	CloseError error
	TimeoutErr error
	WriteError error
	ReadFunc   func(p []byte) (n int, err error)
	chunks     [][]byte
	written    []byte
	timeout    time.Duration
	mu         syncutil.RWMutex
	closed     bool
}

// NewMockSerialPort creates a new mock serial port for testing.
func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{timeout: -1}
}

// Feed queues data to be returned by subsequent reads.
func (m *MockSerialPort) Feed(data ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range data {
		c := make([]byte, len(d))
		copy(c, d)
		m.chunks = append(m.chunks, c)
	}
}

// SetReadFunc replaces the read behavior of a port that may be in use.
func (m *MockSerialPort) SetReadFunc(fn func(p []byte) (int, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadFunc = fn
}

// SetReadError makes subsequent reads fail with err.
func (m *MockSerialPort) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadError = err
}

func (m *MockSerialPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrPortClosed
	}
	if m.ReadFunc != nil {
		fn := m.ReadFunc
		m.mu.Unlock()
		return fn(p)
	}
	if m.ReadError != nil {
		err := m.ReadError
		m.mu.Unlock()
		return 0, err
	}
	if len(m.chunks) == 0 {
		wait := 10 * time.Millisecond
		if m.timeout >= 0 && m.timeout < wait {
			wait = m.timeout
		}
		m.mu.Unlock()
		time.Sleep(wait)
		return 0, nil
	}

	n := copy(p, m.chunks[0])
	if n == len(m.chunks[0]) {
		m.chunks = m.chunks[1:]
	} else {
		m.chunks[0] = m.chunks[0][n:]
	}
	m.mu.Unlock()
	return n, nil
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrPortClosed
	}
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	m.written = append(m.written, p...)
	return len(p), nil
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.CloseError
}

func (m *MockSerialPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TimeoutErr != nil {
		return m.TimeoutErr
	}
	m.timeout = t
	return nil
}

// ResetInputBuffer drops all queued data.
func (m *MockSerialPort) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	return nil
}

// IsClosed returns true if the port has been closed.
func (m *MockSerialPort) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Written returns a copy of everything written to the port.
func (m *MockSerialPort) Written() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]byte, len(m.written))
	copy(out, m.written)
	return out
}

// ReadTimeout returns the last timeout set on the port.
func (m *MockSerialPort) ReadTimeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timeout
}

// Pending returns the number of queued chunks not yet read.
func (m *MockSerialPort) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}
