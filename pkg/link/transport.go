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

package link

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrPortNotFound     = errors.New("port not found")
	ErrNotOpen          = errors.New("port not open")
	ErrNoPort           = errors.New("no port configured")
)

// Transport owns the handle of one serial device. Configure stores the
// connection parameters; the device is only claimed by Open.
type Transport struct {
	port     SerialPort
	factory  PortFactory
	settings Settings
	timeout  time.Duration
	mu       syncutil.Mutex
	readMu   syncutil.Mutex
}

// NewTransport returns a closed transport. A nil factory opens real ports.
func NewTransport(factory PortFactory) *Transport {
	if factory == nil {
		factory = DefaultPortFactory
	}
	return &Transport{
		factory:  factory,
		settings: DefaultSettings(""),
	}
}

// Configure replaces the connection parameters. Zero values fall back to the
// defaults. An open port keeps its current parameters until reopened.
//
//nolint:gocritic // settings copied by value
func (t *Transport) Configure(s Settings) {
	s = s.withDefaults()
	t.mu.Lock()
	t.settings = s
	t.mu.Unlock()
	log.Debug().
		Str("port", s.Port).
		Int("baud", s.BaudRate).
		Dur("timeout", s.ReadTimeout).
		Msg("serial link configured")
}

func (t *Transport) Settings() Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings
}

// Open claims the configured device, closing any handle that is already
// open. Permission and missing-device failures wrap ErrPermissionDenied and
// ErrPortNotFound.
func (t *Transport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		if err := t.port.Close(); err != nil {
			log.Debug().Err(err).Msg("error closing previous serial port handle")
		}
		t.port = nil
	}

	s := t.settings
	if s.Port == "" {
		return ErrNoPort
	}

	port, err := t.factory(s.Port, s.mode())
	if err != nil {
		return classifyOpenError(s.Port, err)
	}

	if err := port.SetReadTimeout(s.ReadTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("failed to set read timeout on %s: %w", s.Port, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		log.Debug().Err(err).Str("port", s.Port).Msg("failed to reset input buffer")
	}

	t.port = port
	t.timeout = s.ReadTimeout
	log.Info().Str("port", s.Port).Int("baud", s.BaudRate).Msg("serial port opened")
	return nil
}

func classifyOpenError(path string, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PermissionDenied:
			return fmt.Errorf("%w: %s: %w", ErrPermissionDenied, path, err)
		case serial.PortNotFound:
			return fmt.Errorf("%w: %s: %w", ErrPortNotFound, path, err)
		default:
		}
	}
	switch {
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %s: %w", ErrPermissionDenied, path, err)
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s: %w", ErrPortNotFound, path, err)
	default:
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
}

// IsOpen reports whether a device handle exists.
func (t *Transport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Close releases the device handle. Closing a closed transport is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	port := t.port
	t.port = nil
	path := t.settings.Port
	t.mu.Unlock()

	if port == nil {
		return nil
	}
	if err := port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	log.Info().Str("port", path).Msg("serial port closed")
	return nil
}

// Write sends payload, followed by the configured newline when terminate is
// set. It returns false without error when no device is open.
func (t *Transport) Write(payload []byte, terminate bool) (bool, error) {
	t.mu.Lock()
	port := t.port
	s := t.settings
	t.mu.Unlock()

	if port == nil {
		log.Warn().Msg("serial write requested with no open port")
		return false, nil
	}

	buf := payload
	if terminate {
		buf = make([]byte, 0, len(payload)+len(s.Newline))
		buf = append(buf, payload...)
		buf = append(buf, s.Newline...)
	}

	n, err := port.Write(buf)
	if err != nil {
		return false, fmt.Errorf("failed to write to %s: %w", s.Port, err)
	}
	log.Debug().Str("port", s.Port).Int("bytes", n).Msg("wrote to serial port")
	return true, nil
}

// Read reads into p using the configured read timeout.
func (t *Transport) Read(p []byte) (int, error) {
	t.readMu.Lock()
	defer t.readMu.Unlock()
	port, err := t.portWithTimeout(t.Settings().ReadTimeout)
	if err != nil {
		return 0, err
	}
	n, err := port.Read(p)
	if err != nil {
		return n, fmt.Errorf("failed to read from serial port: %w", err)
	}
	return n, nil
}

// ReadChunk reads up to n bytes, waiting at most timeout. A timeout with no
// data returns a nil slice and no error.
func (t *Transport) ReadChunk(n int, timeout time.Duration) ([]byte, error) {
	t.readMu.Lock()
	defer t.readMu.Unlock()
	port, err := t.portWithTimeout(timeout)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	read, err := port.Read(buf)
	if err != nil {
		if !t.isCurrent(port) {
			// closed or replaced while the read was blocked
			return nil, ErrNotOpen
		}
		return nil, fmt.Errorf("failed to read from serial port: %w", err)
	}
	if read == 0 {
		return nil, nil
	}
	return buf[:read], nil
}

func (t *Transport) isCurrent(port SerialPort) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port == port
}

func (t *Transport) portWithTimeout(timeout time.Duration) (SerialPort, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil, ErrNotOpen
	}
	if t.timeout != timeout {
		if err := t.port.SetReadTimeout(timeout); err != nil {
			return nil, fmt.Errorf("failed to set read timeout: %w", err)
		}
		t.timeout = timeout
	}
	return t.port, nil
}
