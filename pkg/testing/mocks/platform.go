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
	"fmt"

	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/gpio"
	"github.com/ZaparooProject/tensile-core/pkg/platforms"
	"github.com/stretchr/testify/mock"
)

// MockPlatform is a mock implementation of the Platform interface using testify/mock
type MockPlatform struct {
	mock.Mock
}

// NewMockPlatform returns a MockPlatform with the common calls stubbed out
// against dirs rooted at root.
func NewMockPlatform(root string) *MockPlatform {
	m := &MockPlatform{}
	m.On("ID").Return("mock").Maybe()
	m.On("StartPre", mock.Anything).Return(nil).Maybe()
	m.On("Stop").Return(nil).Maybe()
	m.On("Settings").Return(platforms.Settings{
		DataDir:   root + "/data",
		ConfigDir: root + "/config",
		TempDir:   root + "/tmp",
		LogDir:    root + "/logs",
	}).Maybe()
	m.On("DefaultSerialPort").Return("/dev/mock0").Maybe()
	m.On("NewGPIO").Return(gpio.NewProxyController(), nil).Maybe()
	return m
}

// ID returns the unique ID of this platform
func (m *MockPlatform) ID() string {
	args := m.Called()
	return args.String(0)
}

// StartPre runs any necessary platform setup BEFORE the main service has started running
func (m *MockPlatform) StartPre(cfg *config.Instance) error {
	args := m.Called(cfg)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock platform start pre failed: %w", err)
	}
	return nil
}

// Stop runs any necessary cleanup tasks before the rest of the service starts shutting down
func (m *MockPlatform) Stop() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock platform stop failed: %w", err)
	}
	return nil
}

func (m *MockPlatform) Settings() platforms.Settings {
	args := m.Called()
	if s, ok := args.Get(0).(platforms.Settings); ok {
		return s
	}
	return platforms.Settings{}
}

func (m *MockPlatform) DefaultSerialPort() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockPlatform) NewGPIO() (gpio.Controller, error) {
	args := m.Called()
	if err := args.Error(1); err != nil {
		return nil, fmt.Errorf("mock platform gpio failed: %w", err)
	}
	ctrl, ok := args.Get(0).(gpio.Controller)
	if !ok {
		return nil, fmt.Errorf("mock platform gpio returned %T", args.Get(0))
	}
	return ctrl, nil
}
