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
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/stretchr/testify/mock"
)

// MockAPIClient is a mock implementation of client.APIClient for testing.
type MockAPIClient struct {
	mock.Mock
}

// NewMockAPIClient creates a new mock API client.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// Call mocks an HTTP request to the service.
func (m *MockAPIClient) Call(ctx context.Context, method, path, body string) (string, error) {
	args := m.Called(ctx, method, path, body)
	return args.String(0), args.Error(1)
}

// WaitNotification mocks waiting for a notification.
func (m *MockAPIClient) WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	notificationType string,
) (string, error) {
	args := m.Called(ctx, timeout, notificationType)
	return args.String(0), args.Error(1)
}

// SetupStatusResponse configures the mock to return a status response.
func (m *MockAPIClient) SetupStatusResponse(status *models.StatusResponse) {
	data, _ := json.Marshal(status)
	m.On("Call", mock.Anything, http.MethodGet, "/api/status", "").Return(string(data), nil)
}

// SetupStatusError configures the mock to return an error for status.
func (m *MockAPIClient) SetupStatusError(err error) {
	m.On("Call", mock.Anything, http.MethodGet, "/api/status", "").Return("", err)
}

// SetupCalibrationNotification configures the mock to deliver a finished
// calibration capture.
func (m *MockAPIClient) SetupCalibrationNotification(result *models.CalibrationResult) {
	data, _ := json.Marshal(result)
	m.On("WaitNotification", mock.Anything, mock.Anything, models.NotificationCalibration).
		Return(string(data), nil)
}
