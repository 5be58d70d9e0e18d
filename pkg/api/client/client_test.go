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

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/olahol/melody"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfigWithPort creates a config pointing the client at port.
func testConfigWithPort(t *testing.T, port int) *config.Instance {
	t.Helper()
	defaults := config.BaseDefaults
	defaults.Service.APIPort = &port
	cfg, err := config.NewConfig(t.TempDir(), defaults)
	require.NoError(t, err)
	return cfg
}

// parseServerPort extracts the port from an httptest.Server URL.
func parseServerPort(t *testing.T, server *httptest.Server) int {
	t.Helper()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return port
}

// unusedPort returns a port with nothing listening on it.
func unusedPort(t *testing.T) int {
	t.Helper()
	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())
	return port
}

func TestLocalClient_ValidRequest(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/channels/ch1/tare", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"key":"value"}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	cfg := testConfigWithPort(t, parseServerPort(t, server))
	result, err := LocalClient(context.Background(), cfg, http.MethodPost, "/api/channels/ch1/tare", `{"key":"value"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, result)
}

func TestLocalClient_InvalidBody(t *testing.T) {
	t.Parallel()

	cfg := testConfigWithPort(t, unusedPort(t))
	_, err := LocalClient(context.Background(), cfg, http.MethodPost, "/api/link/write", "{not json")
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestLocalClient_APIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{
			Error:  "cal_capacity must be greater than 0",
			Fields: []string{"cal_capacity"},
		})
	}))
	defer server.Close()

	cfg := testConfigWithPort(t, parseServerPort(t, server))
	_, err := LocalClient(context.Background(), cfg, http.MethodPatch, "/api/calibration/ch1", `{"cal_capacity":-1}`)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, []string{"cal_capacity"}, apiErr.Fields)
}

func TestLocalClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	cfg := testConfigWithPort(t, unusedPort(t))
	_, err := LocalClient(context.Background(), cfg, http.MethodGet, "/api/status", "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRequestTimeout))
}

func TestLocalClient_Cancelled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := testConfigWithPort(t, parseServerPort(t, server))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := LocalClient(ctx, cfg, http.MethodGet, "/api/status", "")
	require.ErrorIs(t, err, ErrRequestCancelled)
}

func newNotificationServer(t *testing.T, sends ...models.Notification) *httptest.Server {
	t.Helper()
	m := melody.New()
	m.HandleConnect(func(s *melody.Session) {
		for _, n := range sends {
			data, err := json.Marshal(n)
			if err != nil {
				continue
			}
			_ = s.Write(data)
		}
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = m.HandleRequest(w, r)
	}))
	t.Cleanup(func() {
		_ = m.Close()
		server.Close()
	})
	return server
}

func TestWaitNotification_Matches(t *testing.T) {
	t.Parallel()

	server := newNotificationServer(t,
		models.Notification{Method: models.NotificationSample, Params: json.RawMessage(`{"ch1":1}`)},
		models.Notification{Method: models.NotificationCalibration, Params: json.RawMessage(`{"channel":"ch1"}`)},
	)
	cfg := testConfigWithPort(t, parseServerPort(t, server))

	params, err := WaitNotification(context.Background(), time.Second, cfg, models.NotificationCalibration)
	require.NoError(t, err)
	assert.JSONEq(t, `{"channel":"ch1"}`, params)
}

func TestWaitNotification_Timeout(t *testing.T) {
	t.Parallel()

	server := newNotificationServer(t)
	cfg := testConfigWithPort(t, parseServerPort(t, server))

	_, err := WaitNotification(context.Background(), 50*time.Millisecond, cfg, models.NotificationCalibration)
	require.ErrorIs(t, err, ErrRequestTimeout)
}

func TestWaitNotification_Cancelled(t *testing.T) {
	t.Parallel()

	server := newNotificationServer(t)
	cfg := testConfigWithPort(t, parseServerPort(t, server))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := WaitNotification(ctx, -1, cfg, models.NotificationCalibration)
	require.ErrorIs(t, err, ErrRequestCancelled)
}

func TestLocalAPIClient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"version":"1"}`))
	}))
	defer server.Close()

	var c APIClient = NewLocalAPIClient(testConfigWithPort(t, parseServerPort(t, server)))
	resp, err := c.Call(context.Background(), http.MethodGet, "/api/version", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1"}`, resp)
}
