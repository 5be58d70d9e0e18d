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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrInvalidParams    = errors.New("invalid params")
	ErrRequestCancelled = errors.New("request cancelled")
)

const SamplesPath = "/api/samples"

// APIError is a non-2xx answer of the service.
type APIError struct {
	Message string
	Fields  []string
	Status  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func localURL(cfg *config.Instance, scheme, path string) string {
	u := url.URL{
		Scheme: scheme,
		Host:   "localhost:" + strconv.Itoa(cfg.APIPort()),
		Path:   path,
	}
	return u.String()
}

// LocalClient sends a single request to the local running service and
// returns the response body. body may be empty; otherwise it must be JSON.
func LocalClient(
	ctx context.Context,
	cfg *config.Instance,
	method string,
	path string,
	body string,
) (string, error) {
	var rd io.Reader = http.NoBody
	if body != "" {
		if !json.Valid([]byte(body)) {
			return "", ErrInvalidParams
		}
		rd = bytes.NewBufferString(body)
	}

	ctx, cancel := context.WithTimeout(ctx, config.APIRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, localURL(cfg, "http", path), rd)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return "", ErrRequestTimeout
		case errors.Is(err, context.Canceled):
			return "", ErrRequestCancelled
		default:
			return "", fmt.Errorf("request failed: %w", err)
		}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing response body")
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e models.ErrorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
			apiErr.Fields = e.Fields
		}
		return "", apiErr
	}

	return string(data), nil
}

// WaitNotification connects to the sample stream and blocks until a
// notification named method arrives, returning its params. A zero timeout
// uses the API request timeout; a negative one waits until ctx is done.
func WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	cfg *config.Instance,
	method string,
) (string, error) {
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, localURL(cfg, "ws", SamplesPath), nil)
	if err != nil {
		return "", fmt.Errorf("failed to connect: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func(c *websocket.Conn) {
		err := c.Close()
		if err != nil {
			log.Debug().Err(err).Msg("error closing websocket")
		}
	}(c)

	done := make(chan struct{})
	var params json.RawMessage

	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("websocket read ended")
				return
			}

			var n models.Notification
			if err := json.Unmarshal(message, &n); err != nil {
				continue
			}
			if n.Method != method {
				continue
			}

			params = n.Params
			return
		}
	}()

	var timerChan <-chan time.Time
	if timeout == 0 {
		timeout = config.APIRequestTimeout
	}
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerChan = timer.C
	}
	// or else leave chan nil, which will never receive

	select {
	case <-done:
	case <-timerChan:
		_ = c.Close()
		<-done
		return "", ErrRequestTimeout
	case <-ctx.Done():
		_ = c.Close()
		<-done
		return "", ErrRequestCancelled
	}

	if params == nil {
		return "", ErrRequestTimeout
	}
	return string(params), nil
}
