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

package notifications

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/samples"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendNotification_NonBlocking(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification)

	done := make(chan struct{})
	go func() {
		LinkStateChanged(ns, models.LinkStatus{State: "open"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("notification send blocked on full channel")
	}
}

func TestLinkStateChanged(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	LinkStateChanged(ns, models.LinkStatus{State: "connecting", Port: "/dev/ttyUSB0", Attempts: 3})

	n := <-ns
	assert.Equal(t, models.NotificationLinkState, n.Method)

	var got models.LinkStatus
	require.NoError(t, json.Unmarshal(n.Params, &got))
	assert.Equal(t, "connecting", got.State)
	assert.Equal(t, int64(3), got.Attempts)
}

func TestCalibrationFinished(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	CalibrationFinished(ns, models.CalibrationResult{Channel: "ch1", Process: "zero", Average: 11, Readings: 3})

	n := <-ns
	assert.Equal(t, models.NotificationCalibration, n.Method)
	assert.JSONEq(t,
		`{"channel":"ch1","process":"zero","average":11,"readings":3}`,
		string(n.Params))
}

func TestSample(t *testing.T) {
	t.Parallel()

	n, err := Sample(samples.Frame{RawCh1: 100, RawCh3: -50, ValueCh1: 100, ValueCh3: -50})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationSample, n.Method)

	var body map[string]any
	require.NoError(t, json.Unmarshal(n.Params, &body))
	assert.InDelta(t, 100.0, body["ch1_adc"], 0)
	assert.InDelta(t, -50.0, body["ch3"], 0)
}
