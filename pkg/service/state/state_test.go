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

package state

import (
	"testing"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/samples"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLinkStatus_NotifiesOnChange(t *testing.T) {
	t.Parallel()
	st, ns := NewState()

	st.SetLinkStatus(models.LinkStatus{State: "connecting", Attempts: 1})
	st.SetLinkStatus(models.LinkStatus{State: "connecting", Attempts: 2})
	st.SetLinkStatus(models.LinkStatus{State: "open", Attempts: 2})

	require.Len(t, ns, 2)
	assert.Equal(t, models.NotificationLinkState, (<-ns).Method)
	assert.Equal(t, models.NotificationLinkState, (<-ns).Method)
	assert.Equal(t, "open", st.LinkStatus().State)
}

func TestSetLinkStatus_NotifiesOnNewDiagnostic(t *testing.T) {
	t.Parallel()
	st, ns := NewState()

	st.SetLinkStatus(models.LinkStatus{State: "connecting", Attempts: 1})
	st.SetLinkStatus(models.LinkStatus{State: "connecting", Attempts: 1, LastError: "permission denied"})
	st.SetLinkStatus(models.LinkStatus{State: "connecting", Attempts: 2, LastError: "permission denied"})

	require.Len(t, ns, 2)
	status := st.LinkStatus()
	assert.Equal(t, int64(2), status.Attempts)
	assert.Equal(t, "permission denied", status.LastError)
}

func TestLastFrame(t *testing.T) {
	t.Parallel()
	st, _ := NewState()

	_, ok := st.LastFrame()
	assert.False(t, ok)

	f := samples.Frame{RawCh1: 5, ValueCh1: 5, Time: time.Unix(100, 0)}
	st.SetLastFrame(f)

	got, ok := st.LastFrame()
	assert.True(t, ok)
	assert.Equal(t, f, got)
}

func TestStopService(t *testing.T) {
	t.Parallel()
	st, _ := NewState()
	assert.False(t, st.ShouldStopService())

	st.StopService()
	assert.True(t, st.ShouldStopService())
	select {
	case <-st.GetContext().Done():
	default:
		t.Fatal("context not cancelled")
	}
}
