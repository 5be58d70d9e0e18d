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

package methods

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/api/models/requests"
	"github.com/ZaparooProject/tensile-core/pkg/api/validation"
	"github.com/ZaparooProject/tensile-core/pkg/calibration"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/database"
	"github.com/ZaparooProject/tensile-core/pkg/database/caldb"
	"github.com/ZaparooProject/tensile-core/pkg/gpio"
	"github.com/ZaparooProject/tensile-core/pkg/link"
	"github.com/ZaparooProject/tensile-core/pkg/samples"
	"github.com/ZaparooProject/tensile-core/pkg/service/state"
	"github.com/ZaparooProject/tensile-core/pkg/testing/helpers"
	"github.com/ZaparooProject/tensile-core/pkg/testing/mocks"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

type testEnv struct {
	env           requests.RequestEnv
	clock         *clockwork.FakeClock
	port          *mocks.MockSerialPort
	gpio          *gpio.ProxyController
	notifications <-chan models.Notification
}

// newTestEnv wires a request env around a real sqlite calibration store, a
// mock serial port and the gpio proxy.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cfg, err := config.NewConfig(dir, config.BaseDefaults)
	require.NoError(t, err)

	db, cleanup := helpers.NewTestDatabase(t)
	t.Cleanup(cleanup)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := clockwork.NewFakeClock()
	st, ns := state.NewState()
	bank := calibration.NewBank(samples.Channels)

	port := mocks.NewMockSerialPort()
	tr := link.NewTransport(func(_ string, _ *serial.Mode) (link.SerialPort, error) {
		return port, nil
	})
	tr.Configure(link.DefaultSettings("/dev/ttyTEST"))
	sup := link.NewSupervisor(tr, link.SupervisorOptions{Clock: clock})
	t.Cleanup(sup.Halt)

	ctrl := gpio.NewProxyController()
	lines := gpio.NewLines(ctrl, map[string]int{"up": 17, "down": 27}, map[string]int{"limit": 22})
	require.NoError(t, lines.Setup(gpio.SchemeBCM))

	return &testEnv{
		env: requests.RequestEnv{
			Context:    ctx,
			Platform:   mocks.NewMockPlatform(dir),
			Config:     cfg,
			State:      st,
			Database:   db,
			Bank:       bank,
			Routine:    calibration.NewRoutine(ctx, bank, db.CalibrationDB, clock),
			Supervisor: sup,
			Transport:  tr,
			Lines:      lines,
			IsLocal:    true,
		},
		clock:         clock,
		port:          port,
		gpio:          ctrl,
		notifications: ns,
	}
}

func (te *testEnv) with(vars map[string]string, body string) requests.RequestEnv {
	env := te.env
	env.Vars = vars
	if body != "" {
		env.Params = json.RawMessage(body)
	}
	return env
}

func nextNotification(t *testing.T, ns <-chan models.Notification) models.Notification {
	t.Helper()
	select {
	case n := <-ns:
		return n
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
		return models.Notification{}
	}
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want int
	}{
		{name: "missing params", err: ErrMissingParams, want: http.StatusBadRequest},
		{name: "validation", err: &validation.Error{}, want: http.StatusBadRequest},
		{name: "invalid value", err: caldb.ErrInvalidValue, want: http.StatusBadRequest},
		{name: "unknown channel", err: calibration.ErrUnknownChannel, want: http.StatusNotFound},
		{name: "unknown line", err: gpio.ErrUnknownLine, want: http.StatusNotFound},
		{name: "capture busy", err: calibration.ErrCaptureInProgress, want: http.StatusConflict},
		{name: "not output", err: gpio.ErrNotOutput, want: http.StatusConflict},
		{name: "forbidden", err: ErrForbidden, want: http.StatusForbidden},
		{name: "unavailable", err: ErrUnavailable, want: http.StatusServiceUnavailable},
		{name: "other", err: errors.New("disk on fire"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestErrorBody_HidesInternalErrors(t *testing.T) {
	t.Parallel()

	body := ErrorBody(errors.New("open /secret/path: denied"))
	assert.Equal(t, "Internal Server Error", body.Error)

	body = ErrorBody(calibration.ErrUnknownChannel)
	assert.Equal(t, "unknown channel", body.Error)
}

func TestHandleVersion(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	result, err := HandleVersion(te.env)
	require.NoError(t, err)
	resp, ok := result.(models.VersionResponse)
	require.True(t, ok)
	assert.Equal(t, config.AppVersion, resp.Version)
	assert.Equal(t, "mock", resp.Platform)
}

func TestHandleStatus(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	te.env.State.SetLastFrame(samples.Frame{Time: now, RawCh1: 42, ValueCh1: 42})

	result, err := HandleStatus(te.env)
	require.NoError(t, err)
	resp, ok := result.(models.StatusResponse)
	require.True(t, ok)

	require.Len(t, resp.Channels, 3)
	assert.Equal(t, samples.Ch1, resp.Channels[0].ID)
	assert.Equal(t, int16(42), resp.Channels[0].Raw)
	assert.Equal(t, "42", resp.Channels[0].Formatted)
	require.NotNil(t, resp.LastSample)
	assert.True(t, now.Equal(*resp.LastSample))
	assert.Equal(t, "idle", resp.Link.State)
	assert.False(t, resp.Capture.Active)
}

func TestHandleTare(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	calc, err := te.env.Bank.Get(samples.Ch2)
	require.NoError(t, err)
	calc.Calculate(30)

	result, err := HandleTare(te.with(map[string]string{"channel": samples.Ch2}, ""))
	require.NoError(t, err)
	resp, ok := result.(models.ChannelResponse)
	require.True(t, ok)
	assert.InDelta(t, 30.0, resp.Tare, 0.0001)
	assert.InDelta(t, 0.0, calc.Calculate(30), 0.0001)

	n := nextNotification(t, te.notifications)
	assert.Equal(t, models.NotificationTare, n.Method)

	_, err = HandleResetTare(te.with(map[string]string{"channel": samples.Ch2}, ""))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, calc.Tare(), 0)
}

func TestHandleTare_UnknownChannel(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	_, err := HandleTare(te.with(map[string]string{"channel": "ch9"}, ""))
	require.ErrorIs(t, err, calibration.ErrUnknownChannel)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestHandleUpdateCalibration_ReloadsCalculator(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	result, err := HandleUpdateCalibration(te.with(
		map[string]string{"channel": samples.Ch1},
		`{"cal_zero": 100, "cal_span": 600, "cal_capacity": 50, "unknown": 1}`,
	))
	require.NoError(t, err)
	rec, ok := result.(calibration.Record)
	require.True(t, ok)
	assert.InDelta(t, 100.0, rec.CalZero, 0)
	assert.InDelta(t, 600.0, rec.CalSpan, 0)

	calc, err := te.env.Bank.Get(samples.Ch1)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, calc.MultiplicationFactor(), 1e-9)

	stored, err := te.env.Database.CalibrationDB.FetchCalibration(context.Background(), samples.Ch1)
	require.NoError(t, err)
	assert.Equal(t, rec, stored)
}

func TestHandleUpdateCalibration_Invalid(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	_, err := HandleUpdateCalibration(te.with(
		map[string]string{"channel": samples.Ch1},
		`{"resolution": -1}`,
	))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))

	_, err = HandleUpdateCalibration(te.with(map[string]string{"channel": samples.Ch1}, ""))
	require.ErrorIs(t, err, ErrMissingParams)
}

func TestHandleCalibrations_FillsDefaults(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	require.NoError(t, te.env.Database.CalibrationDB.UpdateCalibration(
		context.Background(), samples.Ch3, map[string]any{calibration.FieldDecimalPoint: 2},
	))

	result, err := HandleCalibrations(te.env)
	require.NoError(t, err)
	resp, ok := result.(models.CalibrationsResponse)
	require.True(t, ok)
	require.Len(t, resp.Calibrations, 3)
	assert.Equal(t, calibration.DefaultRecord(samples.Ch1), resp.Calibrations[0])
	assert.Equal(t, 2, resp.Calibrations[2].DecimalPoint)
}

func TestHandleCalibrations_StoreError(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	calDB := helpers.NewMockCalibrationDBI()
	calDB.On("ListCalibrations", te.env.Context).Return(nil, errors.New("locked"))
	te.env.Database = &database.Database{CalibrationDB: calDB}

	_, err := HandleCalibrations(te.env)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	calDB.AssertExpectations(t)
}

func TestHandleResetCalibration(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)
	vars := map[string]string{"channel": samples.Ch1}

	_, err := HandleUpdateCalibration(te.with(vars, `{"cal_span": 50}`))
	require.NoError(t, err)

	result, err := HandleResetCalibration(te.with(vars, ""))
	require.NoError(t, err)
	assert.Equal(t, NoContent{}, result)

	calc, err := te.env.Bank.Get(samples.Ch1)
	require.NoError(t, err)
	assert.Equal(t, calibration.DefaultRecord(samples.Ch1), calc.Record())
}

func TestHandleCalibrate(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)
	vars := map[string]string{"channel": samples.Ch1}

	result, err := HandleCalibrate(te.with(vars, `{"process":"zero","seconds":2}`))
	require.NoError(t, err)
	accepted, ok := result.(Accepted)
	require.True(t, ok)
	assert.Equal(t, models.CaptureStatus{Active: true}, accepted.Body)

	_, err = HandleCalibrate(te.with(vars, `{"process":"span"}`))
	require.ErrorIs(t, err, calibration.ErrCaptureInProgress)
	assert.Equal(t, http.StatusConflict, StatusCode(err))

	for _, raw := range []int16{10, 20, 31} {
		require.NoError(t, te.env.Routine.HandleFrame(samples.Frame{RawCh1: raw}))
	}
	require.NoError(t, te.clock.BlockUntilContext(te.env.Context, 1))
	te.clock.Advance(2 * time.Second)

	select {
	case res := <-te.env.Routine.Results():
		require.NoError(t, res.Err)
		assert.Equal(t, int64(20), res.Average)
	case <-time.After(time.Second):
		t.Fatal("capture did not finish")
	}

	calc, err := te.env.Bank.Get(samples.Ch1)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, calc.Record().CalZero, 0)
}

func TestHandleCalibrate_BadProcess(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	_, err := HandleCalibrate(te.with(map[string]string{"channel": samples.Ch1}, `{"process":"tare"}`))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestHandleLinkWrite(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	result, err := HandleLinkWrite(te.with(nil, `{"payload":"START"}`))
	require.NoError(t, err)
	assert.Equal(t, models.LinkWriteResponse{Written: false}, result)

	require.NoError(t, te.env.Transport.Open())

	result, err = HandleLinkWrite(te.with(nil, `{"payload":"START"}`))
	require.NoError(t, err)
	assert.Equal(t, models.LinkWriteResponse{Written: true}, result)

	_, err = HandleLinkWrite(te.with(nil, `{"payload":"P","terminate":false}`))
	require.NoError(t, err)
	assert.Equal(t, "START\r\nP", string(te.port.Written()))
}

func TestHandleLinkWrite_ReadsReply(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)
	require.NoError(t, te.env.Transport.Open())
	te.port.Feed([]byte("OK\r\nextra"))

	result, err := HandleLinkWrite(te.with(nil, `{"payload":"VER","replyBytes":4}`))
	require.NoError(t, err)
	resp, ok := result.(models.LinkWriteResponse)
	require.True(t, ok)
	assert.True(t, resp.Written)
	require.NotNil(t, resp.Reply)
	assert.Equal(t, "OK\r\n", *resp.Reply)

	result, err = HandleLinkWrite(te.with(nil, `{"payload":"VER","replyBytes":4}`))
	require.NoError(t, err)
	resp, ok = result.(models.LinkWriteResponse)
	require.True(t, ok)
	require.NotNil(t, resp.Reply)
	assert.Equal(t, "extr", *resp.Reply)

	_, err = HandleLinkWrite(te.with(nil, `{"payload":"VER","replyBytes":1000}`))
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "replyBytes", verr.Fields[0].Field)
}

func TestHandleLinkConnect_SwitchesPort(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	_, err := HandleLinkConnect(te.with(nil, `{"port":"/dev/ttyACM3"}`))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM3", te.env.Transport.Settings().Port)
	assert.Equal(t, "/dev/ttyACM3", te.env.Config.SerialPort())
	assert.Eventually(t, te.env.Transport.IsOpen, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return te.env.Supervisor.State() == link.StateOpen
	}, time.Second, 5*time.Millisecond)

	_, err = HandleLinkHalt(te.env)
	require.NoError(t, err)
	assert.False(t, te.env.Transport.IsOpen())
	assert.Equal(t, link.StateIdle, te.env.Supervisor.State())
}

func TestHandleLinkConnect_InvalidPort(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	_, err := HandleLinkConnect(te.with(nil, `{"port":"/etc/passwd"}`))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.Equal(t, "/dev/ttyTEST", te.env.Transport.Settings().Port)
}

func TestHandleGPIO(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	require.NoError(t, te.gpio.SetInput(22, gpio.High))

	result, err := HandleGPIOWrite(te.with(map[string]string{"pin": "up"}, `{"level":"high"}`))
	require.NoError(t, err)
	assert.Equal(t, models.GPIOResponse{Line: "up", Level: "high"}, result)
	assert.Equal(t, models.NotificationGPIO, nextNotification(t, te.notifications).Method)

	result, err = HandleGPIO(te.env)
	require.NoError(t, err)
	resp, ok := result.(models.GPIOStateResponse)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"up": "high", "down": "low", "limit": "high"}, resp.Lines)
}

func TestHandleGPIOWrite_Errors(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	_, err := HandleGPIOWrite(te.with(map[string]string{"pin": "limit"}, `{"level":"high"}`))
	require.ErrorIs(t, err, gpio.ErrNotOutput)

	_, err = HandleGPIOWrite(te.with(map[string]string{"pin": "sideways"}, `{"level":"high"}`))
	require.ErrorIs(t, err, gpio.ErrUnknownLine)

	te.env.Lines = nil
	_, err = HandleGPIO(te.env)
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
}

func TestHandleSettingsUpdate(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)

	_, err := HandleSettingsUpdate(te.with(nil, `{"calibrationSeconds": 12}`))
	require.NoError(t, err)

	result, err := HandleSettings(te.env)
	require.NoError(t, err)
	resp, ok := result.(models.SettingsResponse)
	require.True(t, ok)
	assert.Equal(t, 12, resp.CalibrationSeconds)
	assert.NotEmpty(t, resp.DeviceID)

	_, err = HandleSettingsUpdate(te.with(nil, `{"calibrationSeconds": 500}`))
	require.Error(t, err)
}

func TestHandleLogsDownload_RemoteForbidden(t *testing.T) {
	t.Parallel()
	te := newTestEnv(t)
	te.env.IsLocal = false

	_, err := HandleLogsDownload(te.env)
	require.ErrorIs(t, err, ErrForbidden)
}
