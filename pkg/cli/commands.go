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


package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/api/client"
	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/calibration"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/spf13/afero"
)

var (
	ErrInvalidAPISpec       = errors.New("expected \"METHOD /path [json]\"")
	ErrInvalidCalibrateSpec = errors.New("expected channel:zero or channel:span")
)

var apiMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// parseAPISpec splits "METHOD /path [json]" into its parts.
func parseAPISpec(spec string) (method, path, body string, err error) {
	parts := strings.SplitN(strings.TrimSpace(spec), " ", 3)
	if len(parts) < 2 {
		return "", "", "", ErrInvalidAPISpec
	}
	method = strings.ToUpper(parts[0])
	if !apiMethods[method] {
		return "", "", "", fmt.Errorf("%w: unknown method %q", ErrInvalidAPISpec, parts[0])
	}
	path = parts[1]
	if !strings.HasPrefix(path, "/") {
		path = "/api/" + path
	}
	if len(parts) == 3 {
		body = strings.TrimSpace(parts[2])
	}
	return method, path, body, nil
}

func parseCalibrateSpec(spec string) (channel, process string, err error) {
	channel, process, ok := strings.Cut(spec, ":")
	if !ok || channel == "" {
		return "", "", ErrInvalidCalibrateSpec
	}
	if process != "zero" && process != "span" {
		return "", "", fmt.Errorf("%w: unknown process %q", ErrInvalidCalibrateSpec, process)
	}
	return channel, process, nil
}

func channelPath(channel, action string) string {
	return "/api/channels/" + url.PathEscape(channel) + "/" + action
}

// RunAPI sends a raw request and prints the response body.
func RunAPI(ctx context.Context, c client.APIClient, w io.Writer, spec string) error {
	method, path, body, err := parseAPISpec(spec)
	if err != nil {
		return err
	}
	resp, err := c.Call(ctx, method, path, body)
	if err != nil {
		return err
	}
	if resp != "" {
		_, _ = fmt.Fprintln(w, resp)
	}
	return nil
}

// RunStatus prints the link state and the latest value of each channel.
func RunStatus(ctx context.Context, c client.APIClient, w io.Writer) error {
	resp, err := c.Call(ctx, http.MethodGet, "/api/status", "")
	if err != nil {
		return err
	}

	var status models.StatusResponse
	if err := json.Unmarshal([]byte(resp), &status); err != nil {
		return fmt.Errorf("failed to decode status: %w", err)
	}

	link := status.Link.State
	if status.Link.Simulated {
		link += " (simulated)"
	}
	_, _ = fmt.Fprintf(w, "Version: %s (%s)\n", status.Version.Version, status.Version.Platform)
	_, _ = fmt.Fprintf(w, "Link:    %s %s\n", link, status.Link.Port)
	if status.Link.LastError != "" {
		_, _ = fmt.Fprintf(w, "Error:   %s\n", status.Link.LastError)
	}
	_, _ = fmt.Fprintf(w, "Frames:  %d (%d framing errors)\n", status.Frames, status.FramingErrors)
	if status.Capture.Active {
		_, _ = fmt.Fprintln(w, "Calibration capture in progress")
	}
	_, _ = fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CHANNEL\tLABEL\tVALUE\tRAW\tTARE")
	for _, ch := range status.Channels {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%g\n", ch.ID, ch.Label, ch.Formatted, ch.Raw, ch.Tare)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return nil
}

// RunTare zeroes the current output of channel.
func RunTare(ctx context.Context, c client.APIClient, w io.Writer, channel string) error {
	if channel == "" {
		return errors.New("tare requires a channel")
	}
	resp, err := c.Call(ctx, http.MethodPost, channelPath(channel, "tare"), "")
	if err != nil {
		return err
	}

	var ch models.ChannelResponse
	if err := json.Unmarshal([]byte(resp), &ch); err != nil {
		return fmt.Errorf("failed to decode tare response: %w", err)
	}
	_, _ = fmt.Fprintf(w, "%s tared, tare is now %g\n", ch.ID, ch.Tare)
	return nil
}

// RunCalibrate starts a zero or span capture and waits for its result.
func RunCalibrate(ctx context.Context, c client.APIClient, w io.Writer, spec string, seconds int) error {
	channel, process, err := parseCalibrateSpec(spec)
	if err != nil {
		return err
	}

	body, err := json.Marshal(models.CalibrateParams{Process: process, Seconds: seconds})
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	timeout := time.Duration(seconds)*time.Second + config.APIRequestTimeout
	type waitResult struct {
		err    error
		params string
	}
	waitCh := make(chan waitResult, 1)
	go func() {
		params, err := c.WaitNotification(ctx, timeout, models.NotificationCalibration)
		waitCh <- waitResult{params: params, err: err}
	}()

	if _, err := c.Call(ctx, http.MethodPost, channelPath(channel, "calibrate"), string(body)); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "capturing %s of %s...\n", process, channel)

	res := <-waitCh
	if res.err != nil {
		return res.err
	}

	var result models.CalibrationResult
	if err := json.Unmarshal([]byte(res.params), &result); err != nil {
		return fmt.Errorf("failed to decode calibration result: %w", err)
	}
	if result.Error != "" {
		return fmt.Errorf("calibration of %s failed: %s", result.Channel, result.Error)
	}
	_, _ = fmt.Fprintf(w, "%s %s set to %d from %d readings\n",
		result.Channel, result.Process, result.Average, result.Readings)
	return nil
}

// RunReload asks the service to re-read its config and calibration.
func RunReload(ctx context.Context, c client.APIClient, _ io.Writer) error {
	_, err := c.Call(ctx, http.MethodPost, "/api/settings/reload", "")
	return err
}

// RunExport saves the calibration of every channel to a CSV file at path.
func RunExport(ctx context.Context, c client.APIClient, w io.Writer, fs afero.Fs, path string) error {
	resp, err := c.Call(ctx, http.MethodGet, "/api/calibration", "")
	if err != nil {
		return err
	}

	var cals models.CalibrationsResponse
	if err := json.Unmarshal([]byte(resp), &cals); err != nil {
		return fmt.Errorf("failed to decode calibration: %w", err)
	}

	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := calibration.WriteCSV(f, cals.Calibrations); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(w, "exported %d channels to %s\n", len(cals.Calibrations), path)
	return nil
}

// RunImport applies every row of a CSV file written by RunExport. Rows are
// sent one channel at a time and the first rejected row stops the import.
func RunImport(ctx context.Context, c client.APIClient, w io.Writer, fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	recs, err := calibration.ReadCSV(f)
	if err != nil {
		return err
	}

	for i := range recs {
		body, err := json.Marshal(recs[i])
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", recs[i].Channel, err)
		}
		p := "/api/calibration/" + url.PathEscape(recs[i].Channel)
		if _, err := c.Call(ctx, http.MethodPatch, p, string(body)); err != nil {
			return fmt.Errorf("failed to import %s: %w", recs[i].Channel, err)
		}
		_, _ = fmt.Fprintf(w, "%s imported\n", recs[i].Channel)
	}
	return nil
}
