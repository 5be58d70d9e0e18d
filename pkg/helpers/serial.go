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

package helpers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

type serialDevice struct {
	Vid string
	Pid string
}

// Adapters that enumerate as serial ports but are never a front-end.
var ignoreDevices = []serialDevice{
	// Sinden Lightgun
	{Vid: "16c0", Pid: "0f38"},
	{Vid: "16c0", Pid: "0f39"},
	{Vid: "16d0", Pid: "0f38"},
	{Vid: "16d0", Pid: "0f39"},
}

// Device name prefixes under /dev that can carry the front-end link. The
// Pi UARTs are included since the front-end may be wired to the header.
var linuxSerialPrefixes = []string{"ttyUSB", "ttyACM", "ttyAMA", "serial"}

func ignoreSerialDevice(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return true
	}

	if _, err := os.Stat("/usr/bin/udevadm"); err != nil {
		log.Debug().Msgf("udevadm not found, skipping ignore list check")
		return false
	}

	if !strings.HasPrefix(path, "/dev/") {
		log.Error().Str("path", path).Msg("invalid device path")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	//nolint:gosec // Safe: path validated to start with /dev/, udevadm uses absolute path
	cmd := exec.CommandContext(ctx, "/usr/bin/udevadm", "info", "--name="+path)
	out, err := cmd.Output()
	if err != nil {
		log.Error().Err(err).Msg("udevadm failed")
		return false
	}

	vid, pid := parseUdevIDs(string(out))
	if vid == "" || pid == "" {
		return false
	}

	return slices.Contains(ignoreDevices, serialDevice{Vid: vid, Pid: pid})
}

func parseUdevIDs(out string) (vid, pid string) {
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "E: ID_VENDOR_ID=") {
			vid = strings.TrimPrefix(line, "E: ID_VENDOR_ID=")
		} else if strings.HasPrefix(line, "E: ID_MODEL_ID=") {
			pid = strings.TrimPrefix(line, "E: ID_MODEL_ID=")
		}
	}
	return strings.ToLower(vid), strings.ToLower(pid)
}

func isLinuxSerialName(name string) bool {
	for _, p := range linuxSerialPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func getLinuxList(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return []string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read %s directory: %w", path, err)
	}

	devices := make([]string, 0, len(entries))
	for _, v := range entries {
		if v.IsDir() || !isLinuxSerialName(v.Name()) {
			continue
		}

		full := filepath.Join(path, v.Name())
		if ignoreSerialDevice(full) {
			continue
		}

		devices = append(devices, full)
	}

	return devices, nil
}

// GetSerialDeviceList returns candidate front-end serial devices.
func GetSerialDeviceList() ([]string, error) {
	switch runtime.GOOS {
	case "linux":
		return getLinuxList("/dev")
	case "darwin":
		return filterPortsList("/dev/tty.usbserial", "/dev/tty.usbmodem")
	case "windows":
		return filterPortsList("COM")
	default:
		ports, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("failed to get serial ports list: %w", err)
		}
		return ports, nil
	}
}

func filterPortsList(prefixes ...string) ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports list on %s: %w", runtime.GOOS, err)
	}

	devices := make([]string, 0, len(ports))
	for _, v := range ports {
		for _, p := range prefixes {
			if strings.HasPrefix(v, p) {
				devices = append(devices, v)
				break
			}
		}
	}
	return devices, nil
}
