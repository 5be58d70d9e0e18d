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

package platforms

import (
	"errors"
	"os"
	"strings"

	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/gpio"
)

var ErrNotSupported = errors.New("operation not supported on this platform")

const (
	PlatformIDRaspberryPi = "rpi"
	PlatformIDDesktop     = "desktop"
)

// DeviceTreeModelPath is read to identify single board computers.
const DeviceTreeModelPath = "/proc/device-tree/model"

// Settings defines all simple settings/configuration values available for a
// platform.
type Settings struct {
	// DataDir is the root folder where the calibration database is stored.
	// WARNING: This value should be accessed using the DataDir function in
	// the helpers package.
	DataDir string
	// ConfigDir is the directory where the config file is stored.
	// WARNING: This value should be accessed using the ConfigDir function in
	// the helpers package.
	ConfigDir string
	// TempDir is a temporary directory for the pid file. Expect it to be
	// deleted.
	TempDir string
	// LogDir is where the rotating log file is written.
	LogDir string
}

// Platform defines how the acquisition service interacts with the host it
// runs on.
type Platform interface {
	// ID returns the unique ID of this platform.
	ID() string
	// StartPre runs any necessary platform setup BEFORE the service has
	// started running.
	StartPre(*config.Instance) error
	// Stop runs any necessary cleanup tasks before the rest of the service
	// starts shutting down.
	Stop() error
	// Settings returns all simple platform-specific settings such as paths.
	Settings() Settings
	// DefaultSerialPort is the front-end device used when the config does
	// not name one.
	DefaultSerialPort() string
	// NewGPIO returns the actuation controller of this host.
	NewGPIO() (gpio.Controller, error)
}

// IsRaspberryPi reports whether the device tree model at path names a
// Raspberry Pi board.
func IsRaspberryPi(path string) bool {
	data, err := os.ReadFile(path) //nolint:gosec // fixed system path
	if err != nil {
		return false
	}
	model := strings.TrimRight(string(data), "\x00\n")
	return strings.HasPrefix(model, "Raspberry Pi")
}
