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

// Package desktop runs the service on a development machine with the
// front-end attached through a USB serial adapter and no GPIO header.
package desktop

import (
	"os"
	"path/filepath"

	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/gpio"
	"github.com/ZaparooProject/tensile-core/pkg/platforms"
	"github.com/adrg/xdg"
	"github.com/rs/zerolog/log"
)

const DefaultSerialPort = "/dev/ttyUSB0"

type Platform struct{}

func NewPlatform() *Platform {
	return &Platform{}
}

func (*Platform) ID() string {
	return platforms.PlatformIDDesktop
}

func (*Platform) StartPre(cfg *config.Instance) error {
	if cfg.GPIOEnabled() {
		log.Info().Msg("no gpio header on this host, operate lines are simulated")
	}
	return nil
}

func (*Platform) Stop() error {
	return nil
}

func (*Platform) Settings() platforms.Settings {
	dataDir := filepath.Join(xdg.DataHome, config.AppName)
	return platforms.Settings{
		DataDir:   dataDir,
		ConfigDir: filepath.Join(xdg.ConfigHome, config.AppName),
		TempDir:   filepath.Join(os.TempDir(), config.AppName),
		LogDir:    filepath.Join(dataDir, "logs"),
	}
}

func (*Platform) DefaultSerialPort() string {
	return DefaultSerialPort
}

func (*Platform) NewGPIO() (gpio.Controller, error) {
	return gpio.NewProxyController(), nil
}
