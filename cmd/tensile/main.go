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


package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ZaparooProject/tensile-core/pkg/cli"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/platforms"
	"github.com/ZaparooProject/tensile-core/pkg/platforms/desktop"
	"github.com/ZaparooProject/tensile-core/pkg/platforms/rpi"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func detectPlatform() platforms.Platform {
	if platforms.IsRaspberryPi(platforms.DeviceTreeModelPath) {
		return rpi.NewPlatform()
	}
	return desktop.NewPlatform()
}

func run() error {
	pl := detectPlatform()
	flags := cli.SetupFlags()

	daemonMode := flag.Bool(
		"daemon",
		false,
		"log to file only, for running under a service manager",
	)

	flags.Pre(pl)

	var logWriters []io.Writer
	if !*daemonMode {
		logWriters = []io.Writer{os.Stderr}
	}

	cfg := cli.Setup(
		pl,
		config.BaseDefaults,
		logWriters,
	)

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	flags.Post(cfg, pl)
	flags.Apply(cfg)

	log.Info().Str("platform", pl.ID()).Msg("starting tensile")
	if err := cli.RunApp(pl, cfg); err != nil {
		if errors.Is(err, cli.ErrServiceRunning) {
			return nil
		}
		return err
	}
	return nil
}
