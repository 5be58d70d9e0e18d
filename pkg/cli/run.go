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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/tensile-core/pkg/api/client"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/helpers"
	"github.com/ZaparooProject/tensile-core/pkg/platforms"
	"github.com/ZaparooProject/tensile-core/pkg/service"
	"github.com/rs/zerolog/log"
)

// RunApp runs the service in the foreground until a signal arrives or the
// service shuts itself down.
func RunApp(pl platforms.Platform, cfg *config.Instance) (returnErr error) {
	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %v\n", r)
			log.Error().Msgf("panic recovered: %v", r)
			returnErr = fmt.Errorf("panic: %v", r)
		}
	}()

	pidFile := helpers.NewPidFile(pl)
	if pidFile.Running() || IsServiceRunning(context.Background(), client.NewLocalAPIClient(cfg)) {
		log.Info().
			Int("port", cfg.APIPort()).
			Msg("service already running, exiting")
		return ErrServiceRunning
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	log.Info().Msg("starting service")
	stopSvc, svcDone, err := service.Start(pl, cfg)
	if err != nil {
		log.Error().Msgf("error starting service: %s", err)
		return fmt.Errorf("error starting service: %w", err)
	}
	if err := pidFile.Create(); err != nil {
		log.Warn().Err(err).Msg("error creating pid file")
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			log.Warn().Err(err).Msg("error removing pid file")
		}
	}()
	defer func() {
		if err := stopSvc(); err != nil {
			log.Error().Msgf("error stopping service: %s", err)
			if returnErr == nil {
				returnErr = err
			}
		}
	}()

	select {
	case sig := <-sigs:
		log.Info().Stringer("signal", sig).Msg("received signal, shutting down")
	case <-svcDone:
		log.Info().Msg("service shut down internally")
	}

	return nil
}
