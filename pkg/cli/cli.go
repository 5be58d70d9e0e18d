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
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/api/client"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/helpers"
	"github.com/ZaparooProject/tensile-core/pkg/platforms"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

type Flags struct {
	Version   *bool
	Simulate  *bool
	Port      *string
	API       *string
	Status    *bool
	Tare      *string
	Calibrate *string
	Seconds   *int
	Ports     *bool
	Reload    *bool
	Stop      *bool
	Export    *string
	Import    *string
}

// SetupFlags defines all common CLI flags.
func SetupFlags() *Flags {
	return &Flags{
		Version: flag.Bool(
			"version",
			false,
			"print version and exit",
		),
		Simulate: flag.Bool(
			"simulate",
			false,
			"use the simulated front-end instead of a serial device",
		),
		Port: flag.String(
			"port",
			"",
			"serial device to use for this run",
		),
		API: flag.String(
			"api",
			"",
			"send \"METHOD /path [json]\" to the API and print the response",
		),
		Status: flag.Bool(
			"status",
			false,
			"print link and channel status of the running service",
		),
		Tare: flag.String(
			"tare",
			"",
			"tare the given channel",
		),
		Calibrate: flag.String(
			"calibrate",
			"",
			"capture a calibration point, as channel:zero or channel:span",
		),
		Seconds: flag.Int(
			"seconds",
			0,
			"calibration capture duration, defaults to the config value",
		),
		Ports: flag.Bool(
			"ports",
			false,
			"list serial devices and exit",
		),
		Reload: flag.Bool(
			"reload",
			false,
			"reload config and calibration from disk",
		),
		Stop: flag.Bool(
			"stop",
			false,
			"stop the running service",
		),
		Export: flag.String(
			"export",
			"",
			"save the calibration of all channels to a CSV file",
		),
		Import: flag.String(
			"import",
			"",
			"apply calibration from a CSV file written by -export",
		),
	}
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Pre runs flag parsing and actions any immediate flags that don't
// require environment setup. Add any custom flags before running this.
func (f *Flags) Pre(pl platforms.Platform) {
	flag.Parse()

	if *f.Version {
		_, _ = fmt.Printf("Tensile v%s (%s)\n", config.AppVersion, pl.ID())
		os.Exit(0)
	}

	if *f.Ports {
		if err := printPorts(os.Stdout, pl.DefaultSerialPort(), helpers.GetSerialDeviceList); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error listing serial devices: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if *f.Stop {
		if err := helpers.NewPidFile(pl).Stop(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error stopping service: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
}

func printPorts(w io.Writer, defaultPort string, list func() ([]string, error)) error {
	ports, err := list()
	if err != nil {
		return err
	}
	for _, p := range ports {
		marker := ""
		if p == defaultPort {
			marker = " (default)"
		}
		_, _ = fmt.Fprintf(w, "%s%s\n", p, marker)
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(w, "no serial devices found")
	}
	return nil
}

// Apply copies the run-only overrides into cfg. They are not saved.
func (f *Flags) Apply(cfg *config.Instance) {
	if *f.Simulate {
		cfg.SetSimulate(true)
	}
	if *f.Port != "" {
		cfg.SetSerialPort(*f.Port)
	}
}

// command returns the client command selected by the flags, or nil when
// the service itself should run.
func (f *Flags) command() func(ctx context.Context, c client.APIClient, w io.Writer) error {
	switch {
	case isFlagPassed("api"):
		spec := *f.API
		return func(ctx context.Context, c client.APIClient, w io.Writer) error {
			return RunAPI(ctx, c, w, spec)
		}
	case *f.Status:
		return RunStatus
	case isFlagPassed("tare"):
		channel := *f.Tare
		return func(ctx context.Context, c client.APIClient, w io.Writer) error {
			return RunTare(ctx, c, w, channel)
		}
	case isFlagPassed("calibrate"):
		spec := *f.Calibrate
		seconds := *f.Seconds
		return func(ctx context.Context, c client.APIClient, w io.Writer) error {
			return RunCalibrate(ctx, c, w, spec, seconds)
		}
	case *f.Reload:
		return RunReload
	case isFlagPassed("export"):
		path := *f.Export
		return func(ctx context.Context, c client.APIClient, w io.Writer) error {
			return RunExport(ctx, c, w, afero.NewOsFs(), path)
		}
	case isFlagPassed("import"):
		path := *f.Import
		return func(ctx context.Context, c client.APIClient, w io.Writer) error {
			return RunImport(ctx, c, w, afero.NewOsFs(), path)
		}
	}
	return nil
}

// Post actions all remaining common flags that require the environment to be
// set up. Logging is allowed.
func (f *Flags) Post(cfg *config.Instance, _ platforms.Platform) {
	cmd := f.command()
	if cmd == nil {
		return
	}

	err := cmd(context.Background(), client.NewLocalAPIClient(cfg), os.Stdout)
	if err != nil {
		log.Error().Err(err).Msg("error running command")
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// Setup initializes the user config and logging. Returns a user config object.
//
//nolint:gocritic // config struct copied for immutability
func Setup(
	pl platforms.Platform,
	defaultConfig config.Values,
	writers []io.Writer,
) *config.Instance {
	err := helpers.EnsureDirectories(pl)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error creating directories: %v\n", err)
		os.Exit(1)
	}

	err = helpers.InitLogging(pl, writers)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(pl), defaultConfig)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return cfg
}

var ErrServiceRunning = errors.New("service already running")

const pingTimeout = 2 * time.Second

// IsServiceRunning reports whether a service answers on the configured API
// port.
func IsServiceRunning(ctx context.Context, c client.APIClient) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	_, err := c.Call(ctx, http.MethodGet, "/api/version", "")
	if err != nil {
		log.Debug().Err(err).Msg("error checking if service running")
		return false
	}
	return true
}
