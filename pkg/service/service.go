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


package service

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/ZaparooProject/tensile-core/pkg/api"
	"github.com/ZaparooProject/tensile-core/pkg/api/methods"
	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/api/models/requests"
	"github.com/ZaparooProject/tensile-core/pkg/api/notifications"
	"github.com/ZaparooProject/tensile-core/pkg/calibration"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/database"
	"github.com/ZaparooProject/tensile-core/pkg/database/caldb"
	"github.com/ZaparooProject/tensile-core/pkg/gpio"
	"github.com/ZaparooProject/tensile-core/pkg/helpers"
	"github.com/ZaparooProject/tensile-core/pkg/link"
	"github.com/ZaparooProject/tensile-core/pkg/platforms"
	"github.com/ZaparooProject/tensile-core/pkg/samples"
	"github.com/ZaparooProject/tensile-core/pkg/service/acquisition"
	"github.com/ZaparooProject/tensile-core/pkg/service/broker"
	"github.com/ZaparooProject/tensile-core/pkg/service/configwatch"
	"github.com/ZaparooProject/tensile-core/pkg/service/discovery"
	"github.com/ZaparooProject/tensile-core/pkg/service/publishers"
	"github.com/ZaparooProject/tensile-core/pkg/service/state"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	sampleQueueSize   = 256
	droppedLogEvery   = 1000
	subscriberBufSize = 100
)

func setupEnvironment(pl platforms.Platform) error {
	if _, ok := helpers.HasUserDir(); ok {
		log.Info().Msg("using 'user' directory for storage")
	}

	log.Info().Msg("creating platform directories")
	if err := helpers.EnsureDirectories(pl); err != nil {
		return err
	}
	for _, dir := range []string{helpers.ConfigDir(pl), helpers.DataDir(pl)} {
		err := os.MkdirAll(dir, 0o750)
		if err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func makeDatabase(ctx context.Context, pl platforms.Platform) (*database.Database, error) {
	db := &database.Database{
		CalibrationDB: nil,
	}

	log.Debug().Msg("opening calibration database")
	calDB, err := caldb.OpenCalibrationDB(ctx, pl)
	if err != nil {
		return db, fmt.Errorf("failed to open calibration database: %w", err)
	}

	db.CalibrationDB = calDB
	return db, nil
}

// linkSettings builds the transport settings from the [serial] config
// section. An empty port falls back to the platform default.
func linkSettings(pl platforms.Platform, cfg *config.Instance) (link.Settings, error) {
	sc := cfg.Serial()

	port := sc.Port
	if port == "" {
		port = pl.DefaultSerialPort()
	}

	s := link.DefaultSettings(port)
	if sc.BaudRate > 0 {
		s.BaudRate = sc.BaudRate
	}
	if sc.DataBits > 0 {
		s.DataBits = sc.DataBits
	}
	s.ReadTimeout = cfg.ReadTimeout()

	parity, err := link.ParseParity(sc.Parity)
	if err != nil {
		return s, fmt.Errorf("invalid serial config: %w", err)
	}
	s.Parity = parity

	stopBits, err := link.ParseStopBits(sc.StopBits)
	if err != nil {
		return s, fmt.Errorf("invalid serial config: %w", err)
	}
	s.StopBits = stopBits

	return s, nil
}

func makeTransport(pl platforms.Platform, cfg *config.Instance) (*link.Transport, error) {
	settings, err := linkSettings(pl, cfg)
	if err != nil {
		return nil, err
	}

	factory := link.DefaultPortFactory
	if cfg.Simulate() {
		log.Info().Int("rate_hz", cfg.SimulateRate()).Msg("using simulated serial link")
		factory = link.SimulatedPortFactory(cfg.SimulateRate())
	}

	tr := link.NewTransport(factory)
	tr.Configure(settings)
	return tr, nil
}

// setupGPIO claims the configured actuation lines. GPIO failures are not
// fatal: the service keeps acquiring samples without actuation.
func setupGPIO(pl platforms.Platform, cfg *config.Instance) *gpio.Lines {
	if !cfg.GPIOEnabled() {
		log.Info().Msg("gpio disabled in config")
		return nil
	}

	scheme, err := gpio.ParseScheme(cfg.GPIOScheme())
	if err != nil {
		log.Error().Err(err).Msg("invalid gpio scheme, gpio disabled")
		return nil
	}

	ctrl, err := pl.NewGPIO()
	if err != nil {
		log.Error().Err(err).Msg("gpio unavailable on this host")
		return nil
	}

	lines := gpio.NewLines(ctrl, cfg.GPIOOutputs(), cfg.GPIOInputs())
	if err := lines.Setup(scheme); err != nil {
		log.Error().Err(err).Msg("failed to set up gpio lines")
		if relErr := lines.Release(); relErr != nil {
			log.Warn().Err(relErr).Msg("failed to release gpio lines")
		}
		return nil
	}

	return lines
}

// startPublishers starts one MQTT publisher per enabled config entry, each
// fed by its own subscription to the sample broker.
func startPublishers(
	cfg *config.Instance,
	sampleBroker *broker.Broker[samples.Frame],
) []*publishers.MQTTPublisher {
	activePublishers := make([]*publishers.MQTTPublisher, 0)

	for _, mqttCfg := range cfg.GetMQTTPublishers() {
		if !mqttCfg.IsEnabled() {
			continue
		}

		log.Info().Msgf("starting MQTT publisher: %s (topic: %s)", mqttCfg.Broker, mqttCfg.Topic)

		frames, id := sampleBroker.Subscribe(sampleQueueSize)
		publisher := publishers.NewMQTTPublisher(mqttCfg.Broker, mqttCfg.Topic, cfg.DeviceID(), mqttCfg.EveryN)
		if err := publisher.Start(frames); err != nil {
			log.Error().Err(err).Msgf("failed to start MQTT publisher for %s", mqttCfg.Broker)
			sampleBroker.Unsubscribe(id)
			continue
		}

		activePublishers = append(activePublishers, publisher)
	}

	if len(activePublishers) > 0 {
		log.Info().Msgf("started %d MQTT publisher(s)", len(activePublishers))
	}

	return activePublishers
}

// forwardResults turns finished calibration captures into notifications.
func forwardResults(ctx context.Context, routine *calibration.Routine, ns chan<- models.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-routine.Results():
			payload := models.CalibrationResult{
				Channel:  res.Channel,
				Process:  res.Process.String(),
				Average:  res.Average,
				Readings: res.Readings,
			}
			if res.Err != nil {
				payload.Error = res.Err.Error()
			}
			notifications.CalibrationFinished(ns, payload)
		}
	}
}

// sampleForwarder is the registry subscriber that hands frames to the
// sample broker without blocking the reader goroutine.
func sampleForwarder(source chan<- samples.Frame) samples.Subscriber {
	var dropped atomic.Int64
	return func(f samples.Frame) error {
		if broker.Offer(source, f) {
			return nil
		}
		if n := dropped.Add(1); n%droppedLogEvery == 1 {
			log.Warn().Int64("dropped", n).Msg("sample queue full, dropping frames")
		}
		return nil
	}
}

// newSupervisor publishes the link status on every state change and after
// every failed open, so clients see the current diagnostic while retrying.
func newSupervisor(
	transport *link.Transport,
	st *state.State,
	simulated bool,
	clock clockwork.Clock,
) *link.Supervisor {
	var sup *link.Supervisor
	publish := func(s link.State) {
		st.SetLinkStatus(models.LinkStatus{
			State:     s.String(),
			Port:      transport.Settings().Port,
			LastError: sup.LastError(),
			Attempts:  sup.Attempts(),
			Simulated: simulated,
		})
	}
	failed := func() { publish(sup.State()) }
	sup = link.NewSupervisor(transport, link.SupervisorOptions{
		Clock:           clock,
		OnStateChange:   publish,
		OnAttemptFailed: failed,
	})
	return sup
}

// watchConfig reloads settings and calibration the same way the settings
// reload endpoint does whenever config.toml changes on disk.
//
//nolint:gocritic // env copied into the reload closure
func watchConfig(ctx context.Context, g *errgroup.Group, env requests.RequestEnv) {
	reload := func(rctx context.Context) error {
		e := env
		e.Context = rctx
		_, err := methods.HandleSettingsReload(e)
		return err
	}
	w, err := configwatch.New(env.Config.Path(), reload, nil)
	if err != nil {
		log.Warn().Err(err).Msg("config file watching disabled")
		return
	}
	g.Go(func() error {
		return w.Run(ctx)
	})
}

func Start(
	pl platforms.Platform,
	cfg *config.Instance,
) (stop func() error, done <-chan struct{}, err error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	st, ns := state.NewState()

	notifBroker := broker.NewBroker(st.GetContext(), "notifications", ns)
	notifBroker.Start()

	err = setupEnvironment(pl)
	if err != nil {
		log.Error().Err(err).Msg("error setting up environment")
		return nil, nil, err
	}

	log.Info().Msg("running platform pre start")
	err = pl.StartPre(cfg)
	if err != nil {
		log.Error().Err(err).Msg("platform start pre error")
		return nil, nil, fmt.Errorf("platform start pre failed: %w", err)
	}

	log.Info().Msg("opening databases")
	db, err := makeDatabase(st.GetContext(), pl)
	if err != nil {
		log.Error().Err(err).Msgf("error opening databases")
		return nil, nil, err
	}

	log.Info().Msg("loading channel calibrations")
	bank := calibration.NewBank(samples.Channels)
	if err := bank.ReloadAll(st.GetContext(), db.CalibrationDB); err != nil {
		log.Warn().Err(err).Msg("some channels kept default calibration")
	}

	transport, err := makeTransport(pl, cfg)
	if err != nil {
		log.Error().Err(err).Msg("error configuring serial link")
		_ = db.CalibrationDB.Close()
		return nil, nil, err
	}

	sup := newSupervisor(transport, st, cfg.Simulate(), nil)

	registry := samples.NewRegistry()
	pipeline, err := acquisition.NewPipeline(bank, registry, nil)
	if err != nil {
		log.Error().Err(err).Msg("error creating acquisition pipeline")
		_ = db.CalibrationDB.Close()
		return nil, nil, err
	}

	routine := calibration.NewRoutine(st.GetContext(), bank, db.CalibrationDB, nil)

	sampleSource := make(chan samples.Frame, sampleQueueSize)
	sampleBroker := broker.NewBroker[samples.Frame](st.GetContext(), "samples", sampleSource)
	sampleBroker.Start()

	registry.Subscribe("state", func(f samples.Frame) error {
		st.SetLastFrame(f)
		return nil
	})
	registry.Subscribe("calibration", routine.HandleFrame)
	registry.Subscribe("broker", sampleForwarder(sampleSource))

	reader := link.NewReader(transport, pipeline, link.ReaderOptions{
		Failures:  sup,
		ChunkSize: cfg.Serial().ChunkSize,
	})

	log.Info().Msg("setting up gpio")
	lines := setupGPIO(pl, cfg)

	log.Info().Msg("starting API service")
	ln, err := api.Listen(st.GetContext(), cfg)
	if err != nil {
		log.Error().Err(err).Msg("error starting API listener")
		if lines != nil {
			_ = lines.Release()
		}
		_ = db.CalibrationDB.Close()
		return nil, nil, err
	}

	env := requests.RequestEnv{
		Platform:   pl,
		Config:     cfg,
		State:      st,
		Database:   db,
		Bank:       bank,
		Routine:    routine,
		Supervisor: sup,
		Transport:  transport,
		Pipeline:   pipeline,
		Lines:      lines,
	}

	g, gctx := errgroup.WithContext(st.GetContext())

	apiNotifications, _ := notifBroker.Subscribe(subscriberBufSize)
	apiSamples, _ := sampleBroker.Subscribe(sampleQueueSize)
	g.Go(func() error {
		apiErr := api.Start(gctx, ln, env, apiNotifications, apiSamples)
		if apiErr != nil {
			log.Error().Err(apiErr).Msg("API server stopped, shutting down service")
			st.StopService()
		}
		return apiErr
	})

	g.Go(func() error {
		forwardResults(gctx, routine, st.Notifications)
		return nil
	})

	if cfg.WatchConfig() {
		watchConfig(gctx, g, env)
	}

	mdns := discovery.New(cfg, pl.ID())
	if discErr := mdns.Start(); discErr != nil {
		log.Warn().Err(discErr).Msg("mDNS discovery not started")
	}

	log.Info().Msg("starting publishers")
	activePublishers := startPublishers(cfg, sampleBroker)

	log.Info().Msg("starting serial link")
	reader.Start(gctx)
	sup.RequestConnect()

	doneCh := make(chan struct{})
	var runErr error
	go func() {
		<-st.GetContext().Done()
		log.Info().Msg("service context cancelled, running cleanup")

		mdns.Stop()
		sup.Halt()
		reader.Stop()
		for _, publisher := range activePublishers {
			publisher.Stop()
		}
		if lines != nil {
			if relErr := lines.Release(); relErr != nil {
				log.Warn().Err(relErr).Msg("error releasing gpio lines")
			}
		}

		runErr = g.Wait()

		if closeErr := db.CalibrationDB.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing calibration database")
		}
		if stopErr := pl.Stop(); stopErr != nil {
			log.Warn().Msgf("error stopping platform: %s", stopErr)
		}
		sampleBroker.Stop()
		notifBroker.Stop()

		log.Info().Msg("service cleanup completed")
		close(doneCh)
	}()

	stop = func() error {
		st.StopService()
		<-doneCh
		return runErr
	}
	done = doneCh
	return stop, done, nil
}
