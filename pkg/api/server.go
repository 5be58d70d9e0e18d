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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ZaparooProject/tensile-core/pkg/api/methods"
	"github.com/ZaparooProject/tensile-core/pkg/api/middleware"
	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/api/models/requests"
	"github.com/ZaparooProject/tensile-core/pkg/api/notifications"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/samples"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

const (
	maxBodyBytes    = 64 << 10
	shutdownTimeout = 5 * time.Second
)

var defaultAllowedOrigins = []string{"https://*", "http://*", "capacitor://*"}

type methodFunc func(requests.RequestEnv) (any, error)

// Server is the HTTP and WebSocket surface of the service.
type Server struct {
	env     requests.RequestEnv
	ws      *melody.Melody
	limiter *middleware.IPRateLimiter
	filter  *middleware.IPFilter
	auth    *middleware.APIAuth
}

// NewServer creates a server using env as the template for every request.
//
//nolint:gocritic // env copied as a per-request template
func NewServer(env requests.RequestEnv) *Server {
	ws := melody.New()
	ws.Upgrader.CheckOrigin = func(_ *http.Request) bool { return true }

	filter := middleware.NewIPFilter(env.Config.AllowedIPs())
	s := &Server{
		env:     env,
		ws:      ws,
		limiter: middleware.NewIPRateLimiter(),
		filter:  filter,
		auth:    middleware.NewAPIAuth(env.Config.APIKeys, filter),
	}
	ws.HandleConnect(s.handleWSConnect)
	ws.HandleMessage(s.handleWSMessage)
	return s
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	origins := s.env.Config.AllowedOrigins()
	if len(origins) == 0 {
		origins = defaultAllowedOrigins
	}

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.NoCache)
	r.Use(middleware.HTTPIPFilterMiddleware(s.filter))
	r.Use(middleware.HTTPRateLimitMiddleware(s.limiter))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", middleware.APIKeyHeader},
		ExposedHeaders: []string{},
	}))
	r.Use(requestLogger)
	r.Use(middleware.HTTPAuthMiddleware(s.auth))

	// long-lived, so outside the request timeout
	r.Get("/api/samples", func(w http.ResponseWriter, r *http.Request) {
		if err := s.ws.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.APIRequestTimeout))

		r.Get("/api/version", s.handle(methods.HandleVersion))
		r.Get("/api/status", s.handle(methods.HandleStatus))

		r.Get("/api/settings", s.handle(methods.HandleSettings))
		r.Patch("/api/settings", s.handle(methods.HandleSettingsUpdate))
		r.Post("/api/settings/reload", s.handle(methods.HandleSettingsReload))
		r.Get("/api/logs", s.handle(methods.HandleLogsDownload))

		r.Get("/api/channels", s.handle(methods.HandleChannels))
		r.Get("/api/channels/{channel}", s.handle(methods.HandleChannel, "channel"))
		r.Post("/api/channels/{channel}/tare", s.handle(methods.HandleTare, "channel"))
		r.Delete("/api/channels/{channel}/tare", s.handle(methods.HandleResetTare, "channel"))
		r.Post("/api/channels/{channel}/calibrate", s.handle(methods.HandleCalibrate, "channel"))

		r.Get("/api/calibration", s.handle(methods.HandleCalibrations))
		r.Get("/api/calibration/{channel}", s.handle(methods.HandleCalibration, "channel"))
		r.Patch("/api/calibration/{channel}", s.handle(methods.HandleUpdateCalibration, "channel"))
		r.Delete("/api/calibration/{channel}", s.handle(methods.HandleResetCalibration, "channel"))

		r.Get("/api/link", s.handle(methods.HandleLinkStatus))
		r.Get("/api/link/ports", s.handle(methods.HandleLinkPorts))
		r.Post("/api/link/connect", s.handle(methods.HandleLinkConnect))
		r.Post("/api/link/halt", s.handle(methods.HandleLinkHalt))
		r.Post("/api/link/write", s.handle(methods.HandleLinkWrite))

		r.Get("/api/gpio", s.handle(methods.HandleGPIO))
		r.Put("/api/gpio/{pin}", s.handle(methods.HandleGPIOWrite, "pin"))
	})

	return r
}

// handle adapts a method handler to net/http. vars names the chi route
// parameters copied into the request env.
func (s *Server) handle(fn methodFunc, vars ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := s.env
		env.Context = r.Context()
		env.ID = uuid.New()
		env.IsLocal = isLoopback(r.RemoteAddr)

		if len(vars) > 0 {
			env.Vars = make(map[string]string, len(vars))
			for _, name := range vars {
				env.Vars[name] = chi.URLParam(r, name)
			}
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, env.ID, fmt.Errorf("%w: %w", methods.ErrInvalidParams, err))
			return
		}
		if len(bytes.TrimSpace(body)) > 0 {
			env.Params = body
		}

		result, err := fn(env)
		if err != nil {
			writeError(w, env.ID, err)
			return
		}

		switch v := result.(type) {
		case methods.NoContent:
			w.WriteHeader(http.StatusNoContent)
		case methods.Accepted:
			writeJSON(w, http.StatusAccepted, v.Body)
		default:
			writeJSON(w, http.StatusOK, v)
		}
	}
}

func isLoopback(remoteAddr string) bool {
	ip := middleware.ParseRemoteIP(remoteAddr)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("error marshalling response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Debug().Err(err).Msg("error writing response")
	}
}

func writeError(w http.ResponseWriter, id uuid.UUID, err error) {
	status := methods.StatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request", id.String()).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("request", id.String()).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, methods.ErrorBody(err))
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("api request")
	})
}

func (s *Server) handleWSConnect(session *melody.Session) {
	n, err := notificationMessage(models.NotificationLinkState, s.env.State.LinkStatus())
	if err != nil {
		log.Error().Err(err).Msg("marshalling initial link status")
		return
	}
	if err := session.Write(n); err != nil {
		log.Debug().Err(err).Msg("sending initial link status")
	}
}

func (s *Server) handleWSMessage(session *melody.Session, msg []byte) {
	if !s.limiter.Allow(middleware.ParseRemoteIP(session.Request.RemoteAddr).String()) {
		log.Warn().Str("addr", session.Request.RemoteAddr).Msg("WebSocket rate limit exceeded")
		return
	}
	// ping command for heartbeat operation
	if bytes.Equal(msg, []byte("ping")) {
		if err := session.Write([]byte("pong")); err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}
	log.Debug().Int("size", len(msg)).Msg("ignoring websocket message")
}

func notificationMessage(method string, payload any) ([]byte, error) {
	params, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s params: %w", method, err)
	}
	data, err := json.Marshal(models.Notification{Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", method, err)
	}
	return data, nil
}

// Broadcast forwards notifications and sample frames to every WebSocket
// session until ctx is done. Samples are only encoded while somebody is
// connected.
func (s *Server) Broadcast(ctx context.Context, ns <-chan models.Notification, frames <-chan samples.Frame) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("stopping websocket broadcast")
			return
		case n, ok := <-ns:
			if !ok {
				ns = nil
				continue
			}
			data, err := json.Marshal(n)
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification")
				continue
			}
			if err := s.ws.Broadcast(data); err != nil {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		case f, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			if s.ws.Len() == 0 {
				continue
			}
			n, err := notifications.Sample(f)
			if err != nil {
				log.Error().Err(err).Msg("encoding sample notification")
				continue
			}
			data, err := json.Marshal(n)
			if err != nil {
				log.Error().Err(err).Msg("marshalling sample notification")
				continue
			}
			if err := s.ws.Broadcast(data); err != nil {
				log.Debug().Err(err).Msg("broadcasting sample")
			}
		}
	}
}

// Serve runs the HTTP server on ln until ctx is done, then shuts it down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.limiter.StartCleanup(ctx)

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("api server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.ws.Close(); err != nil {
		log.Debug().Err(err).Msg("closing websocket sessions")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	log.Info().Msg("api server stopped")
	return nil
}

// Listen binds the configured API address.
func Listen(ctx context.Context, cfg *config.Instance) (net.Listener, error) {
	addr := cfg.APIListen()
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Start serves the API and the WebSocket stream on ln until ctx is done.
//
//nolint:gocritic // env copied as a per-request template
func Start(
	ctx context.Context,
	ln net.Listener,
	env requests.RequestEnv,
	ns <-chan models.Notification,
	frames <-chan samples.Frame,
) error {
	s := NewServer(env)
	go s.Broadcast(ctx, ns, frames)
	return s.Serve(ctx, ln)
}
