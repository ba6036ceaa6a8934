/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration, the playlist registry, the event hub
// and the HTTP API into one runnable unit.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/citysigns/ledpanel/internal/api"
	"github.com/citysigns/ledpanel/internal/auth"
	"github.com/citysigns/ledpanel/internal/config"
	"github.com/citysigns/ledpanel/internal/events"
	"github.com/citysigns/ledpanel/internal/hub"
	"github.com/citysigns/ledpanel/internal/media"
	"github.com/citysigns/ledpanel/internal/playlist"
	"github.com/citysigns/ledpanel/internal/telemetry"
)

// Server bundles the HTTP API and supporting services.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger
	router chi.Router

	httpServer    *http.Server
	metricsServer *http.Server

	bus      *events.Bus
	files    *media.Store
	registry *playlist.Registry
}

// New builds a fully wired server.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.MetricsMiddleware)
	// Skip the request timeout for the events socket, media downloads and
	// uploads; all of those can legitimately outlive a fixed deadline.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" ||
				strings.HasPrefix(r.URL.Path, "/uploads/") ||
				(r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/content/")) {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	bus := events.NewBus()
	files := media.NewStore(cfg.MediaRoot, logger)
	resolver := media.NewResolver(cfg.FFprobeBin, cfg.GstDiscoverer, cfg.ImageDefaultSeconds, cfg.VideoFallbackSeconds, logger)

	registry, err := playlist.NewRegistry(cfg.LocationIDs(), files, resolver, bus, cfg.MinDisplaySeconds, logger)
	if err != nil {
		return nil, fmt.Errorf("build playlist registry: %w", err)
	}

	authSvc := auth.NewService([]byte(cfg.JWTSigningKey), cfg.AdminUser, cfg.AdminPassword, cfg.SessionTTL, cfg.SSOTokenTTL)
	wsHub := hub.NewHandler(registry, bus, logger)

	apiHandler := api.New(cfg, registry, files, authSvc, wsHub, logger)
	apiHandler.Routes(router)

	srv := &Server{
		cfg:      cfg,
		logger:   logger,
		router:   router,
		bus:      bus,
		files:    files,
		registry: registry,
	}

	srv.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler: router,
		// Header deadline only; uploads may legitimately take longer than any
		// fixed full-body deadline.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.Handler())
	srv.metricsServer = &http.Server{
		Addr:              cfg.MetricsBind,
		Handler:           metricsMux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	return srv, nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer exposes the metrics listener.
func (s *Server) MetricsServer() *http.Server {
	return s.metricsServer
}

// Registry exposes the playlist registry, for the embedded sync agent.
func (s *Server) Registry() *playlist.Registry {
	return s.registry
}

// MediaFiles exposes the media store, for the embedded sync agent.
func (s *Server) MediaFiles() *media.Store {
	return s.files
}

// Close stops every running display scheduler.
func (s *Server) Close() error {
	s.registry.StopAll()
	return nil
}
