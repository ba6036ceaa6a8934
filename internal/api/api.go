/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP control surface: playlist management, display
// control, authentication and the device sync endpoints.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/citysigns/ledpanel/internal/auth"
	"github.com/citysigns/ledpanel/internal/config"
	"github.com/citysigns/ledpanel/internal/hub"
	"github.com/citysigns/ledpanel/internal/media"
	"github.com/citysigns/ledpanel/internal/playlist"
)

// API exposes HTTP handlers.
type API struct {
	cfg      *config.Config
	registry *playlist.Registry
	files    *media.Store
	authSvc  *auth.Service
	hub      *hub.Handler
	logger   zerolog.Logger
}

// New creates the API router wrapper.
func New(cfg *config.Config, registry *playlist.Registry, files *media.Store, authSvc *auth.Service, wsHub *hub.Handler, logger zerolog.Logger) *API {
	return &API{
		cfg:      cfg,
		registry: registry,
		files:    files,
		authSvc:  authSvc,
		hub:      wsHub,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts all endpoints. Read endpoints that display devices rely on
// (content lists, media files, the event socket) stay open; everything that
// mutates state sits behind the session middleware.
func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", a.handleHealth)
	r.Get("/uploads/{location}/{filename}", a.handleMediaFile)
	r.Get("/ws", a.hub.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", a.handleLogin)
		r.Post("/logout", a.handleLogout)
		r.Post("/sso/redeem", a.handleSSORedeem)

		r.Get("/locations", a.handleLocations)

		r.With(auth.Middleware(a.authSvc)).Get("/system/info", a.handleSystemInfo)
		r.With(auth.Middleware(a.authSvc)).Get("/sso/{location}", a.handleSSOIssue)

		r.Route("/content/{location}", func(r chi.Router) {
			// Devices poll this during sync, so it stays unauthenticated.
			r.Get("/", a.handleContentList)

			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware(a.authSvc))

				r.Post("/", a.handleContentUpload)
				r.Post("/clear", a.handleContentClear)
				r.Post("/order", a.handleContentReorder)
				r.Post("/fix-durations", a.handleFixDurations)
				r.Delete("/{id}", a.handleContentDelete)
				r.Post("/{id}/duration", a.handleContentDuration)
				r.Post("/{id}/active", a.handleContentActive)
			})
		})

		r.Route("/display/{location}", func(r chi.Router) {
			r.Get("/status", a.handleDisplayStatus)

			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware(a.authSvc))

				r.Post("/start", a.handleDisplayStart)
				r.Post("/stop", a.handleDisplayStop)
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// location resolves the {location} URL parameter, writing the error response
// itself when the id is unknown.
func (a *API) location(w http.ResponseWriter, r *http.Request) (*playlist.Location, bool) {
	loc, err := a.registry.Get(chi.URLParam(r, "location"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_location")
		return nil, false
	}
	return loc, true
}

// writeOpError maps playlist sentinel errors onto HTTP responses.
func writeOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, playlist.ErrUnknownLocation):
		writeError(w, http.StatusNotFound, "unknown_location")
	case errors.Is(err, playlist.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, playlist.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input")
	case errors.Is(err, playlist.ErrEmptyPlaylist):
		writeError(w, http.StatusBadRequest, "empty_playlist")
	case errors.Is(err, playlist.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "already_running")
	case errors.Is(err, playlist.ErrAlreadyStopped):
		writeError(w, http.StatusConflict, "already_stopped")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
