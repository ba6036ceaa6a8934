/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"

	"github.com/citysigns/ledpanel/internal/models"
)

type displayStatusResponse struct {
	Location    string              `json:"location"`
	Running     bool                `json:"running"`
	CurrentItem *models.ContentItem `json:"current_item,omitempty"`
}

func (a *API) handleDisplayStart(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.location(w, r)
	if !ok {
		return
	}

	if err := loc.Start(r.Context()); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (a *API) handleDisplayStop(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.location(w, r)
	if !ok {
		return
	}

	if err := loc.Stop(); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (a *API) handleDisplayStatus(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.location(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, displayStatusResponse{
		Location:    loc.ID(),
		Running:     loc.Running(),
		CurrentItem: loc.CurrentItem(),
	})
}
