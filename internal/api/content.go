/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/citysigns/ledpanel/internal/playlist"
)

// maxUploadBytes caps a single upload request at 2 GiB.
const maxUploadBytes = 2 << 30

// multipartMemory is the in-memory buffer before multipart parts spill to
// disk.
const multipartMemory = 32 << 20

type contentListResponse struct {
	Location string `json:"location"`
	Content  any    `json:"content"`
}

func (a *API) handleContentList(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.location(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, contentListResponse{Location: loc.ID(), Content: loc.Items()})
}

func (a *API) handleContentUpload(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.location(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_multipart")
		return
	}
	defer r.MultipartForm.RemoveAll()

	explicitDuration := 0
	if raw := r.FormValue("duration"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_duration")
			return
		}
		explicitDuration = parsed
	}

	var uploads []playlist.Upload
	var open []io.Closer
	for _, header := range r.MultipartForm.File["files"] {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_multipart")
			return
		}
		open = append(open, file)
		uploads = append(uploads, playlist.Upload{Filename: header.Filename, Data: file})
	}
	defer func() {
		for _, f := range open {
			_ = f.Close()
		}
	}()

	if len(uploads) == 0 {
		writeError(w, http.StatusBadRequest, "file_required")
		return
	}

	admitted, err := loc.AddContent(r.Context(), uploads, explicitDuration)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"added": admitted})
}

func (a *API) handleContentDelete(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.location(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}

	if err := loc.Delete(id); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) handleContentClear(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.location(w, r)
	if !ok {
		return
	}

	if err := loc.Clear(); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (a *API) handleContentDuration(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.location(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}

	var body struct {
		Duration int `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if err := loc.SetDuration(id, body.Duration); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (a *API) handleContentActive(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.location(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}

	var body struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if err := loc.SetActive(id, body.IsActive); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (a *API) handleContentReorder(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.location(w, r)
	if !ok {
		return
	}

	var body struct {
		Order []playlist.OrderPair `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if len(body.Order) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}

	if err := loc.Reorder(body.Order); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}

func (a *API) handleFixDurations(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.location(w, r)
	if !ok {
		return
	}

	fixed, err := loc.FixVideoDurations(r.Context())
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"fixed": fixed})
}

// handleMediaFile serves a stored media file. Display devices fetch their
// media through this endpoint during sync.
func (a *API) handleMediaFile(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.location(w, r)
	if !ok {
		return
	}

	filename := chi.URLParam(r, "filename")
	if filename == "" || !a.files.Exists(loc.ID(), filename) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	http.ServeFile(w, r, a.files.Path(loc.ID(), filename))
}
