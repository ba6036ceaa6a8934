/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/citysigns/ledpanel/internal/auth"
)

func (a *API) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.EqualFold(a.cfg.Environment, "production"),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	token, err := a.authSvc.Login(body.Username, body.Password)
	if err != nil {
		a.logger.Warn().Str("username", body.Username).Msg("failed login attempt")
		writeError(w, http.StatusUnauthorized, "bad_credentials")
		return
	}

	a.setSessionCookie(w, token, int(a.authSvc.SessionTTL().Seconds()))
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.setSessionCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// handleSSOIssue mints a handoff token and the device panel URL for it, so
// an operator logged into the central panel can open a device panel without
// a second login.
func (a *API) handleSSOIssue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "location")
	loc, ok := a.cfg.LocationByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_location")
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	username := ""
	if claims != nil {
		username = claims.Username
	}

	token, err := a.authSvc.IssueSSO(username, loc.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"url":   fmt.Sprintf("http://%s:%d/api/sso/redeem?token=%s", loc.Address, a.cfg.HTTPPort, token),
	})
}

// handleSSORedeem exchanges a handoff token for a device session. The token
// may arrive in the query string (redirect flow) or in a JSON body.
func (a *API) handleSSORedeem(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			token = body.Token
		}
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "token_required")
		return
	}

	session, err := a.authSvc.RedeemSSO(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}

	a.setSessionCookie(w, session, int(a.authSvc.SessionTTL().Seconds()))
	writeJSON(w, http.StatusOK, map[string]string{"token": session})
}
