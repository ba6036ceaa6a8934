/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"crypto/subtle"
	"errors"
	"time"
)

// SessionCookie is the cookie name carrying the operator session token.
const SessionCookie = "ledpanel_session"

// ErrBadCredentials is returned by Login for a wrong username or password.
var ErrBadCredentials = errors.New("bad credentials")

// Service checks operator credentials and mints session and SSO tokens.
// There is a single admin account, configured at startup.
type Service struct {
	secret     []byte
	adminUser  string
	adminPass  string
	sessionTTL time.Duration
	ssoTTL     time.Duration
}

// NewService creates an auth service.
func NewService(secret []byte, adminUser, adminPass string, sessionTTL, ssoTTL time.Duration) *Service {
	return &Service{
		secret:     secret,
		adminUser:  adminUser,
		adminPass:  adminPass,
		sessionTTL: sessionTTL,
		ssoTTL:     ssoTTL,
	}
}

// Login verifies credentials and returns a session token.
func (s *Service) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.adminUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPass)) == 1
	if !userOK || !passOK {
		return "", ErrBadCredentials
	}

	return Issue(s.secret, Claims{Username: username, Kind: KindSession}, s.sessionTTL)
}

// IssueSSO mints a short-lived handoff token for a device panel redirect.
func (s *Service) IssueSSO(username, location string) (string, error) {
	return Issue(s.secret, Claims{Username: username, Kind: KindSSO, Location: location}, s.ssoTTL)
}

// RedeemSSO validates an SSO token and returns a full session token for the
// device panel.
func (s *Service) RedeemSSO(token string) (string, error) {
	claims, err := Parse(s.secret, token)
	if err != nil {
		return "", err
	}
	if claims.Kind != KindSSO {
		return "", ErrBadCredentials
	}

	return Issue(s.secret, Claims{Username: claims.Username, Kind: KindSession}, s.sessionTTL)
}

// Validate parses a session token.
func (s *Service) Validate(token string) (*Claims, error) {
	claims, err := Parse(s.secret, token)
	if err != nil {
		return nil, err
	}
	if claims.Kind != KindSession {
		return nil, ErrBadCredentials
	}
	return claims, nil
}

// SessionTTL returns the configured session lifetime, for cookie expiry.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}
