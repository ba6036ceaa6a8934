/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package auth issues and validates the signed tokens used for operator
// sessions and for single sign-on handoff to display devices.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds. A session token authenticates an operator browser; an SSO
// token is a short-lived, single-purpose credential minted for the redirect
// from the central panel to a device panel.
const (
	KindSession = "session"
	KindSSO     = "sso"
)

// Claims extends standard registered claims with the token kind and the
// target location for SSO handoffs.
type Claims struct {
	Username string `json:"username"`
	Kind     string `json:"kind"`
	Location string `json:"location,omitempty"`
	jwt.RegisteredClaims
}

// Issue creates a signed token string.
func Issue(secret []byte, claims Claims, ttl time.Duration) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Subject:   claims.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Parse validates a token string.
func Parse(secret []byte, token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}
