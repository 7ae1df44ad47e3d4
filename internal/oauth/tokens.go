// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// accessTokenLifetime is the fixed lifetime of a minted access token.
const accessTokenLifetime = time.Hour

// refreshTokenLifetime bounds how long a refresh token may be redeemed.
// Chosen generously since refresh tokens are revoked/rotated on use and
// the session table is bounded regardless.
const refreshTokenLifetime = 30 * 24 * time.Hour

// mintAccessToken signs a JWT carrying clientID and scopes as claims.
//
// The session table (sessionTable, keyed by the token string itself)
// remains the sole source of truth for whether the token is still live;
// the JWT signature only prevents forgery of tokens the gateway never
// issued.
func (s *Server) mintAccessToken(clientID string, scopes []string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(accessTokenLifetime)
	claims := jwt.MapClaims{
		"iss":   s.issuer,
		"sub":   clientID,
		"scope": strings.Join(scopes, " "),
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}
