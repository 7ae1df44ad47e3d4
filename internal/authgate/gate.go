// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package authgate implements the dual-auth admission policy for /mcp:
// API key OR OAuth bearer. When a server-side API key is configured, a
// presented but wrong API key is rejected outright; the bearer token is
// only consulted when no API key is presented or none is configured.
package authgate

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/effect-patterns/mcp-gateway/internal/rpcerr"
)

// BearerValidator is satisfied by *oauth.Server; kept as a small interface
// so the gate can be tested without a real OAuth server.
type BearerValidator interface {
	ValidateBearerToken(r *http.Request) Principal
}

// Principal describes the identity admitted for a request, whichever
// credential kind was used.
type Principal interface {
	ClientID() string
	Scopes() []string
}

// AuthError is the admission failure kind: surfaced as 401 with
// WWW-Authenticate, never retried, never logged with the credential
// material.
type AuthError struct {
	WWWAuthenticate string
	Message         string
}

func (e *AuthError) Error() string   { return e.Message }
func (e *AuthError) HTTPStatus() int { return http.StatusUnauthorized }
func (e *AuthError) RPCCode() int    { return rpcerr.CodeUnauthorized }

var _ rpcerr.GatewayError = (*AuthError)(nil)

const challenge = `Bearer realm="MCP Server", error="invalid_token"`

// apiKeyPrincipal admits requests authenticated by a matching x-api-key.
type apiKeyPrincipal struct{}

func (apiKeyPrincipal) ClientID() string { return "api-key" }
func (apiKeyPrincipal) Scopes() []string { return nil }

// Gate implements the API-key-or-bearer admission policy.
type Gate struct {
	apiKey    string
	validator BearerValidator
}

func New(apiKey string, validator BearerValidator) *Gate {
	return &Gate{apiKey: apiKey, validator: validator}
}

// Admit extracts credentials from r and returns the admitted Principal, or
// an *AuthError if none is valid. It never reads the request body.
func (g *Gate) Admit(r *http.Request) (Principal, error) {
	presented := extractAPIKey(r)

	if g.apiKey != "" {
		if presented != "" {
			if subtle.ConstantTimeCompare([]byte(presented), []byte(g.apiKey)) == 1 {
				return apiKeyPrincipal{}, nil
			}
			return nil, &AuthError{WWWAuthenticate: challenge, Message: "invalid API key"}
		}
	}

	if g.validator != nil {
		if principal := g.validator.ValidateBearerToken(r); principal != nil {
			return principal, nil
		}
	}

	return nil, &AuthError{
		WWWAuthenticate: challenge,
		Message:         "Unauthorized - valid API key or OAuth token required",
	}
}

// extractAPIKey reads the x-api-key header, falling back to the `key` or
// `api_key` query parameters.
func extractAPIKey(r *http.Request) string {
	if v := r.Header.Get("x-api-key"); v != "" {
		return v
	}
	q := r.URL.Query()
	if v := q.Get("key"); v != "" {
		return v
	}
	return q.Get("api_key")
}

// WriteHeaders sets the success-path response headers: MCP-Protocol-Version
// always, plus OAuth-principal identity headers when applicable.
func WriteHeaders(w http.ResponseWriter, protocolVersion string, p Principal) {
	w.Header().Set("MCP-Protocol-Version", protocolVersion)
	if _, isAPIKey := p.(apiKeyPrincipal); isAPIKey {
		return
	}
	w.Header().Set("X-OAuth-Client-ID", p.ClientID())
	w.Header().Set("X-OAuth-Scopes", strings.Join(p.Scopes(), " "))
}

// WriteUnauthorized writes the 401 JSON-RPC error response body.
func WriteUnauthorized(w http.ResponseWriter, err *AuthError) {
	w.Header().Set("WWW-Authenticate", err.WWWAuthenticate)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"jsonrpc":"2.0","error":{"code":%d,"message":%q}}`, rpcerr.CodeUnauthorized, err.Message)
}
