// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package gatewayhttp wires the gateway's components behind a
// go-chi/chi/v5 router: chi.NewRouter plus chi middleware.RequestID,
// RealIP and Recoverer applied globally, and route groups for endpoints
// with distinct auth requirements.
package gatewayhttp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/effect-patterns/mcp-gateway/internal/authgate"
	"github.com/effect-patterns/mcp-gateway/internal/oauth"
	"github.com/effect-patterns/mcp-gateway/internal/transport"
)

// Deps groups the components the router dispatches to.
type Deps struct {
	OAuth         *oauth.Server
	Gate          *authgate.Gate
	Origin        *authgate.OriginGuard
	Transport     *transport.Handler
	ServerName    string
	ServerVersion string
}

// New builds the gateway's HTTP router: `/auth` and `/token` for OAuth,
// `/mcp` for the MCP transport behind the origin guard and auth gate,
// discovery and info endpoints, and a catch-all 404 listing available
// endpoints.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/auth", d.OAuth.HandleAuthorize)
	r.Post("/token", d.OAuth.HandleToken)
	r.Get("/.well-known/oauth-authorization-server", d.OAuth.HandleDiscovery)

	r.Get("/info", d.serveInfo)

	r.Group(func(mcp chi.Router) {
		mcp.Use(d.originMiddleware)
		mcp.Use(d.authMiddleware)
		mcp.Handle("/mcp", d.Transport)
	})

	r.NotFound(notFoundHandler)
	return r
}

// originMiddleware enforces the Origin allow-list ahead of the auth gate,
// so a disallowed origin never reaches credential validation.
func (d Deps) originMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := d.Origin.Check(r); err != nil {
			authgate.WriteForbidden(w, err.(*authgate.OriginError))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (d Deps) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := d.Gate.Admit(r)
		if err != nil {
			authgate.WriteUnauthorized(w, err.(*authgate.AuthError))
			return
		}
		authgate.WriteHeaders(w, transport.ProtocolVersion, principal)
		next.ServeHTTP(w, r)
	})
}

func (d Deps) serveInfo(w http.ResponseWriter, r *http.Request) {
	clientID, _ := d.OAuth.Client()
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":            d.ServerName,
		"version":         d.ServerVersion,
		"protocolVersion": transport.ProtocolVersion,
		"oauthClientId":   clientID,
		"generatedAt":     time.Now().UTC().Format(time.RFC3339),
	})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]any{
		"error": "not found",
		"availableEndpoints": []string{
			"GET /auth",
			"POST /token",
			"GET /.well-known/oauth-authorization-server",
			"GET /info",
			"POST|GET|DELETE /mcp",
		},
	})
}
