// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package authgate

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/effect-patterns/mcp-gateway/internal/rpcerr"
)

// defaultAllowedOrigins is the unconditional localhost allow-list.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"https://localhost:3000",
	"https://localhost:3001",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:3001",
	"https://127.0.0.1:3000",
	"https://127.0.0.1:3001",
}

// OriginError is the origin/CSRF admission failure kind: 403, terminal.
type OriginError struct {
	Origin string
}

func (e *OriginError) Error() string   { return "origin not allowed: " + e.Origin }
func (e *OriginError) HTTPStatus() int { return http.StatusForbidden }
func (e *OriginError) RPCCode() int    { return rpcerr.CodeInvalidRequest }

var _ rpcerr.GatewayError = (*OriginError)(nil)

// OriginGuard allow-lists the Origin header on /mcp to prevent DNS
// rebinding.
type OriginGuard struct {
	allowed []string
}

// NewOriginGuard builds a guard from the always-allowed localhost origins
// plus productionOrigins, included only when env == "production".
func NewOriginGuard(env string, productionOrigins []string) *OriginGuard {
	allowed := slices.Clone(defaultAllowedOrigins)
	if env == "production" {
		allowed = append(allowed, productionOrigins...)
	}
	return &OriginGuard{allowed: allowed}
}

// Check allows requests with no Origin header (stdio-like clients) and
// requests whose Origin exactly matches the allow-list; anything else is
// rejected.
func (g *OriginGuard) Check(r *http.Request) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return nil
	}
	if slices.Contains(g.allowed, origin) {
		return nil
	}
	return &OriginError{Origin: origin}
}

// WriteForbidden writes the JSON-RPC -32600 error body for an origin
// mismatch.
func WriteForbidden(w http.ResponseWriter, err *OriginError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprintf(w, `{"jsonrpc":"2.0","error":{"code":%d,"message":"Invalid Origin"}}`, err.RPCCode())
}
