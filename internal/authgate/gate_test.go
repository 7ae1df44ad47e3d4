// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package authgate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakePrincipal struct {
	clientID string
	scopes   []string
}

func (p fakePrincipal) ClientID() string { return p.clientID }
func (p fakePrincipal) Scopes() []string { return p.scopes }

type fakeValidator struct {
	principal Principal
}

func (f fakeValidator) ValidateBearerToken(r *http.Request) Principal {
	return f.principal
}

func TestAdmitRejectsWhenNoCredential(t *testing.T) {
	g := New("", nil)
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	_, err := g.Admit(req)
	require.Error(t, err)
	var ae *AuthError
	require.ErrorAs(t, err, &ae)
}

func TestAdmitAcceptsMatchingAPIKey(t *testing.T) {
	g := New("secret-key", nil)
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("x-api-key", "secret-key")
	p, err := g.Admit(req)
	require.NoError(t, err)
	require.Equal(t, "api-key", p.ClientID())
}

func TestAdmitRejectsWrongAPIKey(t *testing.T) {
	g := New("secret-key", nil)
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("x-api-key", "wrong")
	_, err := g.Admit(req)
	require.Error(t, err)
}

func TestAdmitAcceptsAPIKeyFromQueryParam(t *testing.T) {
	g := New("secret-key", nil)
	req := httptest.NewRequest(http.MethodGet, "/mcp?key=secret-key", nil)
	p, err := g.Admit(req)
	require.NoError(t, err)
	require.Equal(t, "api-key", p.ClientID())
}

func TestAdmitFallsBackToBearerWhenNoAPIKeyConfigured(t *testing.T) {
	g := New("", fakeValidator{principal: fakePrincipal{clientID: "c1", scopes: []string{"mcp:access"}}})
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer tok")
	p, err := g.Admit(req)
	require.NoError(t, err)
	require.Equal(t, "c1", p.ClientID())
}

func TestAdmitRejectsInvalidBearer(t *testing.T) {
	g := New("", fakeValidator{principal: nil})
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	_, err := g.Admit(req)
	require.Error(t, err)
}

func TestOriginGuardAllowsNoOrigin(t *testing.T) {
	g := NewOriginGuard("development", nil)
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	require.NoError(t, g.Check(req))
}

func TestOriginGuardAllowsLocalhost(t *testing.T) {
	g := NewOriginGuard("development", nil)
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	require.NoError(t, g.Check(req))
}

func TestOriginGuardRejectsUnknownOrigin(t *testing.T) {
	g := NewOriginGuard("development", nil)
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	err := g.Check(req)
	require.Error(t, err)
	var oe *OriginError
	require.ErrorAs(t, err, &oe)
}

func TestOriginGuardAllowsProductionOriginsOnlyInProduction(t *testing.T) {
	dev := NewOriginGuard("development", []string{"https://gateway.example.com"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Origin", "https://gateway.example.com")
	require.Error(t, dev.Check(req))

	prod := NewOriginGuard("production", []string{"https://gateway.example.com"})
	require.NoError(t, prod.Check(req))
}
