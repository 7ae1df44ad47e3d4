// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package oauth implements an in-memory OAuth 2.1 authorization server:
// authorization-code + PKCE flow, refresh token rotation, bearer
// validation, and RFC 8414 discovery metadata. Sessions and authorization
// codes live in bounded, LRU-evicted tables swept periodically by a
// background goroutine.
package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/effect-patterns/mcp-gateway/internal/authgate"
	"github.com/effect-patterns/mcp-gateway/internal/config"
	"github.com/effect-patterns/mcp-gateway/internal/rpcerr"
)

// sessionPrincipal adapts *Session to authgate.Principal. Defined as a
// wrapper rather than methods on *Session directly, since Session already
// declares ClientID and Scopes as exported fields.
type sessionPrincipal struct{ *Session }

func (p sessionPrincipal) ClientID() string { return p.Session.ClientID }
func (p sessionPrincipal) Scopes() []string { return p.Session.Scopes }

var _ authgate.Principal = sessionPrincipal{}

// Client is the single pre-registered OAuth client the gateway serves.
// Dynamic client registration is out of scope.
type Client struct {
	ID           string
	Secret       string
	AuthMethod   config.AuthMethod
	RedirectURIs []string
}

// Server is the in-memory OAuth 2.1 authorization server.
type Server struct {
	issuer          string
	client          Client
	supportedScopes []string
	requireConsent  bool

	signingKey []byte

	sessions *sessionTable
	codes    *codeTable

	now func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Server from cfg. The signing key is generated randomly
// at startup: OAuth state does not persist across restarts, so tokens
// issued by a previous process instance are never expected to validate
// again.
func New(cfg *config.Config) (*Server, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	s := &Server{
		issuer: cfg.PublicURL,
		client: Client{
			ID:           cfg.OAuthClientID,
			Secret:       cfg.OAuthClientSecret,
			AuthMethod:   cfg.OAuthTokenAuthMethod,
			RedirectURIs: cfg.RegisteredRedirectURIs,
		},
		supportedScopes: cfg.SupportedScopes,
		requireConsent:  cfg.RequireConsent,
		signingKey:      key,
		sessions:        newSessionTable(cfg.OAuthMaxSessions),
		codes:           newCodeTable(cfg.OAuthMaxAuthCodes),
		now:             time.Now,
		stopCh:          make(chan struct{}),
	}
	go s.sweepLoop(cfg.OAuthCleanupInterval)
	return s, nil
}

// Close stops the background cleanup sweeper. Safe to call more than once.
func (s *Server) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// sweepLoop periodically removes expired sessions and authorization codes.
// It never blocks request handling: each tick only touches the bounded
// tables' own locks, held briefly.
func (s *Server) sweepLoop(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.sessions.sweep()
			s.codes.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// ValidationError is a terminal OAuth or body-parse failure, carrying the
// OAuth error code to surface (e.g. "invalid_grant", "invalid_request").
type ValidationError struct {
	Status int
	Code   string // OAuth error code, e.g. "invalid_grant"
}

func (e *ValidationError) Error() string   { return e.Code }
func (e *ValidationError) HTTPStatus() int { return e.Status }
func (e *ValidationError) RPCCode() int    { return rpcerr.CodeInvalidRequest }

var _ rpcerr.GatewayError = (*ValidationError)(nil)

func invalidRequest() *ValidationError { return &ValidationError{Status: http.StatusBadRequest, Code: "invalid_request"} }
func invalidGrant() *ValidationError   { return &ValidationError{Status: http.StatusBadRequest, Code: "invalid_grant"} }

// HandleAuthorize implements GET /auth.
func (s *Server) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")
	state := q.Get("state")

	// Until we have a validated redirect URI, we cannot safely redirect
	// errors back to the client: return them directly instead.
	if q.Get("response_type") != "code" {
		http.Error(w, "unsupported_response_type", http.StatusBadRequest)
		return
	}
	if clientID != s.client.ID {
		http.Error(w, "invalid_client", http.StatusBadRequest)
		return
	}
	if redirectURI == "" || !slices.Contains(s.client.RedirectURIs, redirectURI) {
		http.Error(w, "invalid_request: redirect_uri not registered", http.StatusBadRequest)
		return
	}

	codeChallenge := q.Get("code_challenge")
	codeChallengeMethod := q.Get("code_challenge_method")
	if codeChallenge == "" || codeChallengeMethod != "S256" {
		s.redirectError(w, r, redirectURI, state, "invalid_request")
		return
	}

	scopes := parseScopes(q.Get("scope"))
	if !scopesSubsetOf(scopes, s.supportedScopes) {
		s.redirectError(w, r, redirectURI, state, "invalid_scope")
		return
	}
	if len(scopes) == 0 {
		scopes = s.supportedScopes
	}

	// Pre-registered clients are auto-approved unless RequireConsent is
	// set. No consent UI is implemented either way; RequireConsent=true
	// simply refuses the request until that UI exists.
	if s.requireConsent {
		s.redirectError(w, r, redirectURI, state, "access_denied")
		return
	}

	code, err := randomToken(32)
	if err != nil {
		http.Error(w, "server_error", http.StatusInternalServerError)
		return
	}
	now := s.now()
	s.codes.put(&AuthorizationCode{
		Code:                code,
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		Scopes:              scopes,
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: codeChallengeMethod,
		ExpiresAt:           now.Add(60 * time.Second),
	})

	dest, _ := url.Parse(redirectURI)
	qs := dest.Query()
	qs.Set("code", code)
	if state != "" {
		qs.Set("state", state)
	}
	dest.RawQuery = qs.Encode()
	http.Redirect(w, r, dest.String(), http.StatusFound)
}

func (s *Server) redirectError(w http.ResponseWriter, r *http.Request, redirectURI, state, code string) {
	dest, err := url.Parse(redirectURI)
	if err != nil {
		http.Error(w, code, http.StatusBadRequest)
		return
	}
	qs := dest.Query()
	qs.Set("error", code)
	qs.Set("error_description", "")
	if state != "" {
		qs.Set("state", state)
	}
	dest.RawQuery = qs.Encode()
	http.Redirect(w, r, dest.String(), http.StatusFound)
}

// HandleToken implements POST /token for both grant types.
func (s *Server) HandleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, invalidRequest())
		return
	}
	if err := s.authenticateClient(r); err != nil {
		writeOAuthError(w, err)
		return
	}

	switch r.Form.Get("grant_type") {
	case "authorization_code":
		s.handleAuthorizationCodeGrant(w, r)
	case "refresh_token":
		s.handleRefreshTokenGrant(w, r)
	default:
		writeOAuthError(w, &ValidationError{Status: http.StatusBadRequest, Code: "unsupported_grant_type"})
	}
}

// authenticateClient validates the client per the configured
// tokenEndpointAuthMethod, using a constant-time comparison whenever a
// secret is configured.
func (s *Server) authenticateClient(r *http.Request) *ValidationError {
	clientID := r.Form.Get("client_id")
	var presentedSecret string
	var haveBasic bool

	if u, p, ok := r.BasicAuth(); ok {
		clientID = u
		presentedSecret = p
		haveBasic = true
	} else {
		presentedSecret = r.Form.Get("client_secret")
	}

	if clientID != s.client.ID {
		return &ValidationError{Status: http.StatusUnauthorized, Code: "invalid_client"}
	}
	if s.client.Secret == "" {
		return nil // public client; secret not required regardless of method
	}

	switch s.client.AuthMethod {
	case config.AuthMethodClientSecretBasic:
		if !haveBasic {
			return &ValidationError{Status: http.StatusUnauthorized, Code: "invalid_client"}
		}
	case config.AuthMethodClientSecretPost:
		if haveBasic {
			return &ValidationError{Status: http.StatusUnauthorized, Code: "invalid_client"}
		}
	}
	if subtle.ConstantTimeCompare([]byte(presentedSecret), []byte(s.client.Secret)) != 1 {
		return &ValidationError{Status: http.StatusUnauthorized, Code: "invalid_client"}
	}
	return nil
}

func (s *Server) handleAuthorizationCodeGrant(w http.ResponseWriter, r *http.Request) {
	code := r.Form.Get("code")
	redirectURI := r.Form.Get("redirect_uri")
	clientID := r.Form.Get("client_id")
	verifier := r.Form.Get("code_verifier")

	if code == "" || redirectURI == "" || clientID == "" || verifier == "" {
		writeOAuthError(w, invalidRequest())
		return
	}

	ac, ok := s.codes.get(code)
	if !ok || ac.Used || s.now().After(ac.ExpiresAt) {
		writeOAuthError(w, invalidGrant())
		return
	}
	if ac.RedirectURI != redirectURI || ac.ClientID != clientID {
		writeOAuthError(w, invalidGrant())
		return
	}
	if !verifyPKCE(verifier, ac.CodeChallenge) {
		writeOAuthError(w, invalidGrant())
		return
	}

	// Single-use: mark the code used (re-store so concurrent redemption
	// attempts observe it) before issuing tokens.
	ac.Used = true
	s.codes.put(ac)

	s.issueTokens(w, ac.ClientID, ac.Scopes)
}

func (s *Server) handleRefreshTokenGrant(w http.ResponseWriter, r *http.Request) {
	refreshToken := r.Form.Get("refresh_token")
	clientID := r.Form.Get("client_id")
	if refreshToken == "" || clientID == "" {
		writeOAuthError(w, invalidRequest())
		return
	}

	sess, ok := s.sessions.getByRefreshToken(refreshToken)
	if !ok || sess.ClientID != clientID || s.now().After(sess.RefreshExpiresAt) {
		writeOAuthError(w, invalidGrant())
		return
	}

	// Rotate: the old refresh token (and the access token it was paired
	// with) is invalidated once a new pair is issued.
	s.sessions.revoke(sess.AccessToken)
	s.sessions.revokeRefresh(sess.RefreshToken)

	s.issueTokens(w, sess.ClientID, sess.Scopes)
}

func (s *Server) issueTokens(w http.ResponseWriter, clientID string, scopes []string) {
	now := s.now()
	accessToken, accessExpiresAt, err := s.mintAccessToken(clientID, scopes, now)
	if err != nil {
		http.Error(w, "server_error", http.StatusInternalServerError)
		return
	}
	refreshToken, err := randomToken(32)
	if err != nil {
		http.Error(w, "server_error", http.StatusInternalServerError)
		return
	}

	s.sessions.put(&Session{
		ClientID:         clientID,
		Scopes:           scopes,
		AccessToken:      accessToken,
		RefreshToken:      refreshToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: now.Add(refreshTokenLifetime),
		CreatedAt:        now,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  accessToken,
		"token_type":    "Bearer",
		"expires_in":    int(accessTokenLifetime.Seconds()),
		"refresh_token": refreshToken,
		"scope":         strings.Join(scopes, " "),
	})
}

// ValidateBearerToken returns the admitted principal for the bearer token
// carried in the request's Authorization header, or nil if there is none,
// it is unknown, or it has expired. Implements authgate.BearerValidator.
func (s *Server) ValidateBearerToken(r *http.Request) authgate.Principal {
	sess := s.lookupBearerSession(r)
	if sess == nil {
		return nil
	}
	return sessionPrincipal{sess}
}

// lookupBearerSession is the underlying session lookup, exposed separately
// from ValidateBearerToken so tests can assert on session fields directly
// without depending on the authgate.Principal interface.
func (s *Server) lookupBearerSession(r *http.Request) *Session {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return nil
	}
	token := strings.TrimPrefix(auth, prefix)
	sess, ok := s.sessions.getByAccessToken(token)
	if !ok {
		return nil
	}
	if s.now().After(sess.AccessExpiresAt) {
		return nil
	}
	return sess
}

// DiscoveryDocument returns the RFC 8414 metadata document.
func (s *Server) DiscoveryDocument() map[string]any {
	return map[string]any{
		"issuer":                                s.issuer,
		"authorization_endpoint":                s.issuer + "/auth",
		"token_endpoint":                         s.issuer + "/token",
		"grant_types_supported":                  []string{"authorization_code", "refresh_token"},
		"code_challenge_methods_supported":        []string{"S256"},
		"require_pkce":                           true,
		"scopes_supported":                       s.supportedScopes,
		"token_endpoint_auth_methods_supported":   []string{"none", "client_secret_basic", "client_secret_post"},
		"response_types_supported":               []string{"code"},
	}
}

// HandleDiscovery serves GET /.well-known/oauth-authorization-server,
// cacheable for 1 hour.
func (s *Server) HandleDiscovery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, s.DiscoveryDocument())
}

// Client returns the single registered client's public identifiers, for
// components (e.g. internal/gateway bootstrap logging) that need to report
// configuration without holding a reference to *config.Config.
func (s *Server) Client() (clientID string, redirectURIs []string) {
	return s.client.ID, s.client.RedirectURIs
}

func parseScopes(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}

func scopesSubsetOf(requested, supported []string) bool {
	for _, r := range requested {
		if !slices.Contains(supported, r) {
			return false
		}
	}
	return true
}

func writeOAuthError(w http.ResponseWriter, err *ValidationError) {
	writeJSON(w, err.Status, map[string]string{"error": err.Code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
