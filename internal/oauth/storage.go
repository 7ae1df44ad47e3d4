// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauth

import (
	"time"

	"github.com/effect-patterns/mcp-gateway/internal/cache"
)

// Session is the OAuth session created when an access token is issued.
// Unique by AccessToken; also looked up by RefreshToken.
type Session struct {
	ClientID         string
	Scopes           []string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
}

// AuthorizationCode is a single-use code minted by the authorization
// endpoint and redeemed by the token endpoint.
type AuthorizationCode struct {
	Code                string
	ClientID            string
	RedirectURI         string
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
	ExpiresAt           time.Time
	Used                bool
}

// sessionTable indexes live sessions by access token, with a secondary
// index by refresh token so refresh-grant lookups don't require a scan.
// Bounded and LRU-evicted so it can never grow past its configured size.
type sessionTable struct {
	byAccess  *cache.LRU[*Session]
	byRefresh *cache.LRU[string] // refresh token -> access token
}

func newSessionTable(maxSessions int) *sessionTable {
	return &sessionTable{
		byAccess:  cache.New[*Session](maxSessions),
		byRefresh: cache.New[string](maxSessions),
	}
}

// put stores s under both indexes with a TTL pinned to the refresh
// token's lifetime rather than the access token's: a refresh grant must
// still be able to find the session after the access token itself has
// expired. Access-token liveness is enforced separately and explicitly
// by lookupBearerSession's AccessExpiresAt check, not by cache eviction.
func (t *sessionTable) put(s *Session) {
	ttl := time.Until(s.RefreshExpiresAt)
	if s.RefreshToken == "" {
		ttl = time.Until(s.AccessExpiresAt)
	}
	t.byAccess.Set(s.AccessToken, s, ttl)
	if s.RefreshToken != "" {
		t.byRefresh.Set(s.RefreshToken, s.AccessToken, ttl)
	}
}

func (t *sessionTable) getByAccessToken(token string) (*Session, bool) {
	return t.byAccess.Get(token)
}

func (t *sessionTable) getByRefreshToken(token string) (*Session, bool) {
	access, ok := t.byRefresh.Get(token)
	if !ok {
		return nil, false
	}
	return t.byAccess.Get(access)
}

func (t *sessionTable) revoke(accessToken string) {
	t.byAccess.Delete(accessToken)
}

func (t *sessionTable) revokeRefresh(refreshToken string) {
	t.byRefresh.Delete(refreshToken)
}

func (t *sessionTable) sweep() {
	t.byAccess.Sweep()
	t.byRefresh.Sweep()
}

// codeTable is the bounded, single-use authorization-code table.
type codeTable struct {
	codes *cache.LRU[*AuthorizationCode]
}

func newCodeTable(maxCodes int) *codeTable {
	return &codeTable{codes: cache.New[*AuthorizationCode](maxCodes)}
}

func (t *codeTable) put(c *AuthorizationCode) {
	t.codes.Set(c.Code, c, time.Until(c.ExpiresAt))
}

func (t *codeTable) get(code string) (*AuthorizationCode, bool) {
	return t.codes.Get(code)
}

func (t *codeTable) delete(code string) {
	t.codes.Delete(code)
}

func (t *codeTable) sweep() {
	t.codes.Sweep()
}
