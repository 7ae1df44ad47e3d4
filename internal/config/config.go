// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config loads the gateway's tuning parameters into a single
// explicit Config value passed to component constructors: there are no
// ambient package-level globals for configuration.
//
// Loading layers environment variables over the built-in defaults using
// spf13/viper, with an optional .env file (github.com/joho/godotenv)
// loaded first — the same env-first layering used by ashureev-shsh-labs and
// stacklok-toolhive's CLI entry points.
package config

import (
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AuthMethod enumerates the OAuth token endpoint client authentication
// methods the gateway supports.
type AuthMethod string

const (
	AuthMethodNone               AuthMethod = "none"
	AuthMethodClientSecretBasic  AuthMethod = "client_secret_basic"
	AuthMethodClientSecretPost   AuthMethod = "client_secret_post"
)

// Config groups every tuning parameter recognized by the gateway.
type Config struct {
	// Upstream patterns API.
	PatternsAPIURL string
	PatternAPIKey  string // also used as the ingress API key, if set

	// Listener.
	Port int

	// OAuth.
	PublicURL           string
	OAuthClientID       string
	OAuthClientSecret   string
	OAuthTokenAuthMethod AuthMethod
	OAuthMaxSessions    int
	OAuthMaxAuthCodes   int
	OAuthCleanupInterval time.Duration
	// RequireConsent turns off auto-approval of pre-registered clients at
	// the authorization endpoint. No consent step exists: when true, every
	// authorization request is refused with access_denied. Defaults to
	// false (auto-approve).
	RequireConsent bool

	// Event store.
	EventStoreMaxEvents int
	EventStoreTTL       time.Duration

	// PostBodyTimeout bounds how long the POST body reader will wait for
	// the full request body before giving up.
	PostBodyTimeout time.Duration

	// Diagnostics.
	SSEDropAfter time.Duration
	Debug        bool

	// Env deployment tier; "production" extends the origin allow-list.
	Env string

	// RegisteredRedirectURIs is the exact-match allow-list checked by the
	// authorization endpoint. Not independently configurable via env var;
	// defaults cover the first-party client's local callback.
	RegisteredRedirectURIs []string

	// SupportedScopes is the set of OAuth scopes the authorization server
	// will grant, advertised in discovery metadata.
	SupportedScopes []string

	// ProductionOrigins extends the origin allow-list when Env == "production".
	ProductionOrigins []string
}

// Default returns the gateway's built-in configuration defaults.
func Default() *Config {
	return &Config{
		PatternsAPIURL:       "https://effect-patterns-mcp.vercel.app",
		Port:                 3001,
		OAuthClientID:        "effect-patterns-mcp",
		OAuthTokenAuthMethod: AuthMethodNone,
		OAuthMaxSessions:     5000,
		OAuthMaxAuthCodes:    5000,
		OAuthCleanupInterval: 60 * time.Second,
		EventStoreMaxEvents:  2000,
		EventStoreTTL:        900 * time.Second,
		PostBodyTimeout:      10 * time.Second,
		Env:                  "development",
		RegisteredRedirectURIs: []string{
			"http://localhost:3000/callback",
			"http://localhost:3001/callback",
		},
		SupportedScopes: []string{"mcp:access", "patterns:read"},
	}
}

// Load reads envFile (if non-empty and present) into the process
// environment, then layers MCP_*/PATTERN_*-prefixed environment variables
// over the defaults. Missing envFile is not an error: in production the
// gateway is typically configured purely via environment variables.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile) // best-effort; absence is not fatal
	}

	v := viper.New()
	v.AutomaticEnv()
	cfg := Default()

	bind := func(key, env string) {
		_ = v.BindEnv(key, env)
	}
	bind("patterns_api_url", "EFFECT_PATTERNS_API_URL")
	bind("pattern_api_key", "PATTERN_API_KEY")
	bind("port", "PORT")
	bind("public_url", "MCP_SERVER_PUBLIC_URL")
	bind("oauth_client_id", "MCP_OAUTH_CLIENT_ID")
	bind("oauth_client_secret", "MCP_OAUTH_CLIENT_SECRET")
	bind("oauth_token_auth_method", "MCP_OAUTH_TOKEN_AUTH_METHOD")
	bind("oauth_max_sessions", "MCP_OAUTH_MAX_SESSIONS")
	bind("oauth_max_auth_codes", "MCP_OAUTH_MAX_AUTH_CODES")
	bind("oauth_cleanup_interval_ms", "MCP_OAUTH_CLEANUP_INTERVAL_MS")
	bind("event_store_max_events", "MCP_EVENT_STORE_MAX_EVENTS")
	bind("event_store_ttl_ms", "MCP_EVENT_STORE_TTL_MS")
	bind("post_body_timeout_ms", "MCP_POST_BODY_TIMEOUT_MS")
	bind("sse_drop_after_ms", "MCP_SSE_DROP_AFTER_MS")
	bind("debug", "MCP_DEBUG")
	bind("env", "NODE_ENV")

	if s := v.GetString("patterns_api_url"); s != "" {
		cfg.PatternsAPIURL = s
	}
	if s := v.GetString("pattern_api_key"); s != "" {
		cfg.PatternAPIKey = s
	}
	if n := v.GetInt("port"); n != 0 {
		cfg.Port = n
	}
	if s := v.GetString("public_url"); s != "" {
		cfg.PublicURL = s
	}
	if s := v.GetString("oauth_client_id"); s != "" {
		cfg.OAuthClientID = s
	}
	if s := v.GetString("oauth_client_secret"); s != "" {
		cfg.OAuthClientSecret = s
	}
	if s := v.GetString("oauth_token_auth_method"); s != "" {
		cfg.OAuthTokenAuthMethod = AuthMethod(s)
	}
	if n := v.GetInt("oauth_max_sessions"); n != 0 {
		cfg.OAuthMaxSessions = n
	}
	if n := v.GetInt("oauth_max_auth_codes"); n != 0 {
		cfg.OAuthMaxAuthCodes = n
	}
	if n := v.GetInt64("oauth_cleanup_interval_ms"); n != 0 {
		cfg.OAuthCleanupInterval = time.Duration(n) * time.Millisecond
	}
	if n := v.GetInt("event_store_max_events"); n != 0 {
		cfg.EventStoreMaxEvents = n
	}
	if n := v.GetInt64("event_store_ttl_ms"); n != 0 {
		cfg.EventStoreTTL = time.Duration(n) * time.Millisecond
	}
	if n := v.GetInt64("post_body_timeout_ms"); n != 0 {
		cfg.PostBodyTimeout = time.Duration(n) * time.Millisecond
	}
	if n := v.GetInt64("sse_drop_after_ms"); n != 0 {
		cfg.SSEDropAfter = time.Duration(n) * time.Millisecond
	}
	if v.IsSet("debug") {
		cfg.Debug = v.GetBool("debug")
	}
	if s := v.GetString("env"); s != "" {
		cfg.Env = s
	}

	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:" + strconv.Itoa(cfg.Port)
	}

	return cfg, nil
}
