// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package gateway assembles every gateway component into a single runnable
// value. Gateway is the one top-level value type holding every piece of
// mutable state; cmd/gateway constructs exactly one and calls Close on
// shutdown. No package-level var holds mutable state, so the whole thing
// can be constructed and exercised repeatedly from tests.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/effect-patterns/mcp-gateway/internal/apiclient"
	"github.com/effect-patterns/mcp-gateway/internal/authgate"
	"github.com/effect-patterns/mcp-gateway/internal/bodyparser"
	"github.com/effect-patterns/mcp-gateway/internal/config"
	"github.com/effect-patterns/mcp-gateway/internal/eventstore"
	"github.com/effect-patterns/mcp-gateway/internal/gatewayhttp"
	"github.com/effect-patterns/mcp-gateway/internal/oauth"
	"github.com/effect-patterns/mcp-gateway/internal/patterns"
	"github.com/effect-patterns/mcp-gateway/internal/tools"
	"github.com/effect-patterns/mcp-gateway/internal/transport"
)

const (
	serverName    = "mcp-gateway"
	serverVersion = "0.1.0"
)

// Gateway owns every long-lived component and background goroutine the
// server needs. Every bounded structure it wires together has an explicit
// capacity and eviction policy.
type Gateway struct {
	cfg *config.Config

	oauthServer *oauth.Server
	apiClient   *apiclient.Client
	registry    *tools.Registry
	transport   *transport.Handler
	router      http.Handler

	cancelBackground context.CancelFunc
}

// New constructs a Gateway from cfg: the OAuth server, API client, tool
// registry, transport handler, and HTTP router, plus the background
// sweeper goroutines each owns.
func New(cfg *config.Config) (*Gateway, error) {
	oauthServer, err := oauth.New(cfg)
	if err != nil {
		return nil, err
	}

	apiClient := apiclient.New(cfg.PatternsAPIURL, cfg.PatternAPIKey)

	registry := tools.NewRegistry(apiClient)
	if err := patterns.Register(registry); err != nil {
		return nil, err
	}

	events := eventstore.New(cfg.EventStoreMaxEvents, cfg.EventStoreTTL)
	transportHandler := transport.New(events, registry, transport.Config{
		MaxBodyBytes:  bodyparser.DefaultMaxBytes,
		BodyTimeout:   cfg.PostBodyTimeout,
		SSEDropAfter:  cfg.SSEDropAfter,
		ServerName:    serverName,
		ServerVersion: serverVersion,
	})

	gate := authgate.New(cfg.PatternAPIKey, oauthServer)
	origin := authgate.NewOriginGuard(cfg.Env, cfg.ProductionOrigins)

	router := gatewayhttp.New(gatewayhttp.Deps{
		OAuth:         oauthServer,
		Gate:          gate,
		Origin:        origin,
		Transport:     transportHandler,
		ServerName:    serverName,
		ServerVersion: serverVersion,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go apiClient.RunSweeper(ctx, 0)

	return &Gateway{
		cfg:              cfg,
		oauthServer:      oauthServer,
		apiClient:        apiClient,
		registry:         registry,
		transport:        transportHandler,
		router:           router,
		cancelBackground: cancel,
	}, nil
}

// Handler returns the gateway's top-level http.Handler.
func (g *Gateway) Handler() http.Handler { return g.router }

// Close stops every background goroutine and releases pooled connections.
// Idempotent-safe to call once at shutdown.
func (g *Gateway) Close() {
	g.cancelBackground()
	g.transport.CloseAll()
	g.oauthServer.Close()
	g.apiClient.Close()
}
