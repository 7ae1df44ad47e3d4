// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package apiclient implements the pooled HTTPS fetch client the gateway
// uses to call the upstream patterns API: request deduplication for
// concurrent identical GETs, a two-tier bounded cache for pattern reads,
// and classification of low-level network failures into retryable vs.
// fatal kinds.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/effect-patterns/mcp-gateway/internal/cache"
)

// protocolVersion is advertised to the upstream API and in the gateway's
// own MCP-Protocol-Version response header.
const protocolVersion = "2025-11-25"

const requestTimeout = 10 * time.Second

// Client is the pooled HTTPS client used for every upstream call.
type Client struct {
	baseURL string
	apiKey  string

	httpClient *http.Client
	cache      *cache.LRU[[]byte]
	dedup      *dedupMap
}

// New constructs a Client against baseURL, using apiKey (if non-empty) as
// the upstream x-api-key credential.
func New(baseURL, apiKey string) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Transport: newPooledTransport(),
			Timeout:   requestTimeout,
		},
		cache: newPatternCache(),
		dedup: newDedupMap(),
	}
	return c
}

// RunSweeper periodically sweeps the dedup map's stale in-flight entries
// until ctx is canceled. Intended to run as a background goroutine
// alongside the OAuth cleanup sweeper.
func (c *Client) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = dedupWindow * sweepMultiple
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.dedup.sweep()
		}
	}
}

// Close releases pooled connections.
func (c *Client) Close() {
	if t, ok := c.httpClient.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

// Call performs one request to apiBase+"/api"+endpoint, returning the
// response body (unwrapped per the `data` field rule below) on success.
// The returned error, when non-nil, is either *TransientNetworkError or
// *FatalError — callers decide retry policy.
func (c *Client) Call(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	key := cacheKey(method, endpoint, body)

	if ttl, cacheable := patternCacheTTL(method, endpoint); cacheable {
		if cached, ok := c.cache.Get(key); ok {
			return cached, nil
		}
		return c.callDeduped(ctx, method, endpoint, body, key, ttl, true)
	}

	if method == http.MethodGet {
		return c.callDeduped(ctx, method, endpoint, body, key, 0, false)
	}

	return c.doRequest(ctx, method, endpoint, body)
}

// callDeduped coalesces concurrent identical GETs via the dedup map. When
// cacheable is true, a successful result is also stored in the pattern
// cache under ttl.
func (c *Client) callDeduped(ctx context.Context, method, endpoint string, body []byte, key string, ttl time.Duration, cacheable bool) ([]byte, error) {
	entry, owner := c.dedup.join(key)
	if !owner {
		return c.awaitEntry(ctx, entry)
	}

	data, err := c.doRequest(ctx, method, endpoint, body)
	c.dedup.resolve(entry, data, err)
	if err == nil && cacheable {
		c.cache.Set(key, data, ttl)
	}
	return data, err
}

func (c *Client) awaitEntry(ctx context.Context, entry *inFlightEntry) ([]byte, error) {
	select {
	case <-entry.done:
		return entry.data, entry.err
	case <-ctx.Done():
		return nil, errAsNetworkFailure(ctx.Err(), true)
	}
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	url := c.baseURL + "/api" + endpoint

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, &FatalError{Status: 500, Message: err.Error(), Details: Details{ErrorName: "RequestBuildError", ErrorType: ErrorTypeFetchError}}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("MCP-Protocol-Version", protocolVersion)
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		canceled := errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded)
		return nil, errAsNetworkFailure(err, canceled)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errAsNetworkFailure(err, false)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := upstreamErrorMessage(resp.StatusCode, raw)
		// 429 is the one upstream status worth retrying; classify it as
		// transient so it doesn't masquerade as a non-retryable FatalError.
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, &TransientNetworkError{
				Status:  resp.StatusCode,
				Message: msg,
				Details: Details{ErrorName: "UpstreamStatus", ErrorType: ErrorTypeFetchError, Retryable: true},
			}
		}
		return nil, &FatalError{
			Status:  resp.StatusCode,
			Message: msg,
			Details: Details{ErrorName: "UpstreamStatus", ErrorType: ErrorTypeFetchError, Retryable: false},
		}
	}

	return unwrapData(raw), nil
}

// unwrapData unwraps a response whose JSON body has a top-level data
// field to that field; otherwise it returns the whole body. This is
// deliberately ambiguous for endpoints that legitimately return their own
// top-level `data` field with different meaning; the simpler, literal
// rule is kept rather than special-casing individual endpoints.
func unwrapData(raw []byte) []byte {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Data == nil {
		return raw
	}
	return envelope.Data
}

func upstreamErrorMessage(status int, raw []byte) string {
	if len(raw) == 0 {
		return fmt.Sprintf("upstream returned status %d", status)
	}
	return string(raw)
}
