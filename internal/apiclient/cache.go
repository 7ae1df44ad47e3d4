// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apiclient

import (
	"net/http"
	"strings"
	"time"

	"github.com/effect-patterns/mcp-gateway/internal/cache"
)

const (
	patternCacheSize     = 100
	patternDetailTTL     = 2 * time.Second
	patternListTTL       = 5 * time.Second
)

// patternCacheTTL reports whether endpoint is cacheable, and for how long:
// detail paths (/patterns/<id>) get 2s, list/search paths (/patterns,
// /patterns/search, ...) get 5s. Only GETs under /patterns* are ever
// considered.
func patternCacheTTL(method, endpoint string) (time.Duration, bool) {
	if method != http.MethodGet {
		return 0, false
	}
	if !strings.HasPrefix(endpoint, "/patterns") {
		return 0, false
	}
	rest := strings.TrimPrefix(endpoint, "/patterns")
	rest = strings.TrimPrefix(rest, "/")
	rest, _, _ = strings.Cut(rest, "?")
	if rest == "" {
		return patternListTTL, true
	}
	// A path segment with no further slash and not a known collection verb
	// is a detail lookup, e.g. /patterns/abc123. Anything with an
	// additional segment (e.g. /patterns/search/foo) is list-like.
	if !strings.Contains(rest, "/") && rest != "search" && rest != "categories" {
		return patternDetailTTL, true
	}
	return patternListTTL, true
}

// cacheKey is the "METHOD:endpoint:body" cache key shape.
func cacheKey(method, endpoint string, body []byte) string {
	return method + ":" + endpoint + ":" + string(body)
}

func newPatternCache() *cache.LRU[[]byte] {
	return cache.New[[]byte](patternCacheSize)
}
