// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apiclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPatternCacheTTLClassifiesPaths(t *testing.T) {
	ttl, ok := patternCacheTTL(http.MethodGet, "/patterns")
	require.True(t, ok)
	require.Equal(t, patternListTTL, ttl)

	ttl, ok = patternCacheTTL(http.MethodGet, "/patterns/abc123")
	require.True(t, ok)
	require.Equal(t, patternDetailTTL, ttl)

	ttl, ok = patternCacheTTL(http.MethodGet, "/patterns/search")
	require.True(t, ok)
	require.Equal(t, patternListTTL, ttl)

	_, ok = patternCacheTTL(http.MethodPost, "/patterns")
	require.False(t, ok)

	_, ok = patternCacheTTL(http.MethodGet, "/status")
	require.False(t, ok)
}

func TestDedupMapSweepRemovesStaleEntries(t *testing.T) {
	d := newDedupMap()
	fakeNow := time.Now()
	d.now = func() time.Time { return fakeNow }

	entry, owner := d.join("k")
	require.True(t, owner)
	d.resolve(entry, []byte("v"), nil)

	fakeNow = fakeNow.Add(sweepMultiple*dedupWindow + time.Millisecond)
	d.sweep()

	_, owner = d.join("k")
	require.True(t, owner, "a swept key must be re-owned, not shared")
}

func TestDedupMapJoinSharesWithinWindow(t *testing.T) {
	d := newDedupMap()
	fakeNow := time.Now()
	d.now = func() time.Time { return fakeNow }

	first, owner := d.join("k")
	require.True(t, owner)

	fakeNow = fakeNow.Add(dedupWindow / 2)
	second, owner := d.join("k")
	require.False(t, owner)
	require.Same(t, first, second)
}
