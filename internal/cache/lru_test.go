// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := New[string](10)
	c.Set("k", "v", time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestGetMissing(t *testing.T) {
	c := New[string](10)
	_, ok := c.Get("missing")
	require.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New[int](10)
	fakeNow := time.Now()
	c.now = func() time.Time { return fakeNow }
	c.Set("k", 1, time.Second)

	fakeNow = fakeNow.Add(2 * time.Second)
	_, ok := c.Get("k")
	require.False(t, ok, "entry should have expired")
	require.Equal(t, 0, c.Len(), "expired entry must be deleted on read")
}

func TestNoExpiryWhenTTLNonPositive(t *testing.T) {
	c := New[int](10)
	fakeNow := time.Now()
	c.now = func() time.Time { return fakeNow }
	c.Set("k", 1, 0)

	fakeNow = fakeNow.Add(24 * time.Hour)
	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestCapacityEvictsLeastRecentlyAccessed(t *testing.T) {
	c := New[int](2)
	fakeNow := time.Now()
	c.now = func() time.Time { return fakeNow }

	c.Set("a", 1, time.Hour)
	fakeNow = fakeNow.Add(time.Millisecond)
	c.Set("b", 2, time.Hour)

	// Touch "a" so "b" becomes the least-recently-accessed entry.
	fakeNow = fakeNow.Add(time.Millisecond)
	_, _ = c.Get("a")

	fakeNow = fakeNow.Add(time.Millisecond)
	c.Set("c", 3, time.Hour)

	_, aOK := c.Get("a")
	_, bOK := c.Get("b")
	_, cOK := c.Get("c")
	require.True(t, aOK, "recently accessed entry must survive eviction")
	require.False(t, bOK, "least recently accessed entry must be evicted")
	require.True(t, cOK)
	require.LessOrEqual(t, c.Len(), 2)
}

func TestSizeNeverExceedsMax(t *testing.T) {
	c := New[int](3)
	for i := 0; i < 100; i++ {
		c.Set(string(rune('a'+i%26))+string(rune(i)), i, time.Hour)
		require.LessOrEqual(t, c.Len(), 3)
	}
}

func TestUpdateExistingKeyDoesNotEvict(t *testing.T) {
	c := New[int](2)
	c.Set("a", 1, time.Hour)
	c.Set("b", 2, time.Hour)
	c.Set("a", 10, time.Hour) // update, not insert

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 10, v)
	_, ok = c.Get("b")
	require.True(t, ok, "updating an existing key must not evict another entry")
}

func TestDelete(t *testing.T) {
	c := New[int](10)
	c.Set("a", 1, time.Hour)
	c.Delete("a")
	_, ok := c.Get("a")
	require.False(t, ok)
}
