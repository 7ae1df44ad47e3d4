// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apiclient

import (
	"sync"
	"time"
)

// dedupWindow is the staleness bound under which concurrent identical GETs
// share a single upstream fetch.
const dedupWindow = 500 * time.Millisecond

// sweepMultiple is how many dedup windows old an in-flight entry may get
// before the periodic sweep removes it regardless of subscriber activity.
const sweepMultiple = 10

// maxInFlight bounds the in-flight map; oldest entries are evicted on
// overflow.
const maxInFlight = 500

// inFlightEntry is a single-flight future: one goroutine performs the
// fetch, and every caller that joins within dedupWindow waits on done and
// reads the shared result.
type inFlightEntry struct {
	createdAt time.Time
	done      chan struct{}
	data      []byte
	err       error
}

// dedupMap coalesces concurrent identical GET calls into one upstream
// fetch: for every pair of identical GETs started within dedupWindow,
// exactly one upstream fetch occurs.
type dedupMap struct {
	mu      sync.Mutex
	entries map[string]*inFlightEntry
	now     func() time.Time
}

func newDedupMap() *dedupMap {
	return &dedupMap{entries: make(map[string]*inFlightEntry), now: time.Now}
}

// join returns an existing fresh in-flight entry for key, or registers a
// new one and reports that the caller owns it (must fetch and call
// resolve). Stale entries (age ≥ dedupWindow) are discarded and replaced.
func (d *dedupMap) join(key string) (entry *inFlightEntry, owner bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if e, ok := d.entries[key]; ok {
		if now.Sub(e.createdAt) < dedupWindow {
			return e, false
		}
		delete(d.entries, key)
	}

	if len(d.entries) >= maxInFlight {
		d.evictOldestLocked()
	}

	e := &inFlightEntry{createdAt: now, done: make(chan struct{})}
	d.entries[key] = e
	return e, true
}

// resolve completes the in-flight entry owned by the caller, waking every
// joined waiter. The entry is left in the map (not deleted) so late joiners
// within the window can still observe the resolved result; the periodic
// sweep reclaims it.
func (d *dedupMap) resolve(e *inFlightEntry, data []byte, err error) {
	e.data, e.err = data, err
	close(e.done)
}

func (d *dedupMap) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range d.entries {
		if first || e.createdAt.Before(oldestAt) {
			oldestKey, oldestAt, first = k, e.createdAt, false
		}
	}
	if !first {
		delete(d.entries, oldestKey)
	}
}

// sweep removes in-flight entries older than sweepMultiple dedup windows,
// regardless of whether they resolved.
func (d *dedupMap) sweep() {
	d.mu.Lock()
	defer d.mu.Unlock()
	cutoff := d.now().Add(-sweepMultiple * dedupWindow)
	for k, e := range d.entries {
		if e.createdAt.Before(cutoff) {
			delete(d.entries, k)
		}
	}
}
