// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package eventstore implements the append-only, per-stream event log used
// to replay server-sent events after a client reconnects with a
// Last-Event-ID header.
//
// Events are keyed by a process-wide monotonic event ID rather than a
// per-stream index, so a reconnecting GET can look up which stream an
// opaque Last-Event-ID belonged to without first knowing the stream.
package eventstore

import (
	"errors"
	"strconv"
	"sync"
	"time"
)

// ErrUnknownEventID is returned by ReplayAfter when lastEventID is not (or
// is no longer) present in the store. Replay is best-effort: clients that
// fall outside the TTL/size window must re-initialize.
var ErrUnknownEventID = errors.New("eventstore: unknown event id")

// StoredEvent is one entry in the log.
type StoredEvent struct {
	EventID   string
	StreamID  string
	Message   []byte // opaque JSON
	CreatedAt time.Time
}

// Store is an in-memory, append-only, TTL- and size-bounded event log.
//
// Safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	maxEvents int
	ttl       time.Duration
	counter   uint64
	events    []StoredEvent // ascending by EventID
	now       func() time.Time
}

// New returns a Store bounded to maxEvents entries, each retained at most
// ttl after creation. If maxEvents <= 0, 1 is used. If ttl <= 0, events
// never expire by age (only by the size bound).
func New(maxEvents int, ttl time.Duration) *Store {
	if maxEvents <= 0 {
		maxEvents = 1
	}
	return &Store{
		maxEvents: maxEvents,
		ttl:       ttl,
		now:       time.Now,
	}
}

// StoreEvent trims expired entries, assigns the next monotonic event ID,
// appends msg to streamID's log, then trims the head if the store exceeds
// its size bound. It returns the assigned event ID.
func (s *Store) StoreEvent(streamID string, msg []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trimExpiredLocked()

	s.counter++
	eventID := strconv.FormatUint(s.counter, 10)
	s.events = append(s.events, StoredEvent{
		EventID:   eventID,
		StreamID:  streamID,
		Message:   msg,
		CreatedAt: s.now(),
	})

	if over := len(s.events) - s.maxEvents; over > 0 {
		s.events = s.events[over:]
	}

	return eventID
}

// GetStreamIDForEventID returns the stream associated with eventID, if
// still present in the store. A linear scan is acceptable here: events are
// small and maxEvents is bounded.
func (s *Store) GetStreamIDForEventID(eventID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trimExpiredLocked()
	for _, e := range s.events {
		if e.EventID == eventID {
			return e.StreamID, true
		}
	}
	return "", false
}

// ReplayAfter locates lastEventID, then invokes send for every subsequent
// event belonging to the same stream, in order. It returns that stream's
// ID, or ErrUnknownEventID if lastEventID is absent.
func (s *Store) ReplayAfter(lastEventID string, send func(eventID string, msg []byte)) (string, error) {
	s.mu.Lock()
	s.trimExpiredLocked()

	idx := -1
	for i, e := range s.events {
		if e.EventID == lastEventID {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return "", ErrUnknownEventID
	}
	streamID := s.events[idx].StreamID

	// Copy the matching tail out before releasing the lock, so send (which
	// may block on an SSE write) never runs while holding the store's lock.
	var toSend []StoredEvent
	for _, e := range s.events[idx+1:] {
		if e.StreamID == streamID {
			toSend = append(toSend, e)
		}
	}
	s.mu.Unlock()

	for _, e := range toSend {
		send(e.EventID, e.Message)
	}
	return streamID, nil
}

// Len returns the current number of retained events.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// trimExpiredLocked drops every event older than now-ttl. s.mu must be held.
func (s *Store) trimExpiredLocked() {
	if s.ttl <= 0 || len(s.events) == 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	i := 0
	for i < len(s.events) && s.events[i].CreatedAt.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.events = s.events[i:]
	}
}
