// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the per-session lifecycle state machine:
// Uninitialized -> Active -> Closed (terminal).
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateClosed
)

// Session tracks one client's MCP connection. The session id may not be
// reused once Closed.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu    sync.Mutex
	state State

	// outbound queues server-initiated notifications for the single GET
	// connection currently attached to this session; only that
	// connection's goroutine may write to the underlying ResponseWriter,
	// so publishers hand messages off through this channel instead of
	// writing directly.
	outbound chan outboundMsg
}

type outboundMsg struct {
	streamID string
	data     []byte
}

const outboundQueueSize = 64

func newSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		state:     StateUninitialized,
		outbound:  make(chan outboundMsg, outboundQueueSize),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Activate transitions Uninitialized -> Active. A no-op if already Active.
func (s *Session) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUninitialized {
		s.state = StateActive
	}
}

// Close transitions to the terminal Closed state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

// enqueue hands a server-initiated message to this session's attached GET
// connection, if any. Non-blocking: a full queue drops the oldest pending
// notification rather than stall the publisher. A queued notification is
// stored in the event store only when the GET connection writes it, so a
// dropped one is lost and is not available to Last-Event-ID replay.
func (s *Session) enqueue(streamID string, data []byte) {
	msg := outboundMsg{streamID: streamID, data: data}
	select {
	case s.outbound <- msg:
	default:
		select {
		case <-s.outbound:
		default:
		}
		select {
		case s.outbound <- msg:
		default:
		}
	}
}
