// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package eventstore

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreEventIDsIncreaseAndAreUnique(t *testing.T) {
	s := New(100, time.Hour)
	seen := map[string]bool{}
	prev := uint64(0)
	for i := 0; i < 20; i++ {
		id := s.StoreEvent("stream-1", []byte("msg"))
		require.False(t, seen[id], "event id reused: %s", id)
		seen[id] = true
		n, err := strconv.ParseUint(id, 10, 64)
		require.NoError(t, err)
		require.Greater(t, n, prev)
		prev = n
	}
}

func TestMaxEventsBound(t *testing.T) {
	s := New(5, time.Hour)
	for i := 0; i < 50; i++ {
		s.StoreEvent("s", []byte("m"))
		require.LessOrEqual(t, s.Len(), 5)
	}
}

func TestTTLTrim(t *testing.T) {
	s := New(100, time.Second)
	fakeNow := time.Now()
	s.now = func() time.Time { return fakeNow }

	s.StoreEvent("s", []byte("old"))
	fakeNow = fakeNow.Add(2 * time.Second)
	s.StoreEvent("s", []byte("new"))

	require.Equal(t, 1, s.Len(), "expired event must be trimmed")
}

func TestReplayAfterOrderedSameStreamOnly(t *testing.T) {
	s := New(100, time.Hour)
	id1 := s.StoreEvent("stream-A", []byte("a1"))
	s.StoreEvent("stream-B", []byte("b1")) // interleaved, different stream
	id2 := s.StoreEvent("stream-A", []byte("a2"))
	s.StoreEvent("stream-B", []byte("b2"))
	id3 := s.StoreEvent("stream-A", []byte("a3"))
	_ = id2

	var got []string
	streamID, err := s.ReplayAfter(id1, func(eventID string, msg []byte) {
		got = append(got, string(msg))
	})
	require.NoError(t, err)
	require.Equal(t, "stream-A", streamID)
	require.Equal(t, []string{"a2", "a3"}, got)
	require.NotEqual(t, id1, id3)
}

func TestReplayUnknownEventID(t *testing.T) {
	s := New(100, time.Hour)
	s.StoreEvent("s", []byte("m"))
	_, err := s.ReplayAfter("does-not-exist", func(string, []byte) {})
	require.ErrorIs(t, err, ErrUnknownEventID)
}

func TestGetStreamIDForEventID(t *testing.T) {
	s := New(100, time.Hour)
	id := s.StoreEvent("stream-X", []byte("m"))
	streamID, ok := s.GetStreamIDForEventID(id)
	require.True(t, ok)
	require.Equal(t, "stream-X", streamID)

	_, ok = s.GetStreamIDForEventID("nope")
	require.False(t, ok)
}
