// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/effect-patterns/mcp-gateway/internal/eventstore"
)

type echoDispatcher struct{}

func (echoDispatcher) Dispatch(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, *RPCError) {
	if method == "fail" {
		return nil, &RPCError{Code: -32603, Message: "boom"}
	}
	return json.RawMessage(`{"echo":true}`), nil
}

func newTestHandler() *Handler {
	return New(eventstore.New(1000, time.Minute), echoDispatcher{}, Config{
		MaxBodyBytes:  1_000_000,
		BodyTimeout:   time.Second,
		ServerName:    "test-gateway",
		ServerVersion: "0.0.0",
	})
}

func parseSSEEvents(t *testing.T, body string) []map[string]any {
	t.Helper()
	var events []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			var v map[string]any
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &v))
			events = append(events, v)
		}
	}
	return events
}

func initializeSession(t *testing.T, h *Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	sid := rec.Header().Get("Mcp-Session-Id")
	require.NotEmpty(t, sid)
	return sid
}

func TestInitializeCreatesSessionAndReturnsID(t *testing.T) {
	h := newTestHandler()
	sid := initializeSession(t, h)

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{}}`))
	req.Header.Set("Mcp-Session-Id", sid)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	events := parseSSEEvents(t, rec.Body.String())
	require.Len(t, events, 1)
	require.Equal(t, true, events[0]["result"].(map[string]any)["echo"])
}

func TestRequestBeforeInitializeRejected(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Contains(t, rec.Body.String(), "Mcp-Session-Id header required")
}

func TestUnknownSessionRejected(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}}`))
	req.Header.Set("Mcp-Session-Id", "does-not-exist")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDispatcherErrorSurfacesAsJSONRPCError(t *testing.T) {
	h := newTestHandler()
	sid := initializeSession(t, h)

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":3,"method":"fail","params":{}}`))
	req.Header.Set("Mcp-Session-Id", sid)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	events := parseSSEEvents(t, rec.Body.String())
	require.Len(t, events, 1)
	errObj := events[0]["error"].(map[string]any)
	require.Equal(t, "boom", errObj["message"])
}

func TestNotificationsReceiveNoResponse(t *testing.T) {
	h := newTestHandler()
	sid := initializeSession(t, h)

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","method":"tools/call","params":{}}`))
	req.Header.Set("Mcp-Session-Id", sid)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	events := parseSSEEvents(t, rec.Body.String())
	require.Len(t, events, 0)
}

func TestDeleteClosesSession(t *testing.T) {
	h := newTestHandler()
	sid := initializeSession(t, h)

	del := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	del.Header.Set("Mcp-Session-Id", sid)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, del)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}}`))
	req.Header.Set("Mcp-Session-Id", sid)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusNotFound, rec2.Code)
}

func TestBatchRequestsEachProduceAnEvent(t *testing.T) {
	h := newTestHandler()
	sid := initializeSession(t, h)

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(
		`[{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}},{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{}}]`))
	req.Header.Set("Mcp-Session-Id", sid)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	events := parseSSEEvents(t, rec.Body.String())
	require.Len(t, events, 2)
}
