// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseMessagesSingleRequest(t *testing.T) {
	got, err := ParseMessages(json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)

	want := []*Request{{JSONRPC: "2.0", ID: json.RawMessage("1"), Method: "tools/list"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseMessages mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMessagesBatch(t *testing.T) {
	got, err := ParseMessages(json.RawMessage(
		`[{"jsonrpc":"2.0","id":1,"method":"a"},{"jsonrpc":"2.0","method":"b"}]`))
	require.NoError(t, err)
	require.Len(t, got, 2)

	want := []*Request{
		{JSONRPC: "2.0", ID: json.RawMessage("1"), Method: "a"},
		{JSONRPC: "2.0", Method: "b"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseMessages batch mismatch (-want +got):\n%s", diff)
	}
	require.True(t, got[1].IsNotification())
	require.False(t, got[0].IsNotification())
}

func TestNewResultResponseMarshalsResult(t *testing.T) {
	resp := NewResultResponse(json.RawMessage("7"), map[string]any{"ok": true})
	want := &Response{JSONRPC: "2.0", ID: json.RawMessage("7"), Result: json.RawMessage(`{"ok":true}`)}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("NewResultResponse mismatch (-want +got):\n%s", diff)
	}
}

func TestNewErrorResponseBuildsRPCError(t *testing.T) {
	resp := NewErrorResponse(json.RawMessage("3"), -32600, "bad request")
	want := &Response{JSONRPC: "2.0", ID: json.RawMessage("3"), Error: &RPCError{Code: -32600, Message: "bad request"}}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("NewErrorResponse mismatch (-want +got):\n%s", diff)
	}
}
