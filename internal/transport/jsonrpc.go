// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transport implements the streamable HTTP transport: JSON-RPC
// over POST+SSE, session lifecycle, and Last-Event-ID resumption. Event
// bookkeeping lives in internal/eventstore as a standalone, testable event
// log rather than an in-transport map.
package transport

import (
	"encoding/json"
)

// ProtocolVersion is advertised in the MCP-Protocol-Version header.
const ProtocolVersion = "2025-11-25"

// RequestID is the JSON-RPC id field: a string, number, or null.
type RequestID = json.RawMessage

// Request is an incoming JSON-RPC request or notification (no id).
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      RequestID       `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id, and therefore
// expects no response.
func (r *Request) IsNotification() bool { return len(r.ID) == 0 }

// Response is an outgoing JSON-RPC response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      RequestID       `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the JSON-RPC error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewResultResponse builds a successful response envelope.
func NewResultResponse(id RequestID, result any) *Response {
	raw, _ := json.Marshal(result)
	return &Response{JSONRPC: "2.0", ID: id, Result: raw}
}

// NewErrorResponse builds an error response envelope.
func NewErrorResponse(id RequestID, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// ParseMessages decodes a request body into one or more JSON-RPC requests,
// supporting both a single object and a batch array.
func ParseMessages(body json.RawMessage) ([]*Request, error) {
	trimmed := firstNonSpace(body)
	if trimmed == '[' {
		var batch []*Request
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, err
		}
		return batch, nil
	}
	var single Request
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, err
	}
	return []*Request{&single}, nil
}

func firstNonSpace(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return c
		}
	}
	return 0
}
