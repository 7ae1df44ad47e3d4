// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"fmt"
	"net/http"
)

// writeSSEHeaders sets the standard SSE response headers and the session
// id the client must echo on subsequent requests.
func writeSSEHeaders(w http.ResponseWriter, sessionID string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("MCP-Protocol-Version", ProtocolVersion)
	if sessionID != "" {
		w.Header().Set("Mcp-Session-Id", sessionID)
	}
}

// writeSSEEvent frames one event as "id: <eventId>\ndata: <json>\n\n",
// flushing immediately so the client observes it without buffering delay.
func writeSSEEvent(w http.ResponseWriter, eventID string, data []byte) {
	fmt.Fprintf(w, "id: %s\ndata: %s\n\n", eventID, data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
