// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/effect-patterns/mcp-gateway/internal/bodyparser"
	"github.com/effect-patterns/mcp-gateway/internal/eventstore"
	"github.com/effect-patterns/mcp-gateway/internal/rpcerr"
)

// Dispatcher maps a JSON-RPC method (other than "initialize", which the
// transport answers itself) to its result. Implemented by
// internal/tools.Registry; declared here as a small interface so the
// transport can be tested without a real tool registry.
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, *RPCError)
}

// Handler serves the streamable HTTP transport's /mcp surface. It assumes
// the caller has already run the auth gate and origin guard; for POST,
// Handler reads the body itself through the bounded body parser.
type Handler struct {
	sessions   *registry
	events     *eventstore.Store
	dispatcher Dispatcher

	nextStream atomic.Int64

	// sseDropAfter forces an active GET SSE connection closed after this
	// long, to exercise client reconnection. Zero disables it.
	sseDropAfter time.Duration

	maxBodyBytes  int64
	bodyTimeout   time.Duration
	serverName    string
	serverVersion string
}

// Config groups Handler's tuning parameters.
type Config struct {
	MaxBodyBytes  int64
	BodyTimeout   time.Duration
	SSEDropAfter  time.Duration
	ServerName    string
	ServerVersion string
}

func New(events *eventstore.Store, dispatcher Dispatcher, cfg Config) *Handler {
	return &Handler{
		sessions:      newRegistry(),
		events:        events,
		dispatcher:    dispatcher,
		sseDropAfter:  cfg.SSEDropAfter,
		maxBodyBytes:  cfg.MaxBodyBytes,
		bodyTimeout:   cfg.BodyTimeout,
		serverName:    cfg.ServerName,
		serverVersion: cfg.ServerVersion,
	}
}

// CloseAll closes every live session, used at shutdown.
func (h *Handler) CloseAll() { h.sessions.closeAll() }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.servePost(w, r)
	case http.MethodGet:
		h.serveGet(w, r)
	case http.MethodDelete:
		h.serveDelete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) serveDelete(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get("Mcp-Session-Id")
	if id == "" {
		http.Error(w, "DELETE requires an Mcp-Session-Id header", http.StatusBadRequest)
		return
	}
	if sess, ok := h.sessions.get(id); ok {
		sess.Close()
	}
	h.sessions.delete(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) serveGet(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get("Mcp-Session-Id")
	sess, ok := h.sessions.get(id)
	if !ok {
		http.Error(w, "unknown or missing Mcp-Session-Id", http.StatusNotFound)
		return
	}
	if sess.State() == StateClosed {
		http.Error(w, "session closed", http.StatusNotFound)
		return
	}

	writeSSEHeaders(w, sess.ID)
	w.WriteHeader(http.StatusOK)

	if lastEventID := r.Header.Get("Last-Event-ID"); lastEventID != "" {
		_, err := h.events.ReplayAfter(lastEventID, func(eventID string, msg []byte) {
			writeSSEEvent(w, eventID, msg)
		})
		if err != nil {
			writeSSEEvent(w, "", []byte(`{"jsonrpc":"2.0","error":{"code":-32600,"message":"unknown Last-Event-ID, reinitialize"}}`))
			return
		}
	}

	h.streamNotifications(w, r, sess)
}

// streamNotifications delivers server-initiated messages queued for sess
// until the client disconnects or, when configured, sseDropAfter elapses.
func (h *Handler) streamNotifications(w http.ResponseWriter, r *http.Request, sess *Session) {
	var dropTimer <-chan time.Time
	if h.sseDropAfter > 0 {
		t := time.NewTimer(h.sseDropAfter)
		defer t.Stop()
		dropTimer = t.C
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-dropTimer:
			return
		case msg := <-sess.outbound:
			writeSSEEvent(w, h.events.StoreEvent(msg.streamID, msg.data), msg.data)
		}
	}
}

// Notify publishes a server-initiated message to sess's attached GET
// connection.
func (h *Handler) Notify(sess *Session, data []byte) {
	sess.enqueue("0:"+sess.ID, data)
}

func (h *Handler) servePost(w http.ResponseWriter, r *http.Request) {
	body, err := bodyparser.Read(w, r, h.maxBodyBytes, h.bodyTimeout)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	reqs, parseErr := ParseMessages(body)
	if parseErr != nil {
		writeTransportError(w, rpcerr.New(http.StatusBadRequest, rpcerr.CodeParseError, "malformed JSON-RPC body"))
		return
	}

	sess, err := h.sessionForPost(r, reqs)
	if err != nil {
		writeTransportError(w, err.(*rpcerr.Error))
		return
	}

	streamID := sess.ID + ":" + strconv.FormatInt(h.nextStream.Add(1), 10)

	writeSSEHeaders(w, sess.ID)
	w.WriteHeader(http.StatusOK)

	for _, req := range reqs {
		h.handleOne(r.Context(), w, sess, streamID, req)
	}
}

// sessionForPost resolves (and, for "initialize", creates) the session a
// POST request is bound to.
func (h *Handler) sessionForPost(r *http.Request, reqs []*Request) (*Session, error) {
	id := r.Header.Get("Mcp-Session-Id")
	if id == "" {
		if len(reqs) == 1 && reqs[0].Method == "initialize" {
			return h.sessions.create(), nil
		}
		return nil, rpcerr.New(http.StatusBadRequest, rpcerr.CodeInvalidRequest, "Mcp-Session-Id header required")
	}
	sess, ok := h.sessions.get(id)
	if !ok {
		return nil, rpcerr.New(http.StatusNotFound, rpcerr.CodeInvalidRequest, "unknown Mcp-Session-Id")
	}
	if sess.State() == StateClosed {
		return nil, rpcerr.New(http.StatusNotFound, rpcerr.CodeInvalidRequest, "session closed")
	}
	return sess, nil
}

func (h *Handler) handleOne(ctx context.Context, w http.ResponseWriter, sess *Session, streamID string, req *Request) {
	if req.Method == "initialize" {
		if sess.State() != StateUninitialized {
			h.writeResponse(w, streamID, NewErrorResponse(req.ID, rpcerr.CodeInvalidRequest, "already initialized"))
			return
		}
		sess.Activate()
		result := map[string]any{
			"protocolVersion": ProtocolVersion,
			"serverInfo":      map[string]string{"name": h.serverName, "version": h.serverVersion},
			"capabilities":    map[string]any{"tools": map[string]any{}},
		}
		h.writeResponse(w, streamID, NewResultResponse(req.ID, result))
		return
	}

	if sess.State() != StateActive {
		h.writeResponse(w, streamID, NewErrorResponse(req.ID, rpcerr.CodeInvalidRequest, "session not initialized"))
		return
	}

	result, rpcErr := h.dispatcher.Dispatch(ctx, req.Method, req.Params)
	if req.IsNotification() {
		return // notifications never receive a response
	}
	if rpcErr != nil {
		h.writeResponse(w, streamID, &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr})
		return
	}
	h.writeResponse(w, streamID, &Response{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func (h *Handler) writeResponse(w http.ResponseWriter, streamID string, resp *Response) {
	data, _ := json.Marshal(resp)
	eventID := h.events.StoreEvent(streamID, data)
	writeSSEEvent(w, eventID, data)
}

func writeBodyError(w http.ResponseWriter, err error) {
	ge, ok := err.(interface {
		HTTPStatus() int
		RPCCode() int
		Error() string
	})
	if !ok {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ge.HTTPStatus())
	data, _ := json.Marshal(NewErrorResponse(nil, ge.RPCCode(), ge.Error()))
	w.Write(data)
}

func writeTransportError(w http.ResponseWriter, err *rpcerr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus())
	data, _ := json.Marshal(NewErrorResponse(nil, err.RPCCode(), err.Error()))
	w.Write(data)
}
