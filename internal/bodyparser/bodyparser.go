// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package bodyparser implements a streaming, size- and time-bounded JSON
// request body reader: http.MaxBytesReader for the size cap, a read
// deadline for the time cap, and a closed BodyError sum type describing
// exactly how a read failed.
package bodyparser

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/effect-patterns/mcp-gateway/internal/rpcerr"
)

// Code is the closed set of body-parse failure kinds.
type Code int

const (
	CodePayloadTooLarge Code = iota
	CodeMalformedJSON
	CodeRequestTimeout
	CodeRequestAborted
)

// BodyError is a terminal validation failure: its HTTP status and
// JSON-RPC code are derived from Code, and it carries no user data.
type BodyError struct {
	Code    Code
	Message string
}

func (e *BodyError) Error() string { return e.Message }

// HTTPStatus and RPCCode implement rpcerr.GatewayError, pairing each Code
// with its HTTP status and JSON-RPC code: 413/-32013, 400/-32700,
// 408/-32008, 400/-32600.
func (e *BodyError) HTTPStatus() int {
	switch e.Code {
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeMalformedJSON:
		return http.StatusBadRequest
	case CodeRequestTimeout:
		return http.StatusRequestTimeout
	case CodeRequestAborted:
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

func (e *BodyError) RPCCode() int {
	switch e.Code {
	case CodePayloadTooLarge:
		return rpcerr.CodePayloadTooLarge
	case CodeMalformedJSON:
		return rpcerr.CodeParseError
	case CodeRequestTimeout:
		return rpcerr.CodeBodyTimeout
	case CodeRequestAborted:
		return rpcerr.CodeInvalidRequest
	default:
		return rpcerr.CodeInvalidRequest
	}
}

var _ rpcerr.GatewayError = (*BodyError)(nil)

// DefaultMaxBytes is the ceiling applied when no explicit limit is
// configured.
const DefaultMaxBytes int64 = 1_000_000

// Read reads r.Body into a json.RawMessage with declared Content-Length
// and cumulative bytes capped at maxBytes, and the overall read bounded by
// timeout. An empty or whitespace-only body returns (nil, nil), valid for
// SSE-GET semantics. w is passed through to http.MaxBytesReader so it can
// request connection closure on overflow.
func Read(w http.ResponseWriter, r *http.Request, maxBytes int64, timeout time.Duration) (json.RawMessage, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if r.ContentLength > maxBytes {
		drainAndClose(r)
		return nil, &BodyError{Code: CodePayloadTooLarge, Message: "request body too large"}
	}

	ctx := r.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	limited := http.MaxBytesReader(w, r.Body, maxBytes)
	raw, err := readWithDeadline(ctx, limited)
	if err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			drainAndClose(r)
			return nil, &BodyError{Code: CodePayloadTooLarge, Message: "request body too large"}
		case errors.Is(err, context.DeadlineExceeded):
			return nil, &BodyError{Code: CodeRequestTimeout, Message: "request body read timed out"}
		case isClientAbort(err):
			return nil, &BodyError{Code: CodeRequestAborted, Message: "client aborted request"}
		default:
			return nil, &BodyError{Code: CodeRequestAborted, Message: err.Error()}
		}
	}

	if isBlank(raw) {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, &BodyError{Code: CodeMalformedJSON, Message: "malformed JSON body"}
	}
	return json.RawMessage(raw), nil
}

// readWithDeadline reads all of r, returning early if ctx is done first. The
// read runs in a separate goroutine that keeps running after an early
// return; there is no way to forcibly interrupt io.ReadAll once started
// short of closing the underlying connection, which the HTTP server does
// for us on client disconnect.
func readWithDeadline(ctx context.Context, r io.Reader) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(r)
		done <- result{data, err}
	}()

	select {
	case res := <-done:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func isBlank(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return false
		}
	}
	return true
}

func isClientAbort(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

func drainAndClose(r *http.Request) {
	io.Copy(io.Discard, io.LimitReader(r.Body, 512))
	r.Body.Close()
}
