// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package apiclient

import (
	"strings"

	"github.com/effect-patterns/mcp-gateway/internal/rpcerr"
)

// ErrorType is the closed classification of low-level network failures.
// It drives retry policy in callers, never here.
type ErrorType string

const (
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeConnectionRefused ErrorType = "connection_refused"
	ErrorTypeDNSError          ErrorType = "dns_error"
	ErrorTypeConnectionReset   ErrorType = "connection_reset"
	ErrorTypeTLSError          ErrorType = "tls_error"
	ErrorTypeFetchError        ErrorType = "fetch_error"
	ErrorTypeNetwork           ErrorType = "network"
)

// Details carries the classification metadata attached to a failed call.
type Details struct {
	ErrorName string
	ErrorType ErrorType
	Retryable bool
	Cause     string
}

// TransientNetworkError is retryable: timeouts, refused/reset connections,
// DNS failures, and generic fetch errors. Callers (tool handlers) decide
// whether to retry once or surface it.
type TransientNetworkError struct {
	Status  int
	Message string
	Details Details
}

func (e *TransientNetworkError) Error() string   { return e.Message }
func (e *TransientNetworkError) HTTPStatus() int { return e.Status }
func (e *TransientNetworkError) RPCCode() int    { return rpcerr.CodeInternal }

// FatalError is non-retryable: TLS errors, non-2xx upstream responses
// (other than classified-transient ones), and internal failures. Surfaced
// verbatim to the caller.
type FatalError struct {
	Status  int
	Message string
	Details Details
}

func (e *FatalError) Error() string   { return e.Message }
func (e *FatalError) HTTPStatus() int { return e.Status }
func (e *FatalError) RPCCode() int    { return rpcerr.CodeInternal }

var (
	_ rpcerr.GatewayError = (*TransientNetworkError)(nil)
	_ rpcerr.GatewayError = (*FatalError)(nil)
)

// classify maps a low-level transport error to a Details value using
// cause-substring rules. ctxCanceled is true when the request's own
// context was canceled or deadline-exceeded (distinguished from dial-level
// errors because cancellation always means "timeout" here).
func classify(err error, ctxCanceled bool) Details {
	if ctxCanceled {
		return Details{ErrorName: "AbortError", ErrorType: ErrorTypeTimeout, Retryable: true, Cause: err.Error()}
	}
	msg := err.Error()
	switch {
	case containsAny(msg, "ECONNREFUSED", "connection refused"):
		return Details{ErrorName: "ConnectionRefused", ErrorType: ErrorTypeConnectionRefused, Retryable: true, Cause: msg}
	case containsAny(msg, "ENOTFOUND", "no such host"):
		return Details{ErrorName: "DNSError", ErrorType: ErrorTypeDNSError, Retryable: true, Cause: msg}
	case containsAny(msg, "ETIMEDOUT", "timeout", "Timeout", "deadline exceeded"):
		return Details{ErrorName: "TimeoutError", ErrorType: ErrorTypeTimeout, Retryable: true, Cause: msg}
	case containsAny(msg, "ECONNRESET", "connection reset"):
		return Details{ErrorName: "ConnectionReset", ErrorType: ErrorTypeConnectionReset, Retryable: true, Cause: msg}
	case containsAny(msg, "CERT", "SSL", "TLS", "certificate", "x509"):
		return Details{ErrorName: "TLSError", ErrorType: ErrorTypeTLSError, Retryable: false, Cause: msg}
	default:
		return Details{ErrorName: "FetchError", ErrorType: ErrorTypeFetchError, Retryable: true, Cause: msg}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func errAsNetworkFailure(err error, ctxCanceled bool) error {
	d := classify(err, ctxCanceled)
	status := 502
	if d.ErrorType == ErrorTypeTimeout {
		status = 408
	}
	if !d.Retryable {
		return &FatalError{Status: status, Message: err.Error(), Details: d}
	}
	return &TransientNetworkError{Status: status, Message: err.Error(), Details: d}
}
