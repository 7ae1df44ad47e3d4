// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/effect-patterns/mcp-gateway/internal/apiclient"
	"github.com/effect-patterns/mcp-gateway/internal/rpcerr"
	"github.com/effect-patterns/mcp-gateway/internal/transport"
)

// Result is the outcome of a tool call: a list of content blocks, and
// whether the call represents an error.
type Result struct {
	Content []Block
	IsError bool
}

// Handler implements one tool's business logic. args has already been
// validated against the tool's input schema.
type Handler func(ctx context.Context, client *apiclient.Client, args json.RawMessage) (Result, error)

// Definition registers a tool's identity and contract.
type Definition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     Handler
	Related     []string // names of related tools, surfaced in Metadata.RelatedTools
}

type registeredTool struct {
	def      Definition
	resolved *jsonschema.Resolved
}

// Registry maps tool names to handlers and implements
// internal/transport.Dispatcher for the "tools/list" and "tools/call"
// JSON-RPC methods, validating each call's arguments against the tool's
// resolved jsonschema-go schema before dispatch.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*registeredTool
	client *apiclient.Client
}

func NewRegistry(client *apiclient.Client) *Registry {
	return &Registry{tools: make(map[string]*registeredTool), client: client}
}

// Register resolves def's input schema and adds it to the registry. Called
// at startup; returns an error if the schema fails to resolve.
func (r *Registry) Register(def Definition) error {
	if def.InputSchema == nil {
		return fmt.Errorf("tool %q: missing input schema", def.Name)
	}
	resolved, err := def.InputSchema.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
	if err != nil {
		return fmt.Errorf("tool %q: resolve input schema: %w", def.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = &registeredTool{def: def, resolved: resolved}
	return nil
}

// Dispatch implements internal/transport.Dispatcher.
func (r *Registry) Dispatch(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, *transport.RPCError) {
	switch method {
	case "tools/list":
		return r.handleList()
	case "tools/call":
		return r.handleCall(ctx, params)
	default:
		return nil, &transport.RPCError{Code: rpcerr.CodeInvalidRequest, Message: "unknown method: " + method}
	}
}

func (r *Registry) handleList() (json.RawMessage, *transport.RPCError) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type toolInfo struct {
		Name        string             `json:"name"`
		Description string             `json:"description"`
		InputSchema *jsonschema.Schema `json:"inputSchema"`
	}
	list := make([]toolInfo, 0, len(r.tools))
	for _, t := range r.tools {
		list = append(list, toolInfo{Name: t.def.Name, Description: t.def.Description, InputSchema: t.def.InputSchema})
	}
	raw, _ := json.Marshal(map[string]any{"tools": list})
	return raw, nil
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (r *Registry) handleCall(ctx context.Context, params json.RawMessage) (json.RawMessage, *transport.RPCError) {
	var p callParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &transport.RPCError{Code: rpcerr.CodeParseError, Message: "malformed tools/call params"}
	}

	r.mu.RLock()
	t, ok := r.tools[p.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, &transport.RPCError{Code: rpcerr.CodeInvalidRequest, Message: "unknown tool: " + p.Name}
	}

	if err := validateArgs(t.resolved, p.Arguments); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments for %s: %v", p.Name, err), t.def.Related), nil
	}

	start := time.Now()
	result, err := t.def.Handler(ctx, r.client, p.Arguments)
	elapsed := time.Since(start)
	slog.Debug("tool call completed", "tool", p.Name, "elapsed_ms", elapsed.Milliseconds(), "failed", err != nil)
	if err != nil {
		return errorResult(err.Error(), t.def.Related), nil
	}

	return marshalResult(result, elapsed)
}

// errorResult builds a user-visible tool-call failure: a human-readable
// Markdown block plus isError:true, and related tools when any are known.
// This is a successful JSON-RPC response whose result carries
// isError:true, not a JSON-RPC error — so callers return it alongside a
// nil *transport.RPCError.
func errorResult(message string, related []string) json.RawMessage {
	var b strings.Builder
	b.WriteString(Heading(3, "Error"))
	fmt.Fprintf(&b, "%s\n\nTry checking the arguments and retrying the call.\n", message)

	content := []Block{TextBlock{Text: b.String()}}
	if len(related) > 0 {
		raw, err := json.Marshal(Metadata{RelatedTools: related})
		if err == nil {
			content = append(content, JSONBlock{Data: json.RawMessage(raw)})
		}
	}

	raw, err := json.Marshal(map[string]any{"content": content, "isError": true})
	if err != nil {
		// marshaling a hand-built error result should never fail; fall
		// back to a minimal literal rather than surface a second error.
		raw, _ = json.Marshal(map[string]any{"content": []any{}, "isError": true})
	}
	return raw
}

func validateArgs(resolved *jsonschema.Resolved, args json.RawMessage) error {
	var v any
	if len(args) == 0 {
		v = map[string]any{}
	} else if err := json.Unmarshal(args, &v); err != nil {
		return err
	}
	return resolved.Validate(v)
}

func marshalResult(res Result, elapsed time.Duration) (json.RawMessage, *transport.RPCError) {
	blocks := make([]json.RawMessage, 0, len(res.Content))
	for _, b := range res.Content {
		raw, err := b.MarshalJSON()
		if err != nil {
			return nil, &transport.RPCError{Code: rpcerr.CodeInternal, Message: "failed to marshal content block"}
		}
		blocks = append(blocks, raw)
	}
	meta, err := json.Marshal(Metadata{ExecutionTimeMS: elapsed.Milliseconds()})
	if err == nil {
		metaBlock, blockErr := (JSONBlock{Data: json.RawMessage(meta)}).MarshalJSON()
		if blockErr == nil {
			blocks = append(blocks, metaBlock)
		}
	}

	out := map[string]any{"content": blocks, "isError": res.IsError}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, &transport.RPCError{Code: rpcerr.CodeInternal, Message: "failed to marshal tool result"}
	}
	return raw, nil
}
