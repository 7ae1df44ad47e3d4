// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/require"

	"github.com/effect-patterns/mcp-gateway/internal/apiclient"
)

func TestRegisterRejectsMissingSchema(t *testing.T) {
	r := NewRegistry(nil)
	err := r.Register(Definition{Name: "bad"})
	require.Error(t, err)
}

func TestDispatchUnknownMethod(t *testing.T) {
	r := NewRegistry(nil)
	_, rpcErr := r.Dispatch(context.Background(), "nope", nil)
	require.NotNil(t, rpcErr)
}

func TestToolsListReturnsRegisteredTools(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Definition{
		Name:        "echo",
		Description: "echoes the given message",
		InputSchema: &jsonschema.Schema{Type: "object"},
		Handler: func(ctx context.Context, client *apiclient.Client, args json.RawMessage) (Result, error) {
			return Result{}, nil
		},
	}))

	raw, rpcErr := r.Dispatch(context.Background(), "tools/list", nil)
	require.Nil(t, rpcErr)

	var out struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.Tools, 1)
	require.Equal(t, "echo", out.Tools[0].Name)
}

func TestToolsCallUnknownToolRejected(t *testing.T) {
	r := NewRegistry(nil)
	params, _ := json.Marshal(map[string]any{"name": "missing", "arguments": map[string]any{}})
	_, rpcErr := r.Dispatch(context.Background(), "tools/call", params)
	require.NotNil(t, rpcErr)
}

func TestToolsCallInvalidArgumentsReturnIsErrorResult(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Definition{
		Name:        "needs-message",
		InputSchema: &jsonschema.Schema{Type: "object", Required: []string{"message"}},
		Handler: func(ctx context.Context, client *apiclient.Client, args json.RawMessage) (Result, error) {
			return Result{}, nil
		},
	}))

	params, _ := json.Marshal(map[string]any{"name": "needs-message", "arguments": map[string]any{}})
	raw, rpcErr := r.Dispatch(context.Background(), "tools/call", params)
	require.Nil(t, rpcErr)

	var out struct {
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.True(t, out.IsError)
}

func TestToolsCallHandlerSuccessMarshalsContentAndMetadata(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Definition{
		Name:        "greet",
		InputSchema: &jsonschema.Schema{Type: "object"},
		Handler: func(ctx context.Context, client *apiclient.Client, args json.RawMessage) (Result, error) {
			return Result{Content: []Block{TextBlock{Text: "hello"}}}, nil
		},
	}))

	params, _ := json.Marshal(map[string]any{"name": "greet", "arguments": map[string]any{}})
	raw, rpcErr := r.Dispatch(context.Background(), "tools/call", params)
	require.Nil(t, rpcErr)

	var out struct {
		Content []map[string]any `json:"content"`
		IsError bool             `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.False(t, out.IsError)
	require.Len(t, out.Content, 2) // text block + metadata JSON block
	require.Equal(t, "text", out.Content[0]["type"])
	require.Equal(t, "json", out.Content[1]["type"])
}

func TestToolsCallHandlerErrorReturnsIsErrorResultWithRelatedTools(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Definition{
		Name:        "flaky",
		InputSchema: &jsonschema.Schema{Type: "object"},
		Handler: func(ctx context.Context, client *apiclient.Client, args json.RawMessage) (Result, error) {
			return Result{}, errors.New("upstream exploded")
		},
		Related: []string{"other-tool"},
	}))

	params, _ := json.Marshal(map[string]any{"name": "flaky", "arguments": map[string]any{}})
	raw, rpcErr := r.Dispatch(context.Background(), "tools/call", params)
	require.Nil(t, rpcErr)

	var out struct {
		Content []map[string]any `json:"content"`
		IsError bool             `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.True(t, out.IsError)
	require.Len(t, out.Content, 2)

	var meta Metadata
	metaRaw, err := json.Marshal(out.Content[1]["json"])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(metaRaw, &meta))
	require.Equal(t, []string{"other-tool"}, meta.RelatedTools)
}

func TestMalformedCallParamsRejected(t *testing.T) {
	r := NewRegistry(nil)
	_, rpcErr := r.Dispatch(context.Background(), "tools/call", json.RawMessage(`not json`))
	require.NotNil(t, rpcErr)
}
