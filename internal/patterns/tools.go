// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package patterns registers the gateway's tool catalog against the
// upstream patterns API. These handlers are deliberately thin: validate
// nothing beyond what the registry's schema check already does, call the
// API client, and hand the raw upstream JSON to the content builder.
package patterns

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/effect-patterns/mcp-gateway/internal/apiclient"
	"github.com/effect-patterns/mcp-gateway/internal/tools"
)

// Register adds the gateway's tool catalog to reg.
func Register(reg *tools.Registry) error {
	for _, def := range definitions() {
		if err := reg.Register(def); err != nil {
			return fmt.Errorf("patterns: %w", err)
		}
	}
	return nil
}

func definitions() []tools.Definition {
	return []tools.Definition{
		searchPatternsDef(),
		getPatternDef(),
		listCategoriesDef(),
	}
}

func searchPatternsDef() tools.Definition {
	return tools.Definition{
		Name:        "search_patterns",
		Description: "Search the Effect patterns catalog by keyword or category.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query":    {Type: "string", Description: "free-text search terms"},
				"category": {Type: "string", Description: "optional category filter"},
			},
			Required: []string{"query"},
		},
		Related: []string{"get_pattern", "list_categories"},
		Handler: searchPatterns,
	}
}

func getPatternDef() tools.Definition {
	return tools.Definition{
		Name:        "get_pattern",
		Description: "Fetch a single pattern by id, including its full code example.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"id": {Type: "string"}},
			Required:   []string{"id"},
		},
		Related: []string{"search_patterns"},
		Handler: getPattern,
	}
}

func listCategoriesDef() tools.Definition {
	return tools.Definition{
		Name:        "list_categories",
		Description: "List the pattern categories available in the catalog.",
		InputSchema: &jsonschema.Schema{Type: "object"},
		Related:     []string{"search_patterns"},
		Handler:     listCategories,
	}
}

type patternCard struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Category string `json:"category"`
}

func searchPatterns(ctx context.Context, client *apiclient.Client, args json.RawMessage) (tools.Result, error) {
	var params struct {
		Query    string `json:"query"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return tools.Result{}, err
	}

	endpoint := "/patterns/search?q=" + params.Query
	if params.Category != "" {
		endpoint += "&category=" + params.Category
	}
	raw, err := client.Call(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return tools.Result{}, err
	}

	var results []patternCard
	if err := json.Unmarshal(raw, &results); err != nil {
		return tools.Result{}, fmt.Errorf("decode search_patterns response: %w", err)
	}

	kept, dropped := tools.LimitCards(toCards(results))
	var md strings.Builder
	md.WriteString(tools.Heading(2, fmt.Sprintf("%d pattern(s) found", len(results))))
	for _, c := range kept {
		fmt.Fprintf(&md, "- **%s** — %s\n", c.Title, c.Summary)
	}
	if dropped > 0 {
		fmt.Fprintf(&md, "\n_%d additional result(s) not shown._\n", dropped)
	}

	return tools.Result{Content: []tools.Block{
		tools.TextBlock{Text: md.String()},
		tools.JSONBlock{Data: tools.Metadata{
			Counts:       map[string]int{"total": len(results), "shown": len(kept), "dropped": dropped},
			RelatedTools: []string{"get_pattern", "list_categories"},
		}},
	}}, nil
}

func toCards(results []patternCard) []tools.Card {
	cards := make([]tools.Card, len(results))
	for i, r := range results {
		cards[i] = tools.Card{Title: r.Title, Summary: r.Summary}
	}
	return cards
}

func getPattern(ctx context.Context, client *apiclient.Client, args json.RawMessage) (tools.Result, error) {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return tools.Result{}, err
	}

	raw, err := client.Call(ctx, http.MethodGet, "/patterns/"+params.ID, nil)
	if err != nil {
		return tools.Result{}, err
	}

	var pattern struct {
		Title    string `json:"title"`
		Summary  string `json:"summary"`
		Category string `json:"category"`
		Code     string `json:"code"`
	}
	if err := json.Unmarshal(raw, &pattern); err != nil {
		return tools.Result{}, fmt.Errorf("decode get_pattern response: %w", err)
	}

	var md strings.Builder
	md.WriteString(tools.Heading(2, pattern.Title))
	fmt.Fprintf(&md, "%s\n\n", pattern.Summary)
	md.WriteString(tools.Heading(3, "Example"))
	fmt.Fprintf(&md, "```typescript\n%s\n```\n", tools.TruncateCode(pattern.Code))

	return tools.Result{Content: []tools.Block{
		tools.TextBlock{Text: md.String()},
		tools.JSONBlock{Data: tools.Metadata{
			Counts:       map[string]int{"codeLines": len(strings.Split(pattern.Code, "\n"))},
			RelatedTools: []string{"search_patterns"},
		}},
	}}, nil
}

func listCategories(ctx context.Context, client *apiclient.Client, args json.RawMessage) (tools.Result, error) {
	raw, err := client.Call(ctx, http.MethodGet, "/patterns/categories", nil)
	if err != nil {
		return tools.Result{}, err
	}

	var categories []string
	if err := json.Unmarshal(raw, &categories); err != nil {
		return tools.Result{}, fmt.Errorf("decode list_categories response: %w", err)
	}

	var md strings.Builder
	md.WriteString(tools.Heading(2, "Categories"))
	for _, c := range categories {
		fmt.Fprintf(&md, "- %s\n", c)
	}

	return tools.Result{Content: []tools.Block{
		tools.TextBlock{Text: md.String()},
		tools.JSONBlock{Data: tools.Metadata{Counts: map[string]int{"total": len(categories)}}},
	}}, nil
}
