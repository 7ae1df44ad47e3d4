// Copyright 2026 The MCP Gateway Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package tools implements the tool dispatch envelope and annotated
// content-block builder every registered tool uses to report its result:
// each content block type marshals itself so required wire fields are
// always present, and tool arguments are validated against a resolved
// JSON schema before a handler ever runs.
package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Block is a single piece of content returned by a tool call: either a
// Markdown TextBlock or a JSON metadata block.
type Block interface {
	MarshalJSON() ([]byte, error)
}

// TextBlock is Markdown-formatted human-readable output.
type TextBlock struct {
	Text string
}

func (b TextBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: "text", Text: b.Text})
}

// JSONBlock carries structured metadata alongside the Markdown block:
// execution time, counts, severity breakdown, related tools, next steps.
type JSONBlock struct {
	Data any
}

func (b JSONBlock) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(b.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type string          `json:"type"`
		JSON json.RawMessage `json:"json"`
	}{Type: "json", JSON: raw})
}

// Severity is the closed set of finding severities.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

var severityOrder = map[Severity]int{SeverityHigh: 0, SeverityMedium: 1, SeverityLow: 2}

// Finding is one severity-labeled item in a tool's result.
type Finding struct {
	Severity Severity
	Title    string
	Detail   string
}

// maxCodeLines is the truncation bound for embedded code examples.
const maxCodeLines = 20

// maxCards bounds search-result "cards" to the top 10.
const maxCards = 10

// Heading renders a Markdown heading with a blank line before and after
// it.
func Heading(level int, text string) string {
	return fmt.Sprintf("\n%s %s\n\n", strings.Repeat("#", level), text)
}

// TruncateCode bounds a code example to maxCodeLines, appending a
// "// ..." marker line when truncated.
func TruncateCode(code string) string {
	lines := strings.Split(code, "\n")
	if len(lines) <= maxCodeLines {
		return code
	}
	truncated := append([]string{}, lines[:maxCodeLines]...)
	truncated = append(truncated, "// ...")
	return strings.Join(truncated, "\n")
}

// GroupBySeverity groups findings by severity, keeping input order within
// each group. The returned map is unordered; OrderedSeverities gives the
// stable high -> medium -> low order.
func GroupBySeverity(findings []Finding) map[Severity][]Finding {
	grouped := make(map[Severity][]Finding)
	for _, f := range findings {
		grouped[f.Severity] = append(grouped[f.Severity], f)
	}
	return grouped
}

// OrderedSeverities returns the severities present in grouped, in the
// stable high/medium/low order.
func OrderedSeverities(grouped map[Severity][]Finding) []Severity {
	var out []Severity
	for sev := range grouped {
		out = append(out, sev)
	}
	sort.Slice(out, func(i, j int) bool { return severityOrder[out[i]] < severityOrder[out[j]] })
	return out
}

// Card is a single search-result card.
type Card struct {
	Title   string
	Summary string
}

// LimitCards truncates cards to the top maxCards, reporting how many were
// dropped.
func LimitCards(cards []Card) (kept []Card, dropped int) {
	if len(cards) <= maxCards {
		return cards, 0
	}
	return cards[:maxCards], len(cards) - maxCards
}

// RenderFindings builds the Markdown section for a group of findings, one
// heading per severity present, in stable order.
func RenderFindings(findings []Finding) string {
	grouped := GroupBySeverity(findings)
	var b strings.Builder
	for _, sev := range OrderedSeverities(grouped) {
		b.WriteString(Heading(3, strings.ToUpper(string(sev)[:1])+string(sev)[1:]+" severity"))
		for _, f := range grouped[sev] {
			fmt.Fprintf(&b, "- **%s**: %s\n", f.Title, f.Detail)
		}
	}
	return b.String()
}

// Metadata is the JSON metadata block payload.
type Metadata struct {
	ExecutionTimeMS   int64            `json:"executionTimeMs"`
	Counts            map[string]int   `json:"counts,omitempty"`
	SeverityBreakdown map[Severity]int `json:"severityBreakdown,omitempty"`
	RelatedTools      []string         `json:"relatedTools,omitempty"`
	NextSteps         []string         `json:"nextSteps,omitempty"`
}

// SeverityBreakdown counts findings per severity.
func SeverityBreakdown(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}
