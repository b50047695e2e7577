package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
)

type searcherFake struct {
	query   string
	topK    int
	matches []domain.SourceMatch
	err     error
}

func (f *searcherFake) Search(_ context.Context, query string, topK int) ([]domain.SourceMatch, error) {
	f.query = query
	f.topK = topK
	return f.matches, f.err
}

func callTool(t *testing.T, f *searcherFake, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = "search_sources"
	req.Params.Arguments = args
	res, err := searchSourcesHandler(f, 5, 20)(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestSearchSourcesReturnsMatches(t *testing.T) {
	f := &searcherFake{matches: []domain.SourceMatch{{ID: 1, Title: "Reinforcement Learning", Similarity: 0.8}}}
	res := callTool(t, f, map[string]any{"query": "policy gradients", "top_k": 3})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if f.query != "policy gradients" || f.topK != 3 {
		t.Fatalf("unexpected search args: %q %d", f.query, f.topK)
	}
	var matches []domain.SourceMatch
	if err := json.Unmarshal([]byte(resultText(t, res)), &matches); err != nil {
		t.Fatalf("decode matches: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != 1 {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}

func TestSearchSourcesDefaultsTopK(t *testing.T) {
	f := &searcherFake{}
	res := callTool(t, f, map[string]any{"query": "ethics"})
	if res.IsError {
		t.Fatalf("unexpected tool error")
	}
	if f.topK != 5 {
		t.Fatalf("expected default top_k 5, got %d", f.topK)
	}
	if got := resultText(t, res); got != "[]" {
		t.Fatalf("expected empty array, got %s", got)
	}
}

func TestSearchSourcesRequiresQuery(t *testing.T) {
	f := &searcherFake{}
	res := callTool(t, f, map[string]any{})
	if !res.IsError {
		t.Fatalf("expected tool error for missing query")
	}
	if f.query != "" {
		t.Fatalf("searcher must not be called")
	}
}

func TestSearchSourcesRejectsTopKAboveMax(t *testing.T) {
	res := callTool(t, &searcherFake{}, map[string]any{"query": "q", "top_k": 21})
	if !res.IsError || !strings.Contains(resultText(t, res), "20") {
		t.Fatalf("expected max top_k error")
	}
}

func TestSearchSourcesRejectsFractionalAndNonPositiveTopK(t *testing.T) {
	for _, topK := range []any{2.9, 0.5, 0, -3, "1.5"} {
		f := &searcherFake{}
		res := callTool(t, f, map[string]any{"query": "q", "top_k": topK})
		if !res.IsError || !strings.Contains(resultText(t, res), "whole number") {
			t.Fatalf("top_k=%v: expected whole number error", topK)
		}
		if f.query != "" {
			t.Fatalf("top_k=%v: searcher must not be called", topK)
		}
	}
}

func TestSearchSourcesAcceptsWholeFloatTopK(t *testing.T) {
	// JSON numbers arrive as float64.
	f := &searcherFake{}
	res := callTool(t, f, map[string]any{"query": "q", "top_k": 7.0})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if f.topK != 7 {
		t.Fatalf("expected top_k 7, got %d", f.topK)
	}
}

func TestSearchSourcesReportsDatastoreErrors(t *testing.T) {
	f := &searcherFake{err: domain.WrapError(domain.ErrDatastoreUnavailable, "search sources", errors.New("connection refused"))}
	res := callTool(t, f, map[string]any{"query": "q"})
	if !res.IsError {
		t.Fatalf("expected tool error")
	}
}
