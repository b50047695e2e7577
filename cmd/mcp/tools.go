package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
	"github.com/kirillkom/assignment-analyzer/internal/core/ports"
	"github.com/kirillkom/assignment-analyzer/internal/core/usecase"
)

const serverVersion = "0.1.0"

func newServer(searcher ports.SourceSearcher, defaultTopK, maxTopK int) *server.MCPServer {
	srv := server.NewMCPServer("assignment-analyzer", serverVersion, server.WithToolCapabilities(false))
	srv.AddTool(searchSourcesTool(), searchSourcesHandler(searcher, defaultTopK, maxTopK))
	return srv
}

func searchSourcesTool() mcp.Tool {
	return mcp.NewTool("search_sources",
		mcp.WithDescription("Find catalogued academic sources semantically similar to a query. Returns id, title, authors, publication_year, abstract, source_type and similarity."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text description of the topic"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of sources to return"),
		),
	)
}

func searchSourcesHandler(searcher ports.SourceSearcher, defaultTopK, maxTopK int) server.ToolHandlerFunc {
	if defaultTopK <= 0 {
		defaultTopK = usecase.DefaultSourcesTopK
	}
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rawTopK := req.GetFloat("top_k", float64(defaultTopK))
		if rawTopK < 1 || rawTopK != math.Trunc(rawTopK) {
			return mcp.NewToolResultError(fmt.Sprintf("top_k must be a positive whole number, got %v", rawTopK)), nil
		}
		if maxTopK > 0 && rawTopK > float64(maxTopK) {
			return mcp.NewToolResultError(fmt.Sprintf("top_k must not exceed %d", maxTopK)), nil
		}
		topK := int(rawTopK)

		matches, err := searcher.Search(ctx, query, topK)
		if err != nil {
			if domain.IsKind(err, domain.ErrInvalidInput) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultErrorFromErr("search sources", err), nil
		}
		if matches == nil {
			matches = []domain.SourceMatch{}
		}
		payload, err := json.Marshal(matches)
		if err != nil {
			return nil, fmt.Errorf("marshal matches: %w", err)
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}
