package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
	"github.com/kirillkom/assignment-analyzer/internal/core/ports"
)

const DefaultSourcesTopK = 5

// SourceRetriever answers free-text queries with the nearest catalogued sources.
type SourceRetriever struct {
	embedder ports.Embedder
	index    ports.SourceIndex
}

func NewSourceRetriever(embedder ports.Embedder, index ports.SourceIndex) *SourceRetriever {
	return &SourceRetriever{
		embedder: embedder,
		index:    index,
	}
}

func (uc *SourceRetriever) Search(ctx context.Context, query string, topK int) ([]domain.SourceMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search sources", errors.New("query is required"))
	}
	if topK <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search sources", fmt.Errorf("top_k must be positive, got %d", topK))
	}

	queryVector, err := uc.embedder.Generate(ctx, query, domain.TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := uc.index.Search(ctx, queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("rank sources: %w", err)
	}
	if matches == nil {
		matches = []domain.SourceMatch{}
	}
	return matches, nil
}
