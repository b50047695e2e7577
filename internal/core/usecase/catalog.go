package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
	"github.com/kirillkom/assignment-analyzer/internal/core/ports"
)

// fullTextWindow bounds how much of a source's full text goes into its embedding input.
const fullTextWindow = 6000

type CatalogUseCase struct {
	repo     ports.SourceRepository
	embedder ports.Embedder
}

func NewCatalogUseCase(repo ports.SourceRepository, embedder ports.Embedder) *CatalogUseCase {
	return &CatalogUseCase{
		repo:     repo,
		embedder: embedder,
	}
}

func (uc *CatalogUseCase) Add(ctx context.Context, in domain.NewSource) (*domain.AcademicSource, error) {
	source := &domain.AcademicSource{
		Title:           strings.TrimSpace(in.Title),
		Authors:         strings.TrimSpace(in.Authors),
		PublicationYear: in.PublicationYear,
		Abstract:        strings.TrimSpace(in.Abstract),
		FullText:        strings.TrimSpace(in.FullText),
		SourceType:      strings.ToLower(strings.TrimSpace(in.SourceType)),
		CreatedAt:       time.Now().UTC(),
	}
	if source.Title == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "add source", errors.New("title is required"))
	}
	if source.SourceType == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "add source", errors.New("source_type is required"))
	}

	vector, err := uc.embedder.Generate(ctx, DocumentText(*source), domain.TaskDocument)
	if err != nil {
		return nil, fmt.Errorf("embed source: %w", err)
	}
	source.Embedding = vector

	if err := uc.repo.Create(ctx, source); err != nil {
		return nil, fmt.Errorf("store source: %w", err)
	}
	return source, nil
}

// Reembed regenerates embeddings for sources that have none, batchSize rows at a time.
// It stops at the first failure and reports how many sources were updated before it.
func (uc *CatalogUseCase) Reembed(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 50
	}

	updated := 0
	var afterID int64
	for {
		sources, err := uc.repo.ListWithoutEmbedding(ctx, afterID, batchSize)
		if err != nil {
			return updated, fmt.Errorf("list sources without embedding: %w", err)
		}
		if len(sources) == 0 {
			return updated, nil
		}

		for _, source := range sources {
			vector, err := uc.embedder.Generate(ctx, DocumentText(source), domain.TaskDocument)
			if err != nil {
				return updated, fmt.Errorf("embed source id=%d: %w", source.ID, err)
			}
			if err := uc.repo.UpdateEmbedding(ctx, source.ID, vector); err != nil {
				return updated, fmt.Errorf("update embedding id=%d: %w", source.ID, err)
			}
			updated++
			afterID = source.ID
		}
		slog.Info("sources_reembedded", "batch", len(sources), "total", updated, "last_id", afterID)

		if len(sources) < batchSize {
			return updated, nil
		}
	}
}

// DocumentText builds the text a source is embedded from.
func DocumentText(source domain.AcademicSource) string {
	parts := make([]string, 0, 5)
	if source.Title != "" {
		parts = append(parts, source.Title)
	}
	if source.Authors != "" {
		parts = append(parts, "Authors: "+source.Authors)
	}
	if source.PublicationYear > 0 {
		parts = append(parts, "Year: "+strconv.Itoa(source.PublicationYear))
	}
	if source.Abstract != "" {
		parts = append(parts, source.Abstract)
	}
	if source.FullText != "" {
		parts = append(parts, leadingRunes(source.FullText, fullTextWindow))
	}
	return strings.Join(parts, "\n\n")
}

func leadingRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit]))
}
