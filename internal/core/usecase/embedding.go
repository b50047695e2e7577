package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
	"github.com/kirillkom/assignment-analyzer/internal/core/ports"
)

var errZeroNorm = errors.New("embedding has zero norm")

// EmbeddingGenerator turns text into a unit-length vector of a fixed dimensionality.
type EmbeddingGenerator struct {
	provider   ports.EmbeddingProvider
	dimensions int
}

func NewEmbeddingGenerator(provider ports.EmbeddingProvider, dimensions int) *EmbeddingGenerator {
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDimensions
	}
	return &EmbeddingGenerator{
		provider:   provider,
		dimensions: dimensions,
	}
}

func (g *EmbeddingGenerator) Dimensions() int {
	return g.dimensions
}

func (g *EmbeddingGenerator) Generate(ctx context.Context, text string, task domain.EmbeddingTask) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate embedding", errors.New("text is empty"))
	}
	switch task {
	case domain.TaskDocument, domain.TaskQuery:
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate embedding", fmt.Errorf("unknown task type %q", task))
	}

	raw, err := g.provider.Embed(ctx, text, task, g.dimensions)
	if err != nil {
		if domain.IsKind(err, domain.ErrEmbeddingProvider) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrEmbeddingProvider, "generate embedding", err)
	}
	if len(raw) != g.dimensions {
		return nil, domain.WrapError(
			domain.ErrEmbeddingProvider,
			"generate embedding",
			fmt.Errorf("provider returned %d dimensions, want %d", len(raw), g.dimensions),
		)
	}

	vector, err := Normalize(raw)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingProvider, "normalize embedding", err)
	}
	return vector, nil
}

// Normalize scales v to unit L2 norm. The sum is accumulated in float64 so
// 1536-wide float32 vectors keep their norm within 1e-6 of one.
func Normalize(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, errors.New("embedding is empty")
	}
	var sum float64
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("embedding component %d is not finite", i)
		}
		sum += f * f
	}
	if sum == 0 {
		return nil, errZeroNorm
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}
