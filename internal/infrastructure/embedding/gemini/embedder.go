package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"

	"google.golang.org/genai"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
	"github.com/kirillkom/assignment-analyzer/internal/infrastructure/resilience"
)

const DefaultModel = "gemini-embedding-001"

// ContentEmbedder is the part of genai.Models the embedder depends on.
type ContentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type Embedder struct {
	models   ContentEmbedder
	model    string
	executor *resilience.Executor
}

// NewClient builds an embedder backed by the Gemini API.
func NewClient(ctx context.Context, apiKey, model string, executor *resilience.Executor) (*Embedder, error) {
	if apiKey == "" {
		return nil, errors.New("GOOGLE_API_KEY is required when EMBEDDING_PROVIDER=gemini")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return New(client.Models, model, executor), nil
}

func New(models ContentEmbedder, model string, executor *resilience.Executor) *Embedder {
	if model == "" {
		model = DefaultModel
	}
	return &Embedder{models: models, model: model, executor: executor}
}

// Embed implements ports.EmbeddingProvider.
func (e *Embedder) Embed(ctx context.Context, text string, task domain.EmbeddingTask, dimensions int) ([]float32, error) {
	config := &genai.EmbedContentConfig{TaskType: taskType(task)}
	if dimensions > 0 {
		if dimensions > math.MaxInt32 {
			return nil, domain.WrapError(domain.ErrInvalidInput, "gemini embed", fmt.Errorf("dimensions %d out of range", dimensions))
		}
		dims := int32(dimensions)
		config.OutputDimensionality = &dims
	}

	call := func(ctx context.Context) (*genai.EmbedContentResponse, error) {
		return e.models.EmbedContent(ctx, e.model, genai.Text(text), config)
	}

	var (
		resp *genai.EmbedContentResponse
		err  error
	)
	if e.executor != nil {
		resp, err = resilience.Call(ctx, e.executor, "gemini.embed", call, resilience.ClassifyHTTPError)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingProvider, "gemini embed", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, domain.WrapError(domain.ErrEmbeddingProvider, "gemini embed", errors.New("empty embedding result"))
	}
	return resp.Embeddings[0].Values, nil
}

func taskType(task domain.EmbeddingTask) string {
	if task == domain.TaskQuery {
		return "RETRIEVAL_QUERY"
	}
	return "RETRIEVAL_DOCUMENT"
}
