package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
)

// EmbeddingProvider returns a raw (not normalized) vector for text.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string, task domain.EmbeddingTask, dimensions int) ([]float32, error)
}

// Embedder returns unit-length vectors ready for cosine comparison.
type Embedder interface {
	Generate(ctx context.Context, text string, task domain.EmbeddingTask) ([]float32, error)
}

// SourceIndex ranks stored sources by cosine distance to a query vector.
type SourceIndex interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.SourceMatch, error)
}

// SourceRepository persists catalogued sources.
type SourceRepository interface {
	Create(ctx context.Context, source *domain.AcademicSource) error
	ListWithoutEmbedding(ctx context.Context, afterID int64, limit int) ([]domain.AcademicSource, error)
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
}

type StudentRepository interface {
	Create(ctx context.Context, student *domain.Student) error
	GetByEmail(ctx context.Context, email string) (*domain.Student, error)
	GetByStudentID(ctx context.Context, studentID string) (*domain.Student, error)
}

type AssignmentRepository interface {
	CreateWithPendingAnalysis(ctx context.Context, assignment *domain.Assignment) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Assignment, error)
	GetForStudent(ctx context.Context, studentID string, id int64) (*domain.Assignment, error)
	GetAnalysis(ctx context.Context, assignmentID int64) (*domain.AnalysisResult, error)
	SaveAnalysis(ctx context.Context, assignmentID int64, update domain.AnalysisUpdate, analyzedAt time.Time) (*domain.AnalysisResult, error)
}

// ObjectStorage stores uploaded assignment files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// TextExtractor extracts plain text from a stored assignment.
type TextExtractor interface {
	Extract(ctx context.Context, assignment *domain.Assignment) (string, error)
}

// MessageQueue publishes/consumes assignment submission events.
type MessageQueue interface {
	PublishAssignmentSubmitted(ctx context.Context, assignmentID int64) error
	SubscribeAssignmentSubmitted(ctx context.Context, handler func(context.Context, int64) error) error
}

// AnalysisWebhook hands an assignment to the external analysis workflow.
type AnalysisWebhook interface {
	Submit(ctx context.Context, req domain.AnalysisRequest, file io.Reader) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenIssuer interface {
	Issue(subject string) (string, error)
	Verify(token string) (string, error)
}
