package ports

import (
	"context"
	"io"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
)

// SourceSearcher is the inbound contract for semantic search over academic sources.
type SourceSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]domain.SourceMatch, error)
}

// SourceCataloger is the inbound contract for adding sources and refreshing their embeddings.
type SourceCataloger interface {
	Add(ctx context.Context, source domain.NewSource) (*domain.AcademicSource, error)
	Reembed(ctx context.Context, batchSize int) (int, error)
}

// AccountService registers students and issues/verifies access tokens.
type AccountService interface {
	Register(ctx context.Context, reg domain.Registration) (*domain.Student, error)
	Login(ctx context.Context, email, password string) (*domain.Token, error)
	Authenticate(ctx context.Context, accessToken string) (*domain.Student, error)
}

// SubmissionService accepts assignment uploads and exposes their analysis.
type SubmissionService interface {
	Submit(ctx context.Context, student *domain.Student, filename, mimeType string, body io.Reader) (*domain.Submission, error)
	GetAnalysis(ctx context.Context, student *domain.Student, assignmentID int64) (*domain.AnalysisResult, error)
	RecordResults(ctx context.Context, assignmentID int64, update domain.AnalysisUpdate) (*domain.AnalysisResult, error)
}

// AssignmentDispatcher is the inbound contract for the asynchronous webhook hand-off.
type AssignmentDispatcher interface {
	DispatchByID(ctx context.Context, assignmentID int64) error
}
