package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/assignment-analyzer/internal/config"
	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
)

const validToken = "valid-token"

type accountsFake struct {
	registered []domain.Registration
	registerErr error
}

func (f *accountsFake) Register(_ context.Context, reg domain.Registration) (*domain.Student, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.registered = append(f.registered, reg)
	return &domain.Student{ID: 1, Email: reg.Email, StudentID: reg.StudentID}, nil
}

func (f *accountsFake) Login(_ context.Context, email, password string) (*domain.Token, error) {
	if email == "ann@uni.edu" && password == "correct horse" {
		return &domain.Token{AccessToken: validToken, TokenType: "bearer"}, nil
	}
	return nil, domain.WrapError(domain.ErrUnauthorized, "login", errors.New("incorrect email or password"))
}

func (f *accountsFake) Authenticate(_ context.Context, token string) (*domain.Student, error) {
	if token != validToken {
		return nil, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("invalid token"))
	}
	return &domain.Student{ID: 1, Email: "ann@uni.edu", StudentID: "S-1"}, nil
}

type submissionsFake struct {
	submittedName string
	submittedBody string
	analysis      *domain.AnalysisResult
	err           error
	recorded      *domain.AnalysisUpdate
}

func (f *submissionsFake) Submit(_ context.Context, student *domain.Student, filename, _ string, body io.Reader) (*domain.Submission, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.submittedName = filename
	f.submittedBody = string(raw)
	return &domain.Submission{AssignmentID: 7, AnalysisID: 70, Message: "Analysis triggered. Results will be available shortly."}, nil
}

func (f *submissionsFake) GetAnalysis(_ context.Context, _ *domain.Student, assignmentID int64) (*domain.AnalysisResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.analysis == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "get analysis", errors.New("assignment not found or does not belong to user"))
	}
	return f.analysis, nil
}

func (f *submissionsFake) RecordResults(_ context.Context, assignmentID int64, update domain.AnalysisUpdate) (*domain.AnalysisResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.recorded = &update
	now := time.Now().UTC()
	return &domain.AnalysisResult{ID: 70, AssignmentID: assignmentID, PlagiarismScore: update.PlagiarismScore, AnalyzedAt: &now}, nil
}

type sourcesFake struct {
	calls   int
	query   string
	topK    int
	matches []domain.SourceMatch
	err     error
}

func (f *sourcesFake) Search(_ context.Context, query string, topK int) ([]domain.SourceMatch, error) {
	f.calls++
	f.query = query
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.matches) {
		return f.matches[:topK], nil
	}
	return f.matches, nil
}

func testConfig() config.Config {
	return config.Config{
		SourcesTopK:           5,
		SourcesMaxTopK:        50,
		AnalysisCallbackToken: "callback-secret",
		UploadMaxBytes:        1 << 20,
	}
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(cfg, &accountsFake{}, &submissionsFake{}, &sourcesFake{}).Handler()
}

func authorized(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+validToken)
	return req
}
