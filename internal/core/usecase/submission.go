package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
	"github.com/kirillkom/assignment-analyzer/internal/core/ports"
)

type SubmissionUseCase struct {
	assignments ports.AssignmentRepository
	storage     ports.ObjectStorage
	extractor   ports.TextExtractor
	queue       ports.MessageQueue
}

func NewSubmissionUseCase(
	assignments ports.AssignmentRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	queue ports.MessageQueue,
) *SubmissionUseCase {
	return &SubmissionUseCase{
		assignments: assignments,
		storage:     storage,
		extractor:   extractor,
		queue:       queue,
	}
}

func (uc *SubmissionUseCase) Submit(
	ctx context.Context,
	student *domain.Student,
	filename, mimeType string,
	body io.Reader,
) (*domain.Submission, error) {
	if student == nil {
		return nil, domain.WrapError(domain.ErrUnauthorized, "submit assignment", errors.New("student is required"))
	}
	if strings.TrimSpace(filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit assignment", errors.New("filename is required"))
	}

	storageKey := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))
	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	assignment := &domain.Assignment{
		StudentID:   student.StudentID,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		UploadedAt:  time.Now().UTC(),
	}
	uc.attachText(ctx, assignment)

	analysisID, err := uc.assignments.CreateWithPendingAnalysis(ctx, assignment)
	if err != nil {
		if delErr := uc.storage.Delete(ctx, storageKey); delErr != nil {
			slog.Warn("orphaned_upload_cleanup_failed",
				"storage_key", storageKey,
				"error", delErr.Error(),
			)
		}
		return nil, fmt.Errorf("create assignment: %w", err)
	}

	if err := uc.queue.PublishAssignmentSubmitted(ctx, assignment.ID); err != nil {
		return nil, fmt.Errorf("publish submission event: %w", err)
	}

	return &domain.Submission{
		AssignmentID: assignment.ID,
		AnalysisID:   analysisID,
		Message:      "Analysis triggered. Results will be available shortly.",
	}, nil
}

// attachText fills OriginalText and WordCount. Unsupported formats are not a
// reason to reject a submission; the analysis workflow receives the raw file anyway.
func (uc *SubmissionUseCase) attachText(ctx context.Context, assignment *domain.Assignment) {
	if uc.extractor == nil {
		return
	}
	text, err := uc.extractor.Extract(ctx, assignment)
	if err != nil {
		slog.Warn("assignment_text_extraction_failed",
			"filename", assignment.Filename,
			"mime_type", assignment.MimeType,
			"error", err,
		)
		return
	}
	assignment.OriginalText = text
	assignment.WordCount = len(strings.Fields(text))
}

func (uc *SubmissionUseCase) GetAnalysis(ctx context.Context, student *domain.Student, assignmentID int64) (*domain.AnalysisResult, error) {
	if student == nil {
		return nil, domain.WrapError(domain.ErrUnauthorized, "get analysis", errors.New("student is required"))
	}
	if _, err := uc.assignments.GetForStudent(ctx, student.StudentID, assignmentID); err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	result, err := uc.assignments.GetAnalysis(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("load analysis: %w", err)
	}
	return result, nil
}

func (uc *SubmissionUseCase) RecordResults(ctx context.Context, assignmentID int64, update domain.AnalysisUpdate) (*domain.AnalysisResult, error) {
	if assignmentID <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "record analysis", errors.New("assignment id must be positive"))
	}
	if err := validateAnalysisUpdate(update); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "record analysis", err)
	}

	result, err := uc.assignments.SaveAnalysis(ctx, assignmentID, update, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	return result, nil
}

func validateAnalysisUpdate(update domain.AnalysisUpdate) error {
	for name, score := range map[string]*float64{
		"plagiarism_score": update.PlagiarismScore,
		"confidence_score": update.ConfidenceScore,
	} {
		if score == nil {
			continue
		}
		if math.IsNaN(*score) || math.IsInf(*score, 0) || *score < 0 {
			return fmt.Errorf("%s must be a non-negative number", name)
		}
	}
	for name, raw := range map[string]json.RawMessage{
		"suggested_sources": update.SuggestedSources,
		"flagged_sections":  update.FlaggedSections,
	} {
		if len(raw) > 0 && !json.Valid(raw) {
			return fmt.Errorf("%s must be valid json", name)
		}
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "assignment.bin"
	}
	return base
}
