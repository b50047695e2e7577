package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
)

type AssignmentRepository struct {
	db *sql.DB
}

func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// CreateWithPendingAnalysis inserts the assignment and its empty analysis row atomically.
func (r *AssignmentRepository) CreateWithPendingAnalysis(ctx context.Context, a *domain.Assignment) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin assignment tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	err = tx.QueryRowContext(ctx, `
INSERT INTO assignments (student_id, filename, mime_type, storage_path, original_text, topic, academic_level, word_count, uploaded_at)
VALUES ($1,$2,$3,$4,NULLIF($5, ''),NULLIF($6, ''),NULLIF($7, ''),$8,$9)
RETURNING id
`,
		a.StudentID, a.Filename, a.MimeType, a.StoragePath, a.OriginalText, a.Topic, a.AcademicLevel, a.WordCount, a.UploadedAt,
	).Scan(&a.ID)
	if err != nil {
		return 0, fmt.Errorf("insert assignment: %w", err)
	}

	var analysisID int64
	if err := tx.QueryRowContext(ctx, `
INSERT INTO analysis_results (assignment_id)
VALUES ($1)
RETURNING id
`, a.ID).Scan(&analysisID); err != nil {
		return 0, fmt.Errorf("insert pending analysis: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit assignment tx: %w", err)
	}
	return analysisID, nil
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*domain.Assignment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, student_id, filename, mime_type, storage_path, COALESCE(original_text, ''), COALESCE(topic, ''),
	COALESCE(academic_level, ''), word_count, uploaded_at
FROM assignments
WHERE id = $1
`, id)
	return scanAssignment(row, id)
}

func (r *AssignmentRepository) GetForStudent(ctx context.Context, studentID string, id int64) (*domain.Assignment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, student_id, filename, mime_type, storage_path, COALESCE(original_text, ''), COALESCE(topic, ''),
	COALESCE(academic_level, ''), word_count, uploaded_at
FROM assignments
WHERE id = $1 AND student_id = $2
`, id, studentID)
	return scanAssignment(row, id)
}

func (r *AssignmentRepository) GetAnalysis(ctx context.Context, assignmentID int64) (*domain.AnalysisResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, assignment_id, suggested_sources, plagiarism_score, flagged_sections, research_suggestions,
	citation_recommendations, confidence_score, analyzed_at
FROM analysis_results
WHERE assignment_id = $1
`, assignmentID)
	return scanAnalysis(row, assignmentID)
}

func (r *AssignmentRepository) SaveAnalysis(
	ctx context.Context,
	assignmentID int64,
	update domain.AnalysisUpdate,
	analyzedAt time.Time,
) (*domain.AnalysisResult, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE analysis_results
SET suggested_sources = $2, plagiarism_score = $3, flagged_sections = $4, research_suggestions = $5,
	citation_recommendations = $6, confidence_score = $7, analyzed_at = $8
WHERE assignment_id = $1
RETURNING id, assignment_id, suggested_sources, plagiarism_score, flagged_sections, research_suggestions,
	citation_recommendations, confidence_score, analyzed_at
`,
		assignmentID, nullableJSON(update.SuggestedSources), update.PlagiarismScore, nullableJSON(update.FlaggedSections),
		update.ResearchSuggestions, update.CitationRecommendations, update.ConfidenceScore, analyzedAt,
	)
	return scanAnalysis(row, assignmentID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssignment(row rowScanner, id int64) (*domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(
		&a.ID, &a.StudentID, &a.Filename, &a.MimeType, &a.StoragePath, &a.OriginalText,
		&a.Topic, &a.AcademicLevel, &a.WordCount, &a.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get assignment", fmt.Errorf("assignment not found or does not belong to user: id=%d", id))
		}
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	return &a, nil
}

func scanAnalysis(row rowScanner, assignmentID int64) (*domain.AnalysisResult, error) {
	var res domain.AnalysisResult
	var suggested, flagged []byte
	err := row.Scan(
		&res.ID, &res.AssignmentID, &suggested, &res.PlagiarismScore, &flagged, &res.ResearchSuggestions,
		&res.CitationRecommendations, &res.ConfidenceScore, &res.AnalyzedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get analysis", fmt.Errorf("analysis results not yet available: assignment_id=%d", assignmentID))
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}
	if len(suggested) > 0 {
		res.SuggestedSources = json.RawMessage(suggested)
	}
	if len(flagged) > 0 {
		res.FlaggedSections = json.RawMessage(flagged)
	}
	return &res, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
