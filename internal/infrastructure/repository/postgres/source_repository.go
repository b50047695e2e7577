package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
)

var errSourcesNotInitialized = errors.New("academic_sources collection is not initialized")

// SourceRepository stores academic sources and ranks them with pgvector.
type SourceRepository struct {
	db *sql.DB
}

func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Search orders by cosine distance with id as tie-breaker so equal distances
// come back in the same order on every call.
func (r *SourceRepository) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.SourceMatch, error) {
	vector, err := bindVector(queryVector)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search sources", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, COALESCE(authors, ''), COALESCE(publication_year, 0), COALESCE(abstract, ''), source_type,
	1 - (embedding <=> $1) AS similarity
FROM academic_sources
WHERE embedding IS NOT NULL
ORDER BY embedding <=> $1, id
LIMIT $2
`, vector, limit)
	if err != nil {
		return nil, datastoreError("search sources", err)
	}
	defer rows.Close()

	out := make([]domain.SourceMatch, 0, limit)
	for rows.Next() {
		var m domain.SourceMatch
		if err := rows.Scan(&m.ID, &m.Title, &m.Authors, &m.PublicationYear, &m.Abstract, &m.SourceType, &m.Similarity); err != nil {
			return nil, datastoreError("scan source match", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, datastoreError("iterate source matches", err)
	}
	return out, nil
}

func (r *SourceRepository) Create(ctx context.Context, source *domain.AcademicSource) error {
	vector, err := bindVector(source.Embedding)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "create source", err)
	}

	row := r.db.QueryRowContext(ctx, `
INSERT INTO academic_sources (title, authors, publication_year, abstract, full_text, source_type, embedding, created_at)
VALUES ($1,$2,$3,$4,NULLIF($5, ''),$6,$7,$8)
RETURNING id
`,
		source.Title, source.Authors, source.PublicationYear, source.Abstract, source.FullText,
		source.SourceType, vector, source.CreatedAt,
	)
	if err := row.Scan(&source.ID); err != nil {
		return datastoreError("insert source", err)
	}
	return nil
}

func (r *SourceRepository) ListWithoutEmbedding(ctx context.Context, afterID int64, limit int) ([]domain.AcademicSource, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, COALESCE(authors, ''), COALESCE(publication_year, 0), COALESCE(abstract, ''),
	COALESCE(full_text, ''), source_type, created_at
FROM academic_sources
WHERE embedding IS NULL AND id > $1
ORDER BY id
LIMIT $2
`, afterID, limit)
	if err != nil {
		return nil, datastoreError("list sources without embedding", err)
	}
	defer rows.Close()

	out := make([]domain.AcademicSource, 0, limit)
	for rows.Next() {
		var s domain.AcademicSource
		if err := rows.Scan(&s.ID, &s.Title, &s.Authors, &s.PublicationYear, &s.Abstract, &s.FullText, &s.SourceType, &s.CreatedAt); err != nil {
			return nil, datastoreError("scan source", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, datastoreError("iterate sources", err)
	}
	return out, nil
}

func (r *SourceRepository) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	vector, err := bindVector(embedding)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "update source embedding", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE academic_sources
SET embedding = $2
WHERE id = $1
`, id, vector)
	if err != nil {
		return datastoreError("update source embedding", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return datastoreError("update source embedding rows affected", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update source embedding", fmt.Errorf("source id=%d", id))
	}
	return nil
}

// bindVector only lets finite numbers reach the vector parameter.
func bindVector(v []float32) (pgvector.Vector, error) {
	if len(v) == 0 {
		return pgvector.Vector{}, errors.New("vector is empty")
	}
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return pgvector.Vector{}, fmt.Errorf("vector component %d is not finite", i)
		}
	}
	return pgvector.NewVector(v), nil
}

func datastoreError(operation string, err error) error {
	if isUndefinedTable(err) {
		return domain.WrapError(domain.ErrDatastoreUnavailable, operation, fmt.Errorf("%w: %w", errSourcesNotInitialized, err))
	}
	return domain.WrapError(domain.ErrDatastoreUnavailable, operation, err)
}
