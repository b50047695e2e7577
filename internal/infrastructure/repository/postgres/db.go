package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// schemaLockKey serializes bootstrap DDL across api/worker/catalog startups.
const schemaLockKey int64 = 2026101901

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables and the pgvector extension. dimensions is the
// width of academic_sources.embedding and must match the embedding configuration.
// academic_sources.embedding has no ANN index: source search is an exact scan,
// so LIMIT always yields min(topK, rows with an embedding).
func EnsureSchema(ctx context.Context, db *sql.DB, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", dimensions)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	query := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS students (
	id BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	full_name TEXT NOT NULL DEFAULT '',
	student_id TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
	id BIGSERIAL PRIMARY KEY,
	student_id TEXT NOT NULL REFERENCES students(student_id),
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL DEFAULT '',
	storage_path TEXT NOT NULL,
	original_text TEXT,
	topic TEXT,
	academic_level TEXT,
	word_count INTEGER NOT NULL DEFAULT 0,
	uploaded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assignments_student_id ON assignments(student_id);

CREATE TABLE IF NOT EXISTS analysis_results (
	id BIGSERIAL PRIMARY KEY,
	assignment_id BIGINT NOT NULL UNIQUE REFERENCES assignments(id),
	suggested_sources JSONB,
	plagiarism_score DOUBLE PRECISION,
	flagged_sections JSONB,
	research_suggestions TEXT,
	citation_recommendations TEXT,
	confidence_score DOUBLE PRECISION,
	analyzed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS academic_sources (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	authors TEXT,
	publication_year INTEGER,
	abstract TEXT,
	full_text TEXT,
	source_type TEXT NOT NULL,
	embedding vector(%d),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`, dimensions)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
