package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
)

func newSourceRepoWithMock(t *testing.T) (*SourceRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewSourceRepository(db), mock, func() { _ = db.Close() }
}

var matchColumns = []string{"id", "title", "authors", "publication_year", "abstract", "source_type", "similarity"}

func TestSourceSearchOrdersByDistanceThenID(t *testing.T) {
	repo, mock, done := newSourceRepoWithMock(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY embedding <=> $1, id")).
		WithArgs(sqlmock.AnyArg(), 2).
		WillReturnRows(sqlmock.NewRows(matchColumns).
			AddRow(int64(1), "A", "Smith", 2020, "abstract a", "journal", 0.99).
			AddRow(int64(3), "C", "", 0, "", "book", 0.71))

	got, err := repo.Search(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("unexpected matches: %+v", got)
	}
	if got[0].Similarity != 0.99 {
		t.Fatalf("expected similarity 0.99, got %v", got[0].Similarity)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSourceSearchEmptyCorpusReturnsEmptySlice(t *testing.T) {
	repo, mock, done := newSourceRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM academic_sources").
		WithArgs(sqlmock.AnyArg(), 5).
		WillReturnRows(sqlmock.NewRows(matchColumns))

	got, err := repo.Search(context.Background(), []float32{0.6, 0.8}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSourceSearchUndefinedTableIsDatastoreUnavailable(t *testing.T) {
	repo, mock, done := newSourceRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM academic_sources").
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "academic_sources" does not exist`})

	_, err := repo.Search(context.Background(), []float32{1}, 5)
	if !domain.IsKind(err, domain.ErrDatastoreUnavailable) {
		t.Fatalf("expected ErrDatastoreUnavailable, got %v", err)
	}
	if !errors.Is(err, errSourcesNotInitialized) {
		t.Fatalf("expected not-initialized cause, got %v", err)
	}
}

func TestSourceSearchConnectionErrorIsDatastoreUnavailable(t *testing.T) {
	repo, mock, done := newSourceRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM academic_sources").WillReturnError(errors.New("connection refused"))

	_, err := repo.Search(context.Background(), []float32{1}, 5)
	if !domain.IsKind(err, domain.ErrDatastoreUnavailable) {
		t.Fatalf("expected ErrDatastoreUnavailable, got %v", err)
	}
}

func TestSourceSearchRejectsNonFiniteVector(t *testing.T) {
	repo, mock, done := newSourceRepoWithMock(t)
	defer done()

	_, err := repo.Search(context.Background(), []float32{float32(math.NaN())}, 5)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query expected: %v", err)
	}
}

func TestSourceCreateReturnsID(t *testing.T) {
	repo, mock, done := newSourceRepoWithMock(t)
	defer done()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO academic_sources").
		WithArgs("Title", "Doe", 2021, "abs", "", "journal", sqlmock.AnyArg(), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	src := &domain.AcademicSource{
		Title: "Title", Authors: "Doe", PublicationYear: 2021, Abstract: "abs",
		SourceType: "journal", Embedding: []float32{1, 0}, CreatedAt: now,
	}
	if err := repo.Create(context.Background(), src); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if src.ID != 42 {
		t.Fatalf("expected id 42, got %d", src.ID)
	}
}

func TestSourceUpdateEmbeddingNotFound(t *testing.T) {
	repo, mock, done := newSourceRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE academic_sources").
		WithArgs(int64(9), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateEmbedding(context.Background(), 9, []float32{0, 1})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListWithoutEmbeddingPagesByID(t *testing.T) {
	repo, mock, done := newSourceRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE embedding IS NULL AND id > $1")).
		WithArgs(int64(10), 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "authors", "publication_year", "abstract", "full_text", "source_type", "created_at"}).
			AddRow(int64(11), "X", "", 0, "", "", "web", now))

	got, err := repo.ListWithoutEmbedding(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("ListWithoutEmbedding() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != 11 {
		t.Fatalf("unexpected sources: %+v", got)
	}
}

func TestSourceSearchLargeTopKIsSingleExactQuery(t *testing.T) {
	repo, mock, done := newSourceRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows(matchColumns)
	for id := int64(1); id <= 50; id++ {
		rows.AddRow(id, fmt.Sprintf("source %d", id), "", 0, "", "journal", 1-float64(id)/100)
	}
	// Any extra statement (SET hnsw.ef_search, a transaction) fails the expectations.
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY embedding <=> $1, id")).
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(rows)

	got, err := repo.Search(context.Background(), []float32{0.6, 0.8}, 50)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 50 {
		t.Fatalf("expected 50 matches, got %d", len(got))
	}
	if got[0].ID != 1 || got[49].ID != 50 {
		t.Fatalf("unexpected ordering: first=%d last=%d", got[0].ID, got[49].ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
