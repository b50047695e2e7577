package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
)

type StudentRepository struct {
	db *sql.DB
}

func NewStudentRepository(db *sql.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) Create(ctx context.Context, student *domain.Student) error {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO students (email, password_hash, full_name, student_id, created_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING id
`, student.Email, student.PasswordHash, student.FullName, student.StudentID, student.CreatedAt)
	if err := row.Scan(&student.ID); err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrConflict, "create student", err)
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*domain.Student, error) {
	return r.getOne(ctx, "email", `
SELECT id, email, password_hash, full_name, student_id, created_at
FROM students
WHERE email = $1
`, email)
}

func (r *StudentRepository) GetByStudentID(ctx context.Context, studentID string) (*domain.Student, error) {
	return r.getOne(ctx, "student_id", `
SELECT id, email, password_hash, full_name, student_id, created_at
FROM students
WHERE student_id = $1
`, studentID)
}

func (r *StudentRepository) getOne(ctx context.Context, key, query, value string) (*domain.Student, error) {
	var s domain.Student
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&s.ID, &s.Email, &s.PasswordHash, &s.FullName, &s.StudentID, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get student", fmt.Errorf("%s=%s", key, value))
		}
		return nil, fmt.Errorf("scan student: %w", err)
	}
	return &s, nil
}
