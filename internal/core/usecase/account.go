package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
	"github.com/kirillkom/assignment-analyzer/internal/core/ports"
)

const minPasswordLength = 8

type AccountUseCase struct {
	students ports.StudentRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenIssuer
}

func NewAccountUseCase(
	students ports.StudentRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
) *AccountUseCase {
	return &AccountUseCase{
		students: students,
		hasher:   hasher,
		tokens:   tokens,
	}
}

func (uc *AccountUseCase) Register(ctx context.Context, reg domain.Registration) (*domain.Student, error) {
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	studentID := strings.TrimSpace(reg.StudentID)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register", errors.New("valid email is required"))
	}
	if studentID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register", errors.New("student_id is required"))
	}
	if len(reg.Password) < minPasswordLength {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register", fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}

	if _, err := uc.students.GetByEmail(ctx, email); err == nil {
		return nil, domain.WrapError(domain.ErrConflict, "register", errors.New("student with this email already registered"))
	} else if !domain.IsKind(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup student by email: %w", err)
	}
	if _, err := uc.students.GetByStudentID(ctx, studentID); err == nil {
		return nil, domain.WrapError(domain.ErrConflict, "register", errors.New("student with this ID already registered"))
	} else if !domain.IsKind(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup student by student id: %w", err)
	}

	hash, err := uc.hasher.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	student := &domain.Student{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(reg.FullName),
		StudentID:    studentID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.students.Create(ctx, student); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	return student, nil
}

func (uc *AccountUseCase) Login(ctx context.Context, email, password string) (*domain.Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "login", errors.New("incorrect email or password"))
	}

	student, err := uc.students.GetByEmail(ctx, email)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, domain.WrapError(domain.ErrUnauthorized, "login", errors.New("incorrect email or password"))
		}
		return nil, fmt.Errorf("lookup student: %w", err)
	}
	if err := uc.hasher.Compare(student.PasswordHash, password); err != nil {
		return nil, domain.WrapError(domain.ErrUnauthorized, "login", errors.New("incorrect email or password"))
	}

	accessToken, err := uc.tokens.Issue(student.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &domain.Token{AccessToken: accessToken, TokenType: "bearer"}, nil
}

func (uc *AccountUseCase) Authenticate(ctx context.Context, accessToken string) (*domain.Student, error) {
	subject, err := uc.tokens.Verify(accessToken)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnauthorized, "authenticate", err)
	}

	student, err := uc.students.GetByEmail(ctx, subject)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("unknown subject"))
		}
		return nil, fmt.Errorf("lookup student: %w", err)
	}
	return student, nil
}
