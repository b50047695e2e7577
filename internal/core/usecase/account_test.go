package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
)

type studentRepoFake struct {
	byEmail map[string]*domain.Student
	err     error
}

func newStudentRepoFake(students ...*domain.Student) *studentRepoFake {
	f := &studentRepoFake{byEmail: make(map[string]*domain.Student)}
	for _, s := range students {
		f.byEmail[s.Email] = s
	}
	return f
}

func (f *studentRepoFake) Create(_ context.Context, student *domain.Student) error {
	if f.err != nil {
		return f.err
	}
	student.ID = int64(len(f.byEmail) + 1)
	f.byEmail[student.Email] = student
	return nil
}

func (f *studentRepoFake) GetByEmail(_ context.Context, email string) (*domain.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.byEmail[email]; ok {
		return s, nil
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get student", errors.New(email))
}

func (f *studentRepoFake) GetByStudentID(_ context.Context, studentID string) (*domain.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.byEmail {
		if s.StudentID == studentID {
			return s, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get student", errors.New(studentID))
}

type hasherFake struct{}

func (hasherFake) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (hasherFake) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type tokensFake struct{}

func (tokensFake) Issue(subject string) (string, error) { return "token:" + subject, nil }
func (tokensFake) Verify(token string) (string, error) {
	const prefix = "token:"
	if len(token) <= len(prefix) || token[:len(prefix)] != prefix {
		return "", errors.New("bad token")
	}
	return token[len(prefix):], nil
}

func TestRegisterThenLoginThenAuthenticate(t *testing.T) {
	uc := NewAccountUseCase(newStudentRepoFake(), hasherFake{}, tokensFake{})
	ctx := context.Background()

	student, err := uc.Register(ctx, domain.Registration{
		Email:     "Student@Example.com",
		Password:  "password123",
		FullName:  "Test Student",
		StudentID: "12345",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if student.Email != "student@example.com" {
		t.Fatalf("expected lower-cased email, got %s", student.Email)
	}
	if student.PasswordHash == "password123" {
		t.Fatalf("password must be hashed")
	}

	token, err := uc.Login(ctx, "student@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token.TokenType != "bearer" {
		t.Fatalf("expected bearer token, got %s", token.TokenType)
	}

	current, err := uc.Authenticate(ctx, token.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if current.StudentID != "12345" {
		t.Fatalf("unexpected student %+v", current)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	existing := &domain.Student{Email: "a@example.com", StudentID: "1"}
	uc := NewAccountUseCase(newStudentRepoFake(existing), hasherFake{}, tokensFake{})

	_, err := uc.Register(context.Background(), domain.Registration{Email: "a@example.com", Password: "password123", StudentID: "2"})
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for email, got %v", err)
	}
	_, err = uc.Register(context.Background(), domain.Registration{Email: "b@example.com", Password: "password123", StudentID: "1"})
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for student id, got %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	uc := NewAccountUseCase(newStudentRepoFake(), hasherFake{}, tokensFake{})

	_, err := uc.Register(context.Background(), domain.Registration{Email: "not-an-email", Password: "password123", StudentID: "1"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	_, err = uc.Register(context.Background(), domain.Registration{Email: "a@example.com", Password: "short", StudentID: "1"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for short password, got %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	existing := &domain.Student{Email: "a@example.com", StudentID: "1", PasswordHash: "hashed:right-password"}
	uc := NewAccountUseCase(newStudentRepoFake(existing), hasherFake{}, tokensFake{})

	if _, err := uc.Login(context.Background(), "a@example.com", "wrong-password"); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := uc.Login(context.Background(), "missing@example.com", "whatever1"); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown email, got %v", err)
	}
}

func TestAuthenticateRejectsUnknownSubject(t *testing.T) {
	uc := NewAccountUseCase(newStudentRepoFake(), hasherFake{}, tokensFake{})

	if _, err := uc.Authenticate(context.Background(), "token:ghost@example.com"); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := uc.Authenticate(context.Background(), "garbage"); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for bad token, got %v", err)
	}
}
