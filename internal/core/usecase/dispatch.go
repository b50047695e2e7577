package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
	"github.com/kirillkom/assignment-analyzer/internal/core/ports"
)

// DispatchUseCase forwards a stored assignment to the external analysis workflow.
type DispatchUseCase struct {
	assignments ports.AssignmentRepository
	students    ports.StudentRepository
	storage     ports.ObjectStorage
	webhook     ports.AnalysisWebhook
}

func NewDispatchUseCase(
	assignments ports.AssignmentRepository,
	students ports.StudentRepository,
	storage ports.ObjectStorage,
	webhook ports.AnalysisWebhook,
) *DispatchUseCase {
	return &DispatchUseCase{
		assignments: assignments,
		students:    students,
		storage:     storage,
		webhook:     webhook,
	}
}

func (uc *DispatchUseCase) DispatchByID(ctx context.Context, assignmentID int64) error {
	assignment, err := uc.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("fetch assignment by id: %w", err)
	}

	student, err := uc.students.GetByStudentID(ctx, assignment.StudentID)
	if err != nil {
		return fmt.Errorf("fetch assignment owner: %w", err)
	}

	file, err := uc.storage.Open(ctx, assignment.StoragePath)
	if err != nil {
		return fmt.Errorf("open stored assignment: %w", err)
	}
	defer file.Close()

	req := domain.AnalysisRequest{
		AssignmentID: assignment.ID,
		StudentEmail: student.Email,
		StudentID:    student.StudentID,
		Filename:     assignment.Filename,
		MimeType:     assignment.MimeType,
	}
	if err := uc.webhook.Submit(ctx, req, file); err != nil {
		return fmt.Errorf("trigger analysis webhook: %w", err)
	}
	return nil
}
