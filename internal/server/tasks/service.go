// Package tasks implements owner-scoped task operations.
//
// Every call takes the caller's user ID and passes it down to storage, so a
// task of another user is indistinguishable from a missing one.
package tasks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/iudanet/tasktracker/internal/models"
	"github.com/iudanet/tasktracker/internal/server/apperr"
	"github.com/iudanet/tasktracker/internal/server/query"
	"github.com/iudanet/tasktracker/internal/server/storage"
	"github.com/iudanet/tasktracker/internal/validation"
)

const domain = "tasks"

// Service provides task CRUD scoped to the owner.
type Service struct {
	store  storage.TaskStorage
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new task service.
func NewService(logger *slog.Logger, store storage.TaskStorage) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Create stores a new task owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID, description string, completed bool) (*models.Task, error) {
	if err := validation.ValidateDescription(description); err != nil {
		return nil, apperr.FieldError("description", err.Error())
	}

	now := s.now().UTC()
	task := &models.Task{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Description: strings.TrimSpace(description),
		Completed:   completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, apperr.Upstream(domain, "create task", err)
	}

	s.logger.InfoContext(ctx, "task created",
		slog.String("task_id", task.ID),
		slog.String("user_id", ownerID))

	return task, nil
}

// Get returns the owner's task.
func (s *Service) Get(ctx context.Context, ownerID, taskID string) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, s.mapError(err, "get task", taskID)
	}
	return task, nil
}

// List returns the owner's tasks filtered, ordered and paginated by q.
func (s *Service) List(ctx context.Context, ownerID string, q query.TaskQuery) ([]*models.Task, error) {
	tasks, err := s.store.ListTasks(ctx, ownerID, q)
	if err != nil {
		return nil, apperr.Upstream(domain, "list tasks", err)
	}
	return tasks, nil
}

// Update applies patch to the owner's task. Values are validated before
// anything is written, an empty patch returns the task unchanged.
func (s *Service) Update(ctx context.Context, ownerID, taskID string, patch models.TaskPatch) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, s.mapError(err, "get task", taskID)
	}

	if patch.IsEmpty() {
		return task, nil
	}

	if patch.Description != nil {
		if err := validation.ValidateDescription(*patch.Description); err != nil {
			return nil, apperr.FieldError("description", err.Error())
		}
		trimmed := strings.TrimSpace(*patch.Description)
		patch.Description = &trimmed
	}

	patch.Apply(task)
	task.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, s.mapError(err, "update task", taskID)
	}

	return task, nil
}

// Delete removes the owner's task and returns it.
func (s *Service) Delete(ctx context.Context, ownerID, taskID string) (*models.Task, error) {
	task, err := s.store.DeleteTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, s.mapError(err, "delete task", taskID)
	}

	s.logger.InfoContext(ctx, "task deleted",
		slog.String("task_id", taskID),
		slog.String("user_id", ownerID))

	return task, nil
}

func (s *Service) mapError(err error, operation, taskID string) error {
	if errors.Is(err, storage.ErrTaskNotFound) {
		return oops.In(domain).
			Code("TASK_NOT_FOUND").
			With("task_id", taskID).
			Wrap(errors.Join(apperr.ErrNotFound, err))
	}
	return apperr.Upstream(domain, operation, err)
}
