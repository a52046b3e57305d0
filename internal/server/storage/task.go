package storage

import (
	"context"

	"github.com/iudanet/tasktracker/internal/models"
	"github.com/iudanet/tasktracker/internal/server/query"
)

// TaskStorage defines interface for task persistence.
// Every method is scoped by ownerID: a task owned by someone else
// behaves exactly like a missing one.
type TaskStorage interface {
	// CreateTask stores a new task
	CreateTask(ctx context.Context, task *models.Task) error

	// GetTask retrieves the owner's task by ID
	// Returns ErrTaskNotFound if task doesn't exist or belongs to another user
	GetTask(ctx context.Context, ownerID, taskID string) (*models.Task, error)

	// ListTasks retrieves owner's tasks filtered, sorted and paginated by q
	// Returns empty slice if no tasks found
	ListTasks(ctx context.Context, ownerID string, q query.TaskQuery) ([]*models.Task, error)

	// UpdateTask writes description, completed and updated_at of the owner's task
	// Returns ErrTaskNotFound if task doesn't exist or belongs to another user
	UpdateTask(ctx context.Context, task *models.Task) error

	// DeleteTask deletes the owner's task and returns it
	// Returns ErrTaskNotFound if task doesn't exist or belongs to another user
	DeleteTask(ctx context.Context, ownerID, taskID string) (*models.Task, error)
}
