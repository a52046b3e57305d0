package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/tasktracker/internal/models"
	"github.com/iudanet/tasktracker/internal/server/query"
	"github.com/iudanet/tasktracker/internal/server/storage"
)

const taskColumns = `id, owner_id, description, completed, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// CreateTask stores a new task
func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	stmt := `
		INSERT INTO tasks (id, owner_id, description, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, stmt,
		task.ID,
		task.OwnerID,
		task.Description,
		boolToInt(task.Completed),
		timeToUnix(task.CreatedAt),
		timeToUnix(task.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// GetTask retrieves the owner's task by ID
func (s *Storage) GetTask(ctx context.Context, ownerID, taskID string) (*models.Task, error) {
	stmt := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND owner_id = ?`

	task, err := scanTask(s.db.QueryRowContext(ctx, stmt, taskID, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListTasks retrieves owner's tasks according to q
func (s *Storage) ListTasks(ctx context.Context, ownerID string, q query.TaskQuery) ([]*models.Task, error) {
	stmt, args := buildListQuery(ownerID, q)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// UpdateTask writes mutable fields of the owner's task
func (s *Storage) UpdateTask(ctx context.Context, task *models.Task) error {
	stmt := `
		UPDATE tasks
		SET description = ?, completed = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`

	result, err := s.db.ExecContext(ctx, stmt,
		task.Description,
		boolToInt(task.Completed),
		timeToUnix(task.UpdatedAt),
		task.ID,
		task.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return expectAffected(result, storage.ErrTaskNotFound)
}

// DeleteTask deletes the owner's task and returns the deleted row
func (s *Storage) DeleteTask(ctx context.Context, ownerID, taskID string) (*models.Task, error) {
	stmt := `DELETE FROM tasks WHERE id = ? AND owner_id = ? RETURNING ` + taskColumns

	task, err := scanTask(s.db.QueryRowContext(ctx, stmt, taskID, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}

	return task, nil
}

// buildListQuery assembles the listing statement. Column names come only
// from query.Sort.Column, user input reaches the database as arguments.
func buildListQuery(ownerID string, q query.TaskQuery) (string, []any) {
	var sb strings.Builder
	args := []any{ownerID}

	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = ?`)

	if completed, ok := q.Completed(); ok {
		sb.WriteString(` AND completed = ?`)
		args = append(args, boolToInt(completed))
	}

	if sort, ok := q.Sort(); ok {
		dir := "DESC"
		if sort.Direction == query.Ascending {
			dir = "ASC"
		}
		fmt.Fprintf(&sb, ` ORDER BY %s %s, rowid ASC`, sort.Column(), dir)
	} else {
		sb.WriteString(` ORDER BY created_at ASC, rowid ASC`)
	}

	if q.Limit() > 0 || q.Skip() > 0 {
		limit := q.Limit()
		if limit == 0 {
			limit = -1 // SQLite: no upper bound
		}
		sb.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, limit, q.Skip())
	}

	return sb.String(), args
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var completed int
	var createdAt, updatedAt int64

	if err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Description,
		&completed,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	task.Completed = completed != 0
	task.CreatedAt = unixToTime(createdAt)
	task.UpdatedAt = unixToTime(updatedAt)

	return task, nil
}
