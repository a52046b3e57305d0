package models

import "time"

// Task представляет задачу пользователя.
// OwnerID выставляется при создании и больше не меняется.
type Task struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ID          string    `json:"id"`          // UUID задачи
	OwnerID     string    `json:"owner"`       // ID пользователя-владельца
	Description string    `json:"description"` // текст задачи
	Completed   bool      `json:"completed"`   // флаг выполнения
}

// TaskPatch описывает изменяемые поля задачи: только description и completed.
type TaskPatch struct {
	Description *string
	Completed   *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Description == nil && p.Completed == nil
}

// Apply переносит переданные поля патча в задачу.
func (p TaskPatch) Apply(t *Task) {
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}
