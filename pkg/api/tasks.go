package api

import "time"

// CreateTaskRequest представляет запрос на создание задачи.
// Владелец задачи берется из сессии, поле owner в теле игнорируется.
type CreateTaskRequest struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// UpdateTaskRequest содержит изменяемые поля задачи.
// Любое другое поле в теле запроса отклоняет весь запрос.
type UpdateTaskRequest struct {
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Task представляет задачу в ответах API
type Task struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
}

// TaskListParams описывает параметры GET /tasks
type TaskListParams struct {
	Completed *bool  // nil - без фильтра
	SortBy    string // field_direction, например createdAt_desc
	Limit     int
	Skip      int
}
