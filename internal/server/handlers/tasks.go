package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iudanet/tasktracker/internal/models"
	"github.com/iudanet/tasktracker/internal/server/query"
	"github.com/iudanet/tasktracker/pkg/api"
)

// TaskService определяет операции над задачами владельца
type TaskService interface {
	Create(ctx context.Context, ownerID, description string, completed bool) (*models.Task, error)
	Get(ctx context.Context, ownerID, taskID string) (*models.Task, error)
	List(ctx context.Context, ownerID string, q query.TaskQuery) ([]*models.Task, error)
	Update(ctx context.Context, ownerID, taskID string, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, ownerID, taskID string) (*models.Task, error)
}

// TaskHandler обрабатывает запросы /tasks
type TaskHandler struct {
	logger  *slog.Logger
	service TaskService
}

// NewTaskHandler создает новый handler для задач
func NewTaskHandler(logger *slog.Logger, service TaskService) *TaskHandler {
	return &TaskHandler{
		logger:  logger,
		service: service,
	}
}

// Create обрабатывает POST /tasks
// Владельцем становится текущий пользователь, поле owner в теле игнорируется
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(h.logger, w, r)
	if !ok {
		return
	}

	var req api.CreateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode task", slog.Any("error", err))
		SendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.service.Create(r.Context(), identity.UserID, req.Description, req.Completed)
	if err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	SendJSON(h.logger, w, toAPITask(task), http.StatusCreated)
}

// List обрабатывает GET /tasks?completed=&sortBy=&limit=&skip=
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(h.logger, w, r)
	if !ok {
		return
	}

	tasks, err := h.service.List(r.Context(), identity.UserID, query.ParseTaskQuery(r.URL.Query()))
	if err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	resp := make([]api.Task, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, toAPITask(t))
	}

	SendJSON(h.logger, w, resp, http.StatusOK)
}

// Get обрабатывает GET /tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(h.logger, w, r)
	if !ok {
		return
	}

	task, err := h.service.Get(r.Context(), identity.UserID, r.PathValue("id"))
	if err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	SendJSON(h.logger, w, toAPITask(task), http.StatusOK)
}

// taskUpdateFields - ключи, разрешенные в PATCH /tasks/{id}
var taskUpdateFields = []string{"description", "completed"}

// Update обрабатывает PATCH /tasks/{id}
// Допустимы только description и completed; любое другое поле - 400
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(h.logger, w, r)
	if !ok {
		return
	}

	var req api.UpdateTaskRequest
	if err := decodePatch(w, r, &req, taskUpdateFields...); err != nil {
		sendPatchError(h.logger, w, r, err)
		return
	}

	task, err := h.service.Update(r.Context(), identity.UserID, r.PathValue("id"), models.TaskPatch{
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	SendJSON(h.logger, w, toAPITask(task), http.StatusOK)
}

// Delete обрабатывает DELETE /tasks/{id}
// Возвращает удаленную задачу
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(h.logger, w, r)
	if !ok {
		return
	}

	task, err := h.service.Delete(r.Context(), identity.UserID, r.PathValue("id"))
	if err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	SendJSON(h.logger, w, toAPITask(task), http.StatusOK)
}
