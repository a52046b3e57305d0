package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/iudanet/tasktracker/internal/models"
	"github.com/iudanet/tasktracker/internal/server/apperr"
	"github.com/iudanet/tasktracker/internal/server/avatar"
	"github.com/iudanet/tasktracker/internal/server/users"
	"github.com/iudanet/tasktracker/pkg/api"
)

// UserService определяет операции над аккаунтом, нужные handler'у
type UserService interface {
	Signup(ctx context.Context, in users.SignupInput, userAgent string) (*models.User, string, error)
	Login(ctx context.Context, email, password, userAgent string) (*models.User, string, error)
	Logout(ctx context.Context, userID, token string) error
	LogoutAll(ctx context.Context, userID string) (int, error)
	Sessions(ctx context.Context, userID string) ([]*models.Session, error)
	UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.User, error)
	Delete(ctx context.Context, userID string) (*models.User, error)
	SetAvatar(ctx context.Context, userID, filename string, size int64, r io.Reader) error
	ClearAvatar(ctx context.Context, userID string) error
	Avatar(ctx context.Context, userID string) ([]byte, error)
}

// multipartOverhead запас на заголовки multipart сверх размера файла
const multipartOverhead = 64 << 10

// UserHandler обрабатывает запросы /users
type UserHandler struct {
	logger  *slog.Logger
	service UserService
}

// NewUserHandler создает новый handler для пользователей
func NewUserHandler(logger *slog.Logger, service UserService) *UserHandler {
	return &UserHandler{
		logger:  logger,
		service: service,
	}
}

// Signup обрабатывает POST /users
// Регистрация нового пользователя, сразу выдает токен
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode signup request", slog.Any("error", err))
		SendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.service.Signup(ctx, users.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age,
	}, r.UserAgent())
	if err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	SendJSON(h.logger, w, api.AuthResponse{User: toAPIUser(user), Token: token}, http.StatusCreated)
}

// Login обрабатывает POST /users/login
// Каждый успешный вход открывает новую сессию, старые остаются валидными
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		SendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.service.Login(ctx, req.Email, req.Password, r.UserAgent())
	if err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	SendJSON(h.logger, w, api.AuthResponse{User: toAPIUser(user), Token: token}, http.StatusOK)
}

// Logout обрабатывает POST /users/logout
// Закрывает только сессию, которой подписан запрос
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(h.logger, w, r)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), identity.UserID, identity.Token); err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	SendJSON(h.logger, w, api.LogoutResponse{Message: "logged out", Revoked: 1}, http.StatusOK)
}

// LogoutAll обрабатывает POST /users/logoutAll
func (h *UserHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(h.logger, w, r)
	if !ok {
		return
	}

	n, err := h.service.LogoutAll(r.Context(), identity.UserID)
	if err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	SendJSON(h.logger, w, api.LogoutResponse{Message: "logged out from all sessions", Revoked: n}, http.StatusOK)
}

// Sessions обрабатывает GET /users/me/sessions
// Текущая сессия помечается флагом current
func (h *UserHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(h.logger, w, r)
	if !ok {
		return
	}

	sessions, err := h.service.Sessions(r.Context(), identity.UserID)
	if err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	resp := make([]api.Session, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, api.Session{
			CreatedAt: s.CreatedAt,
			ID:        s.ID,
			UserAgent: s.UserAgent,
			Current:   s.ID == identity.SessionID,
		})
	}

	SendJSON(h.logger, w, resp, http.StatusOK)
}

// Me обрабатывает GET /users/me
// Пользователь уже загружен AuthMiddleware
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(h.logger, w, r)
	if !ok {
		return
	}

	SendJSON(h.logger, w, toAPIUser(identity.User), http.StatusOK)
}

// profileUpdateFields - ключи, разрешенные в PATCH /users/me
var profileUpdateFields = []string{"name", "email", "password", "age"}

// UpdateMe обрабатывает PATCH /users/me
// Допустимы только name, email, password, age; любое другое поле - 400
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(h.logger, w, r)
	if !ok {
		return
	}

	var req api.UpdateProfileRequest
	if err := decodePatch(w, r, &req, profileUpdateFields...); err != nil {
		sendPatchError(h.logger, w, r, err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), identity.UserID, models.ProfilePatch{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age,
	})
	if err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	SendJSON(h.logger, w, toAPIUser(user), http.StatusOK)
}

// DeleteMe обрабатывает DELETE /users/me
// Удаляет аккаунт вместе с задачами и сессиями, возвращает удаленного пользователя
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(h.logger, w, r)
	if !ok {
		return
	}

	user, err := h.service.Delete(r.Context(), identity.UserID)
	if err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	SendJSON(h.logger, w, toAPIUser(user), http.StatusOK)
}

// UploadAvatar обрабатывает POST /users/me/avatar
// Ожидает multipart/form-data с полем "avatar"
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(h.logger, w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, avatar.MaxUploadSize+multipartOverhead)

	file, header, err := r.FormFile("avatar")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			SendError(h.logger, w, avatar.ErrTooLarge.Error(), http.StatusBadRequest)
		default:
			h.logger.WarnContext(ctx, "avatar upload without file", slog.Any("error", err))
			SendError(h.logger, w, "No file selected", http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	err = h.service.SetAvatar(ctx, identity.UserID, header.Filename, header.Size, file)
	if err != nil {
		var verr *apperr.ValidationError
		if errors.As(err, &verr) {
			SendError(h.logger, w, verr.Fields["avatar"], http.StatusBadRequest)
			return
		}
		sendServiceError(h.logger, w, r, err)
		return
	}

	SendJSON(h.logger, w, map[string]string{"message": "avatar uploaded"}, http.StatusOK)
}

// DeleteAvatar обрабатывает DELETE /users/me/avatar
func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(h.logger, w, r)
	if !ok {
		return
	}

	if err := h.service.ClearAvatar(r.Context(), identity.UserID); err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	SendJSON(h.logger, w, map[string]string{"message": "avatar deleted"}, http.StatusOK)
}

// GetAvatar обрабатывает GET /users/{id}/avatar
// Публичный endpoint, отдает PNG
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	img, err := h.service.Avatar(r.Context(), r.PathValue("id"))
	if err != nil {
		sendServiceError(h.logger, w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write avatar", slog.Any("error", err))
	}
}
