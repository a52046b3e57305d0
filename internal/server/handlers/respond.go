package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/iudanet/tasktracker/internal/models"
	"github.com/iudanet/tasktracker/internal/server/apperr"
	"github.com/iudanet/tasktracker/internal/server/auth"
	"github.com/iudanet/tasktracker/pkg/api"
)

// maxJSONBody ограничивает размер JSON тела запроса
const maxJSONBody = 1 << 20

// errInvalidBody возвращается при некорректном JSON
var errInvalidBody = errors.New("invalid request body")

// SendJSON отправляет JSON ответ
func SendJSON(logger *slog.Logger, w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// SendError отправляет JSON ответ с ошибкой
func SendError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	SendJSON(logger, w, resp, statusCode)
}

// sendServiceError переводит ошибку сервисного слоя в HTTP ответ
func sendServiceError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		SendJSON(logger, w, api.ErrorResponse{
			Error:   http.StatusText(http.StatusUnprocessableEntity),
			Message: "validation failed",
			Fields:  verr.Fields,
		}, http.StatusUnprocessableEntity)
	case errors.Is(err, apperr.ErrInvalidUpdate):
		SendError(logger, w, "invalid updates", http.StatusBadRequest)
	case errors.Is(err, apperr.ErrUnauthorized):
		SendError(logger, w, "invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, apperr.ErrNotFound):
		SendError(logger, w, "not found", http.StatusNotFound)
	default:
		logger.ErrorContext(ctx, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		SendError(logger, w, "internal server error", http.StatusInternalServerError)
	}
}

// decodeJSON читает тело запроса в dst. Лишние поля игнорируются.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

// decodePatch читает тело PATCH запроса в dst.
// Ключи сравниваются с allowed побайтно: любой другой ключ (в том числе
// отличающийся только регистром) дает apperr.ErrInvalidUpdate,
// явный null - ошибку валидации поля. Пустое тело равносильно {}.
func decodePatch(w http.ResponseWriter, r *http.Request, dst any, allowed ...string) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return errInvalidBody
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return errInvalidBody
	}

	for key := range fields {
		if !slices.Contains(allowed, key) {
			return apperr.ErrInvalidUpdate
		}
	}

	verr := apperr.NewValidationError()
	for key, raw := range fields {
		verr.Check(!bytes.Equal(bytes.TrimSpace(raw), []byte("null")), key, "must not be null")
	}
	if err := verr.Err(); err != nil {
		return err
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return errInvalidBody
	}
	return nil
}

// sendPatchError отвечает на ошибку decodePatch
func sendPatchError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errInvalidBody) {
		SendError(logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	sendServiceError(logger, w, r, err)
}

// toAPIUser конвертирует модель пользователя в публичный DTO
func toAPIUser(u *models.User) api.User {
	return api.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		HasAvatar: u.HasAvatar(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// toAPITask конвертирует модель задачи в DTO
func toAPITask(t *models.Task) api.Task {
	return api.Task{
		ID:          t.ID,
		Owner:       t.OwnerID,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// identityOrAbort достает identity, отвечая 401 если middleware не отработал
func identityOrAbort(logger *slog.Logger, w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id, ok := GetIdentity(r.Context())
	if !ok {
		logger.WarnContext(r.Context(), "identity not found in context")
		SendError(logger, w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return id, true
}
