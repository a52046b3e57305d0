package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/tasktracker/internal/server/auth"
	"github.com/iudanet/tasktracker/internal/server/handlers"
)

// TokenValidator проверяет bearer token и возвращает владельца сессии
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*auth.Identity, error)
}

// AuthMiddleware создает middleware для проверки bearer token.
// Запрос без валидного токена получает 401 до вызова handler'а.
func AuthMiddleware(logger *slog.Logger, validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Извлекаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(ctx, "Missing Authorization header")
				handlers.SendError(logger, w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				logger.WarnContext(ctx, "Invalid Authorization header format")
				handlers.SendError(logger, w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			identity, err := validator.Validate(ctx, strings.TrimSpace(parts[1]))
			if err != nil {
				logger.WarnContext(ctx, "Invalid access token", slog.Any("error", err))
				handlers.SendError(logger, w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			logger.DebugContext(ctx, "User authenticated",
				slog.String("user_id", identity.UserID),
				slog.String("session_id", identity.SessionID))

			next.ServeHTTP(w, r.WithContext(handlers.WithIdentity(ctx, identity)))
		})
	}
}
