package server

import (
	"net/http"

	"github.com/iudanet/tasktracker/internal/server/auth"
	"github.com/iudanet/tasktracker/internal/server/handlers"
	"github.com/iudanet/tasktracker/internal/server/middleware"
)

type routeDeps struct {
	users  *handlers.UserHandler
	tasks  *handlers.TaskHandler
	health *handlers.HealthHandler
	tokens *auth.TokenService
}

// routes регистрирует маршруты и оборачивает mux общими middleware:
// Recovery -> Logging -> Metrics -> mux
func (s *Server) routes(d routeDeps) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.AuthMiddleware(s.logger, d.tokens)
	limited := s.limiter.Middleware(s.logger)

	protect := func(h http.HandlerFunc) http.Handler {
		return authed(h)
	}

	// Публичные
	mux.Handle("POST /users", limited(http.HandlerFunc(d.users.Signup)))
	mux.Handle("POST /users/login", limited(http.HandlerFunc(d.users.Login)))
	mux.HandleFunc("GET /users/{id}/avatar", d.users.GetAvatar)
	mux.HandleFunc("GET /health", d.health.Health)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Пользователь
	mux.Handle("POST /users/logout", protect(d.users.Logout))
	mux.Handle("POST /users/logoutAll", protect(d.users.LogoutAll))
	mux.Handle("GET /users/me", protect(d.users.Me))
	mux.Handle("GET /users/me/sessions", protect(d.users.Sessions))
	mux.Handle("PATCH /users/me", protect(d.users.UpdateMe))
	mux.Handle("DELETE /users/me", protect(d.users.DeleteMe))
	mux.Handle("POST /users/me/avatar", protect(d.users.UploadAvatar))
	mux.Handle("DELETE /users/me/avatar", protect(d.users.DeleteAvatar))

	// Задачи
	mux.Handle("POST /tasks", protect(d.tasks.Create))
	mux.Handle("GET /tasks", protect(d.tasks.List))
	mux.Handle("GET /tasks/{id}", protect(d.tasks.Get))
	mux.Handle("PATCH /tasks/{id}", protect(d.tasks.Update))
	mux.Handle("DELETE /tasks/{id}", protect(d.tasks.Delete))

	var h http.Handler = mux
	h = middleware.MetricsMiddleware(s.metrics)(h)
	h = middleware.LoggingWithSkip(s.logger, []string{"/health", "/metrics"})(h)
	h = middleware.RecoveryMiddleware(s.logger)(h)

	return h
}
