package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/tasktracker/internal/crypto"
	"github.com/iudanet/tasktracker/internal/server/auth"
	"github.com/iudanet/tasktracker/internal/server/mail"
	"github.com/iudanet/tasktracker/internal/server/storage/sqlite"
	"github.com/iudanet/tasktracker/internal/server/tasks"
	"github.com/iudanet/tasktracker/internal/server/users"
	"github.com/iudanet/tasktracker/pkg/api"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type nopNotifier struct{}

func (nopNotifier) Enqueue(context.Context, mail.Message) {}

type testEnv struct {
	mux    *http.ServeMux
	store  *sqlite.Storage
	tokens *auth.TokenService
}

// requireAuth упрощенная проверка токена без пакета middleware
func requireAuth(tokens *auth.TokenService, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		identity, err := tokens.Validate(r.Context(), token)
		if err != nil {
			SendError(setupTestLogger(), w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(WithIdentity(r.Context(), identity)))
	}
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := setupTestLogger()
	tokens := auth.NewTokenService([]byte("handlers-test-secret"), store, store)

	userSvc, err := users.NewService(logger, store, tokens, crypto.NewPasswordHasher(bcrypt.MinCost), nopNotifier{})
	require.NoError(t, err)
	taskSvc := tasks.NewService(logger, store)

	uh := NewUserHandler(logger, userSvc)
	th := NewTaskHandler(logger, taskSvc)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /users", uh.Signup)
	mux.HandleFunc("POST /users/login", uh.Login)
	mux.HandleFunc("POST /users/logout", requireAuth(tokens, uh.Logout))
	mux.HandleFunc("POST /users/logoutAll", requireAuth(tokens, uh.LogoutAll))
	mux.HandleFunc("GET /users/me", requireAuth(tokens, uh.Me))
	mux.HandleFunc("GET /users/me/sessions", requireAuth(tokens, uh.Sessions))
	mux.HandleFunc("PATCH /users/me", requireAuth(tokens, uh.UpdateMe))
	mux.HandleFunc("DELETE /users/me", requireAuth(tokens, uh.DeleteMe))
	mux.HandleFunc("POST /users/me/avatar", requireAuth(tokens, uh.UploadAvatar))
	mux.HandleFunc("DELETE /users/me/avatar", requireAuth(tokens, uh.DeleteAvatar))
	mux.HandleFunc("GET /users/{id}/avatar", uh.GetAvatar)
	mux.HandleFunc("POST /tasks", requireAuth(tokens, th.Create))
	mux.HandleFunc("GET /tasks", requireAuth(tokens, th.List))
	mux.HandleFunc("GET /tasks/{id}", requireAuth(tokens, th.Get))
	mux.HandleFunc("PATCH /tasks/{id}", requireAuth(tokens, th.Update))
	mux.HandleFunc("DELETE /tasks/{id}", requireAuth(tokens, th.Delete))

	return &testEnv{mux: mux, store: store, tokens: tokens}
}

// do выполняет JSON запрос и возвращает recorder
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

// signup регистрирует пользователя и возвращает ответ сервера
func (e *testEnv) signup(t *testing.T, name, email string) api.AuthResponse {
	t.Helper()

	w := e.do(t, http.MethodPost, "/users", "", api.SignupRequest{
		Name:     name,
		Email:    email,
		Password: "s3cr3t-pass",
		Age:      30,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp api.AuthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}
