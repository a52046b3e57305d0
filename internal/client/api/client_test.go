package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/tasktracker/pkg/api"
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.BaseURL())
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

// TestClient_Signup проверяет успешную регистрацию
func TestClient_Signup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var req api.SignupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Jane", req.Name)
		assert.Equal(t, 30, req.Age)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.AuthResponse{
			User:  api.User{ID: "user-123", Name: req.Name, Email: req.Email},
			Token: "token-abc",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Signup(context.Background(), api.SignupRequest{
		Name: "Jane", Email: "jane@example.com", Password: "s3cr3t-pass", Age: 30,
	})

	require.NoError(t, err)
	assert.Equal(t, "user-123", resp.User.ID)
	assert.Equal(t, "token-abc", resp.Token)
}

// TestClient_Errors проверяет обработку ошибок сервера
func TestClient_Errors(t *testing.T) {
	tests := []struct {
		responseBody   any
		check          func(t *testing.T, err error)
		name           string
		expectedErrMsg string
		statusCode     int
	}{
		{
			name:       "invalid credentials",
			statusCode: http.StatusUnauthorized,
			responseBody: api.ErrorResponse{
				Error:   "Unauthorized",
				Message: "invalid credentials",
			},
			expectedErrMsg: "server error (401): invalid credentials",
			check: func(t *testing.T, err error) {
				assert.True(t, IsUnauthorized(err))
				assert.False(t, IsNotFound(err))
			},
		},
		{
			name:       "validation failure",
			statusCode: http.StatusUnprocessableEntity,
			responseBody: api.ErrorResponse{
				Message: "validation failed",
				Fields:  map[string]string{"password": "must be provided", "email": "is already taken"},
			},
			expectedErrMsg: "server error (422): validation failed: email is already taken; password must be provided",
		},
		{
			name:           "plain text error",
			statusCode:     http.StatusInternalServerError,
			responseBody:   "Internal Server Error",
			expectedErrMsg: "server error (500): Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if errResp, ok := tt.responseBody.(api.ErrorResponse); ok {
					_ = json.NewEncoder(w).Encode(errResp)
				} else {
					_, _ = w.Write([]byte(tt.responseBody.(string)))
				}
			}))
			defer server.Close()

			client := NewClient(server.URL)
			_, err := client.Login(context.Background(), api.LoginRequest{Email: "a@b.c", Password: "x"})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErrMsg)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.statusCode, apiErr.StatusCode)

			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

// TestClient_ListTasks проверяет построение query string
func TestClient_ListTasks(t *testing.T) {
	completed := false

	tests := []struct {
		name      string
		params    api.TaskListParams
		wantQuery string
	}{
		{name: "no params", params: api.TaskListParams{}, wantQuery: ""},
		{
			name:      "all params",
			params:    api.TaskListParams{Completed: &completed, SortBy: "createdAt_desc", Limit: 10, Skip: 20},
			wantQuery: "completed=false&limit=10&skip=20&sortBy=createdAt_desc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/tasks", r.URL.Path)
				assert.Equal(t, tt.wantQuery, r.URL.RawQuery)
				assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

				_ = json.NewEncoder(w).Encode([]api.Task{{ID: "t1", Description: "buy milk"}})
			}))
			defer server.Close()

			tasks, err := NewClient(server.URL).ListTasks(context.Background(), "token-1", tt.params)
			require.NoError(t, err)
			require.Len(t, tasks, 1)
			assert.Equal(t, "buy milk", tasks[0].Description)
		})
	}
}

// TestClient_TaskRequests проверяет методы и пути запросов к задачам
func TestClient_TaskRequests(t *testing.T) {
	var gotMethod, gotPath, gotBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		_ = json.NewEncoder(w).Encode(api.Task{ID: "t1"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()
	done := true

	_, err := client.CreateTask(ctx, "tok", api.CreateTaskRequest{Description: "x"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/tasks", gotPath)

	_, err = client.UpdateTask(ctx, "tok", "t1", api.UpdateTaskRequest{Completed: &done})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/tasks/t1", gotPath)
	assert.JSONEq(t, `{"completed":true}`, gotBody)

	_, err = client.GetTask(ctx, "tok", "t1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, gotMethod)

	_, err = client.DeleteTask(ctx, "tok", "t1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/tasks/t1", gotPath)
}

func TestClient_Sessions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/me/sessions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode([]api.Session{
			{ID: "s1", UserAgent: "curl/8.0"},
			{ID: "s2", Current: true},
		})
	}))
	defer server.Close()

	sessions, err := NewClient(server.URL).Sessions(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "curl/8.0", sessions[0].UserAgent)
	assert.True(t, sessions[1].Current)
}

// TestClient_UploadAvatar проверяет multipart загрузку
func TestClient_UploadAvatar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/avatar", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("avatar")
		require.NoError(t, err)
		defer file.Close()

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "me.png", header.Filename)
		assert.Equal(t, "png-bytes", string(data))

		_ = json.NewEncoder(w).Encode(map[string]string{"message": "avatar uploaded"})
	}))
	defer server.Close()

	err := NewClient(server.URL).UploadAvatar(context.Background(), "tok", "me.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
}

// TestClient_Avatar проверяет скачивание аватара
func TestClient_Avatar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/u1/avatar" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Message: "not found"})
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	data, err := client.Avatar(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	_, err = client.Avatar(context.Background(), "u2")
	assert.True(t, IsNotFound(err))
}
