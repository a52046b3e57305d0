package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/tasktracker/pkg/api"
)

// Error ответ сервера с кодом вне диапазона 2xx
type Error struct {
	Fields     map[string]string
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
	}

	parts := make([]string, 0, len(e.Fields))
	for _, field := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, field+" "+e.Fields[field])
	}
	return fmt.Sprintf("server error (%d): %s: %s", e.StatusCode, e.Message, strings.Join(parts, "; "))
}

// IsUnauthorized сообщает, что сервер отклонил токен или учетные данные
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound сообщает, что ресурс не найден или принадлежит другому пользователю
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// BaseURL возвращает адрес сервера
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Signup регистрирует нового пользователя
func (c *Client) Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/users", "", req, &resp); err != nil {
		return nil, fmt.Errorf("signup request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/users/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Logout закрывает текущую сессию
func (c *Client) Logout(ctx context.Context, token string) (*api.LogoutResponse, error) {
	var resp api.LogoutResponse
	if err := c.doRequest(ctx, http.MethodPost, "/users/logout", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("logout request failed: %w", err)
	}
	return &resp, nil
}

// LogoutAll закрывает все сессии пользователя
func (c *Client) LogoutAll(ctx context.Context, token string) (*api.LogoutResponse, error) {
	var resp api.LogoutResponse
	if err := c.doRequest(ctx, http.MethodPost, "/users/logoutAll", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("logout all request failed: %w", err)
	}
	return &resp, nil
}

// Sessions возвращает открытые сессии пользователя
func (c *Client) Sessions(ctx context.Context, token string) ([]api.Session, error) {
	var resp []api.Session
	if err := c.doRequest(ctx, http.MethodGet, "/users/me/sessions", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list sessions request failed: %w", err)
	}
	return resp, nil
}

// Me возвращает профиль текущего пользователя
func (c *Client) Me(ctx context.Context, token string) (*api.User, error) {
	var resp api.User
	if err := c.doRequest(ctx, http.MethodGet, "/users/me", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("get profile request failed: %w", err)
	}
	return &resp, nil
}

// UpdateMe изменяет профиль текущего пользователя
func (c *Client) UpdateMe(ctx context.Context, token string, req api.UpdateProfileRequest) (*api.User, error) {
	var resp api.User
	if err := c.doRequest(ctx, http.MethodPatch, "/users/me", token, req, &resp); err != nil {
		return nil, fmt.Errorf("update profile request failed: %w", err)
	}
	return &resp, nil
}

// DeleteMe удаляет аккаунт вместе с задачами
func (c *Client) DeleteMe(ctx context.Context, token string) (*api.User, error) {
	var resp api.User
	if err := c.doRequest(ctx, http.MethodDelete, "/users/me", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("delete account request failed: %w", err)
	}
	return &resp, nil
}

// UploadAvatar загружает изображение как multipart поле "avatar"
func (c *Client) UploadAvatar(ctx context.Context, token, filename string, r io.Reader) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("avatar", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to read avatar: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/me/avatar", &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	if _, err := c.do(req); err != nil {
		return fmt.Errorf("upload avatar request failed: %w", err)
	}
	return nil
}

// DeleteAvatar удаляет аватар текущего пользователя
func (c *Client) DeleteAvatar(ctx context.Context, token string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/users/me/avatar", token, nil, nil); err != nil {
		return fmt.Errorf("delete avatar request failed: %w", err)
	}
	return nil
}

// Avatar скачивает PNG аватар любого пользователя
func (c *Client) Avatar(ctx context.Context, userID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/users/"+url.PathEscape(userID)+"/avatar", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	data, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("get avatar request failed: %w", err)
	}
	return data, nil
}

// CreateTask создает задачу текущего пользователя
func (c *Client) CreateTask(ctx context.Context, token string, req api.CreateTaskRequest) (*api.Task, error) {
	var resp api.Task
	if err := c.doRequest(ctx, http.MethodPost, "/tasks", token, req, &resp); err != nil {
		return nil, fmt.Errorf("create task request failed: %w", err)
	}
	return &resp, nil
}

// ListTasks возвращает задачи текущего пользователя
func (c *Client) ListTasks(ctx context.Context, token string, params api.TaskListParams) ([]api.Task, error) {
	values := url.Values{}
	if params.Completed != nil {
		values.Set("completed", strconv.FormatBool(*params.Completed))
	}
	if params.SortBy != "" {
		values.Set("sortBy", params.SortBy)
	}
	if params.Limit > 0 {
		values.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Skip > 0 {
		values.Set("skip", strconv.Itoa(params.Skip))
	}

	path := "/tasks"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}

	var resp []api.Task
	if err := c.doRequest(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list tasks request failed: %w", err)
	}
	return resp, nil
}

// GetTask возвращает задачу по ID
func (c *Client) GetTask(ctx context.Context, token, id string) (*api.Task, error) {
	var resp api.Task
	if err := c.doRequest(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), token, nil, &resp); err != nil {
		return nil, fmt.Errorf("get task request failed: %w", err)
	}
	return &resp, nil
}

// UpdateTask изменяет описание и/или статус задачи
func (c *Client) UpdateTask(ctx context.Context, token, id string, req api.UpdateTaskRequest) (*api.Task, error) {
	var resp api.Task
	if err := c.doRequest(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), token, req, &resp); err != nil {
		return nil, fmt.Errorf("update task request failed: %w", err)
	}
	return &resp, nil
}

// DeleteTask удаляет задачу и возвращает ее
func (c *Client) DeleteTask(ctx context.Context, token, id string) (*api.Task, error) {
	var resp api.Task
	if err := c.doRequest(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), token, nil, &resp); err != nil {
		return nil, fmt.Errorf("delete task request failed: %w", err)
	}
	return &resp, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет JSON запрос
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	respBody, err := c.do(req)
	if err != nil {
		return err
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// do отправляет запрос и возвращает тело успешного ответа
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}

		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			apiErr.Message = errResp.Message
			apiErr.Fields = errResp.Fields
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return nil, apiErr
	}

	return respBody, nil
}
