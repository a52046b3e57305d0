package api

import "time"

// SignupRequest представляет запрос на регистрацию
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
}

// LoginRequest представляет запрос на вход по email и паролю
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest содержит изменяемые поля профиля.
// Любое другое поле в теле запроса отклоняет весь запрос.
type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Age      *int    `json:"age,omitempty"`
}

// User представляет публичный профиль пользователя.
// Хеш пароля, сессии и байты аватара наружу не отдаются.
type User struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	HasAvatar bool      `json:"has_avatar"`
}

// AuthResponse возвращается при регистрации и входе
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"` // bearer token новой сессии
}

// LogoutResponse возвращается при выходе
type LogoutResponse struct {
	Message string `json:"message"`
	Revoked int    `json:"revoked"` // количество закрытых сессий
}

// Session описывает открытую сессию пользователя
type Session struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent"`
	Current   bool      `json:"current"` // сессия, которой выполнен запрос
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Fields  map[string]string `json:"fields,omitempty"`  // ошибки валидации по полям
	Error   string            `json:"error"`             // описание ошибки
	Message string            `json:"message,omitempty"` // дополнительное сообщение
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Database string `json:"database,omitempty"`
}
